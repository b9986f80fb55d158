package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of exchange spans
const TracerName = "waifu-exchange"

// Span attribute keys used by the exchange services.
// Metric attributes live in metrics.go as attribute.Key values.
const (
	SpanAttrAccountID      = "account_id"
	SpanAttrCounterpartyID = "counterparty_id"
	SpanAttrCardID         = "card_id"
	SpanAttrQuantity       = "quantity"
	SpanAttrPrice          = "price"
	SpanAttrProposalKind   = "proposal_kind"
	SpanAttrOutcome        = "outcome"
	SpanAttrChatID         = "chat_id"
	SpanAttrRewardCategory = "reward_category"
	SpanAttrErrorCode      = "error.code"
)

// SpanOption configures a span at start
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind  trace.SpanKind
	attrs []attribute.KeyValue
}

// WithAttribute sets an attribute when the span starts
func WithAttribute(key string, value any) SpanOption {
	return func(c *spanConfig) { c.attrs = append(c.attrs, attr(key, value)) }
}

// WithSpanKind overrides the default internal kind
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(c *spanConfig) { c.kind = kind }
}

// StartSpan opens a span on the exchange tracer. Callers must End it.
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	c := spanConfig{kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(&c)
	}
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithSpanKind(c.kind), trace.WithAttributes(c.attrs...))
}

// StartServiceSpan opens a span named "service.method".
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "transfer_engine", "swap_units")
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// SetAttribute is a nil-safe single attribute setter
func SetAttribute(span trace.Span, key string, value any) {
	if span != nil {
		span.SetAttributes(attr(key, value))
	}
}

// SetAttributes takes alternating keys and values. Non-string keys and a
// trailing key without a value are dropped.
func SetAttributes(span trace.Span, kv ...any) {
	if span != nil {
		span.SetAttributes(pairs(kv)...)
	}
}

// AddEvent annotates the span with a timestamped event
func AddEvent(span trace.Span, name string, kv ...any) {
	if span != nil {
		span.AddEvent(name, trace.WithAttributes(pairs(kv)...))
	}
}

// codedError is satisfied by domain errors carrying a stable code
type codedError interface {
	ErrorCode() string
}

// RecordError marks the span failed. A coded error also stamps error.code so
// rejected exchanges can be grouped by reason.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	var coded codedError
	if errors.As(err, &coded) {
		span.SetAttributes(attribute.String(SpanAttrErrorCode, coded.ErrorCode()))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks the span successful
func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SpanFromContext returns the span carried by ctx, or a no-op span
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// GetTraceID returns the active trace id, or ""
func GetTraceID(ctx context.Context) string {
	if id := trace.SpanContextFromContext(ctx).TraceID(); id.IsValid() {
		return id.String()
	}
	return ""
}

// GetSpanID returns the active span id, or ""
func GetSpanID(ctx context.Context) string {
	if id := trace.SpanContextFromContext(ctx).SpanID(); id.IsValid() {
		return id.String()
	}
	return ""
}

func pairs(kv []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			attrs = append(attrs, attr(key, kv[i+1]))
		}
	}
	return attrs
}

func attr(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []int64:
		return attribute.Int64Slice(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
