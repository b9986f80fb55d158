package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	accountIDKey contextKey = "account_id"
	chatIDKey    contextKey = "chat_id"
)

// WithContext attaches logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the attached logger, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithAccountID stores the acting chat account in ctx
func WithAccountID(ctx context.Context, accountID int64) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// WithChatID stores the originating chat in ctx
func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, chatIDKey, chatID)
}

// GetRequestID returns the request id, or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetAccountID returns the acting account, or 0
func GetAccountID(ctx context.Context) int64 {
	id, _ := ctx.Value(accountIDKey).(int64)
	return id
}

// GetChatID returns the chat id, or 0
func GetChatID(ctx context.Context) int64 {
	id, _ := ctx.Value(chatIDKey).(int64)
	return id
}

// GetTraceID returns the active trace id, or "" without a valid span
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// Fields returns the correlation fields present in ctx
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetAccountID(ctx); id != 0 {
		fields = append(fields, zap.Int64("account_id", id))
	}
	if id := GetChatID(ctx); id != 0 {
		fields = append(fields, zap.Int64("chat_id", id))
	}
	return fields
}

// L returns the context logger enriched with the correlation fields.
//
//	logger.L(ctx).Info("exchange accepted", zap.String("token", token))
func L(ctx context.Context) *zap.Logger {
	return FromContext(ctx).With(Fields(ctx)...)
}

// For enriches an explicit logger with the correlation fields of ctx
func For(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(Fields(ctx)...)
}
