package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"github.com/waifubot/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the otelgorm plugin and slow query marking
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bound variables; development only
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DBTracingConfigFrom derives the tracing settings from the telemetry section
func DBTracingConfigFrom(cfg config.TelemetryConfig) DBTracingConfig {
	out := DBTracingConfig{
		Enabled:         cfg.Enabled && cfg.DBTraceEnabled,
		LogFullSQL:      cfg.DBLogFullSQL,
		SlowQueryThresh: cfg.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}
	if out.SlowQueryThresh <= 0 {
		out.SlowQueryThresh = 200 * time.Millisecond
	}
	return out
}

// DBTracingPlugin adds a span per ledger query and flags slow or failed ones
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates the plugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm installs otelgorm and the annotation callbacks on db
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := registerAround(db, "waifu_trace", markQueryStart, p.annotate); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

// annotate runs after each statement inside the otelgorm span
func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if elapsed, ok := queryElapsed(ctx); ok && elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

type queryStartKey struct{}

// WithQueryStartTime stamps ctx with the current time as the query start
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartKey{}, time.Now())
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = WithQueryStartTime(db.Statement.Context)
	}
}

func queryElapsed(ctx context.Context) (time.Duration, bool) {
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// registerAround hooks before and after every gorm statement kind
func registerAround(db *gorm.DB, prefix string, before, after func(*gorm.DB)) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register(prefix+":before_create", before),
		cb.Create().After("gorm:create").Register(prefix+":after_create", after),
		cb.Query().Before("gorm:query").Register(prefix+":before_query", before),
		cb.Query().After("gorm:query").Register(prefix+":after_query", after),
		cb.Update().Before("gorm:update").Register(prefix+":before_update", before),
		cb.Update().After("gorm:update").Register(prefix+":after_update", after),
		cb.Delete().Before("gorm:delete").Register(prefix+":before_delete", before),
		cb.Delete().After("gorm:delete").Register(prefix+":after_delete", after),
		cb.Row().Before("gorm:row").Register(prefix+":before_row", before),
		cb.Row().After("gorm:row").Register(prefix+":after_row", after),
		cb.Raw().Before("gorm:raw").Register(prefix+":before_raw", before),
		cb.Raw().After("gorm:raw").Register(prefix+":after_raw", after),
	)
}
