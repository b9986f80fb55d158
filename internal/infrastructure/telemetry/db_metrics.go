package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics records ledger query latency and connection pool usage
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	poolConns      metric.Int64ObservableGauge
	poolMax        metric.Int64ObservableGauge
	registration   metric.Registration
	slowThreshold  time.Duration
	logger         *zap.Logger
}

// NewDBMetrics creates the instruments. When sqlDB is not nil the pool
// statistics are observed on every collection.
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	m := &DBMetrics{slowThreshold: slowThreshold, logger: logger}

	var err error
	if m.queryTotal, err = NewCounter(meter, "db_query_total",
		"Ledger queries by operation and table", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Ledger query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total",
		"Ledger queries over the slow threshold", "{query}"); err != nil {
		return nil, err
	}

	if sqlDB == nil {
		return m, nil
	}
	if m.poolConns, err = meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"), metric.WithUnit("{connection}")); err != nil {
		return nil, fmt.Errorf("failed to create pool gauge: %w", err)
	}
	if m.poolMax, err = meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"), metric.WithUnit("{connection}")); err != nil {
		return nil, fmt.Errorf("failed to create pool max gauge: %w", err)
	}
	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(m.poolConns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(m.poolConns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(m.poolMax, int64(stats.MaxOpenConnections))
		return nil
	}, m.poolConns, m.poolMax)
	if err != nil {
		return nil, fmt.Errorf("failed to register pool callback: %w", err)
	}
	return m, nil
}

// RecordQuery records one finished statement
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration, err error) {
	status := "ok"
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		status = "error"
	}
	attrs := []attribute.KeyValue{
		AttrDBOperation.String(operation),
		AttrDBTable.String(table),
	}
	m.queryTotal.Inc(ctx, append(attrs, attribute.String("status", status))...)
	m.queryDuration.RecordDuration(ctx, duration, attrs...)
	if duration > m.slowThreshold {
		m.slowQueryTotal.Inc(ctx, attrs...)
	}
}

// Instrument hooks the query callbacks on db
func (m *DBMetrics) Instrument(db *gorm.DB) error {
	return registerAround(db, "waifu_metrics", markQueryStart, func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			return
		}
		elapsed, ok := queryElapsed(ctx)
		if !ok {
			return
		}
		m.RecordQuery(ctx, operationOf(tx), tx.Statement.Table, elapsed, tx.Error)
	})
}

// Close unregisters the pool callback
func (m *DBMetrics) Close() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}

func operationOf(tx *gorm.DB) string {
	if sqlText := tx.Statement.SQL.String(); len(sqlText) >= 6 {
		switch verb := strings.ToUpper(sqlText[:6]); verb {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			return verb
		}
	}
	return "OTHER"
}
