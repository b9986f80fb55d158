package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedCard struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedCard{}))
	return db
}

func TestDBTracingConfigFrom(t *testing.T) {
	cfg := DBTracingConfigFrom(config.TelemetryConfig{Enabled: true, DBTraceEnabled: true})
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)

	assert.False(t, DBTracingConfigFrom(config.TelemetryConfig{DBTraceEnabled: true}).Enabled,
		"database tracing needs telemetry enabled")
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := openTestDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{}, zaptest.NewLogger(t))

	require.NoError(t, plugin.RegisterOtelGorm(db))
	assert.Nil(t, db.Callback().Query().Get("waifu_trace:after_query"))
}

func TestDBTracingPlugin_Annotate(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	db := openTestDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond, DBSystem: "sqlite"}, zaptest.NewLogger(t))
	require.NoError(t, registerAround(db, "test_trace", markQueryStart, plugin.annotate))

	ctx, span := tp.Tracer("test").Start(context.Background(), "ledger")
	require.NoError(t, db.WithContext(ctx).Create(&tracedCard{ID: 1, Name: "Rem"}).Error)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := map[string]any{}
	for _, a := range spans[0].Attributes() {
		attrs[string(a.Key)] = a.Value.AsInterface()
	}
	assert.Equal(t, int64(1), attrs["db.rows_affected"])
	assert.Equal(t, "traced_cards", attrs["db.sql.table"])
	assert.Equal(t, true, attrs["db.slow_query"])
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "slow_query_warning", spans[0].Events()[0].Name)
}

func TestDBTracingPlugin_AnnotateError(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	db := openTestDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Hour}, zaptest.NewLogger(t))
	require.NoError(t, registerAround(db, "test_trace", markQueryStart, plugin.annotate))

	ctx, span := tp.Tracer("test").Start(context.Background(), "ledger")
	var missing tracedCard
	err := db.WithContext(ctx).First(&missing, 404).Error
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	err = db.WithContext(ctx).Exec("SELECT * FROM no_such_table").Error
	assert.Error(t, err)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Len(t, ended[0].Events(), 1, "record not found is not an error")
}

func TestDBTracingPlugin_RegisterOtelGorm(t *testing.T) {
	db := openTestDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Second, DBSystem: "sqlite"}, zaptest.NewLogger(t))

	require.NoError(t, plugin.RegisterOtelGorm(db))
	assert.NotNil(t, db.Callback().Query().Get("waifu_trace:after_query"))
	require.NoError(t, db.Create(&tracedCard{ID: 2, Name: "Ram"}).Error)
}
