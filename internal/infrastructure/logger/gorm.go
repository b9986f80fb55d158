package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowThreshold marks a ledger query as slow
const DefaultSlowThreshold = 200 * time.Millisecond

// GormLogger writes gorm statements to zap with the request's correlation
// fields. Row-locking reads are tagged so lock waits in the transfer engine
// can be told apart from plain slow reads.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	logNotFound   bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged at
// warn. Zero disables slow-query logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError controls whether gorm.ErrRecordNotFound is
// logged. Lookups of absent accounts are routine, so it is ignored by default.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.logNotFound = !ignore
	}
}

// NewGormLogger creates a gorm logger writing to a "gorm" child of zapLogger
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: DefaultSlowThreshold,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode returns a copy at level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...), Fields(ctx)...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...), Fields(ctx)...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...), Fields(ctx)...)
	}
}

// Trace logs failed statements at error, slow ones at warn and the rest at debug
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && !l.logNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := append([]zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}, Fields(ctx)...)
	if isLockingRead(sql) {
		fields = append(fields, zap.Bool("row_lock", true))
	}

	switch {
	case err != nil:
		if l.level >= gormlogger.Error {
			l.logger.Error("query failed", append(fields, zap.Error(err))...)
		}
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		if l.level >= gormlogger.Warn {
			l.logger.Warn("slow query", append(fields, zap.Duration("threshold", l.slowThreshold))...)
		}
	case l.level >= gormlogger.Info:
		l.logger.Debug("query", fields...)
	}
}

func isLockingRead(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "FOR UPDATE")
}

// MapGormLogLevel maps the application log level to a gorm level. Debug and
// info both trace every statement.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
