package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/waifubot/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// pingTimeout bounds health pings so a stuck pool cannot hang /health
const pingTimeout = 3 * time.Second

// Database owns the ledger's postgres pool
type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

// DatabaseOption tweaks the gorm session opened by OpenDatabase
type DatabaseOption func(*gorm.Config)

// WithGormLogger routes SQL logging through l
func WithGormLogger(l gormlogger.Interface) DatabaseOption {
	return func(c *gorm.Config) { c.Logger = l }
}

// OpenDatabase connects to postgres, sizes the pool from cfg and verifies the
// connection. Every ledger write runs in an explicit transaction, so gorm's
// implicit per-statement transaction is turned off.
func OpenDatabase(cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	d, err := newDatabase(db)
	if err != nil {
		return nil, err
	}
	configurePool(d.sql, cfg)

	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func configurePool(pool *sql.DB, cfg *config.DatabaseConfig) {
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

// newDatabase wraps an already opened gorm session
func newDatabase(db *gorm.DB) (*Database, error) {
	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap postgres pool: %w", err)
	}
	return &Database{DB: db, sql: pool}, nil
}

// Pool exposes the underlying sql.DB for pool metrics
func (d *Database) Pool() *sql.DB { return d.sql }

// Ping reports whether postgres answers within pingTimeout
func (d *Database) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := d.sql.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.sql.Close()
}
