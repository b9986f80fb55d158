package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Exchange  ExchangeConfig
	Bot       BotConfig
	Rewards   RewardsConfig
	Swagger   SwaggerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings.
// Redis only backs callback deduplication; without it an in-memory store is used.
type RedisConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Password        string
	DB              int
	BreakerFailures int           // consecutive failures before the breaker opens
	BreakerTimeout  time.Duration // how long the breaker stays open
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds settings for the service tokens presented by the chat gateway
type JWTConfig struct {
	Secret          string
	Issuer          string
	TokenExpiration time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// SwaggerConfig controls the /swagger API documentation endpoint
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool     // demand a gateway token like the versioned API
	AllowedIPs  []string // IPs or CIDRs, empty = any
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	LogsEnabled       bool // Export zap logs over OTLP as well
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// ExchangeConfig holds pending-exchange and marketplace settings
type ExchangeConfig struct {
	ProposalTTL     time.Duration // lifetime of trade, purchase and admin proposals
	GiftTTL         time.Duration // lifetime of gift proposals, 0 = never expire
	SweepInterval   time.Duration // how often expired proposals are dropped
	MarketBasePrice int64
	IdempotencyTTL  time.Duration // how long callback ids are remembered
}

// BotConfig holds the privileged accounts
type BotConfig struct {
	OwnerID  int64
	AdminIDs []int64
}

// RewardsConfig holds periodic reward payouts and cooldowns
type RewardsConfig struct {
	DailyAmount     int64
	WeeklyAmount    int64
	MonthlyAmount   int64
	DailyCooldown   time.Duration
	WeeklyCooldown  time.Duration
	MonthlyCooldown time.Duration
	// Card rewards
	ClaimCooldown time.Duration
	CraftCooldown time.Duration
	CraftBonus    int64   // daily crystals paid with a craft card
	MarryCooldown time.Duration
	MarryChance   float64 // probability a marry draw is kept
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with WAIFU_ prefix (e.g., WAIFU_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("WAIFU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	adminIDs, err := parseIDList(v.Get("bot.admin_ids"))
	if err != nil {
		return nil, fmt.Errorf("bot.admin_ids: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:         v.GetBool("redis.enabled"),
			Host:            v.GetString("redis.host"),
			Port:            v.GetInt("redis.port"),
			Password:        v.GetString("redis.password"),
			DB:              v.GetInt("redis.db"),
			BreakerFailures: v.GetInt("redis.breaker_failures"),
			BreakerTimeout:  v.GetDuration("redis.breaker_timeout"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			Issuer:          v.GetString("jwt.issuer"),
			TokenExpiration: v.GetDuration("jwt.token_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Exchange: ExchangeConfig{
			ProposalTTL:     v.GetDuration("exchange.proposal_ttl"),
			GiftTTL:         v.GetDuration("exchange.gift_ttl"),
			SweepInterval:   v.GetDuration("exchange.sweep_interval"),
			MarketBasePrice: v.GetInt64("exchange.market_base_price"),
			IdempotencyTTL:  v.GetDuration("exchange.idempotency_ttl"),
		},
		Bot: BotConfig{
			OwnerID:  v.GetInt64("bot.owner_id"),
			AdminIDs: adminIDs,
		},
		Rewards: RewardsConfig{
			DailyAmount:     v.GetInt64("rewards.daily_amount"),
			WeeklyAmount:    v.GetInt64("rewards.weekly_amount"),
			MonthlyAmount:   v.GetInt64("rewards.monthly_amount"),
			DailyCooldown:   v.GetDuration("rewards.daily_cooldown"),
			WeeklyCooldown:  v.GetDuration("rewards.weekly_cooldown"),
			MonthlyCooldown: v.GetDuration("rewards.monthly_cooldown"),
			ClaimCooldown:   v.GetDuration("rewards.claim_cooldown"),
			CraftCooldown:   v.GetDuration("rewards.craft_cooldown"),
			CraftBonus:      v.GetInt64("rewards.craft_bonus"),
			MarryCooldown:   v.GetDuration("rewards.marry_cooldown"),
			MarryChance:     v.GetFloat64("rewards.marry_chance"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseIDList accepts a TOML array or a comma separated env string
func parseIDList(raw any) ([]int64, error) {
	var parts []string
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		parts = strings.Split(val, ",")
	case []any:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	case []int64:
		return val, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", raw)
	}

	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "waifu-exchange"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "waifu"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.BreakerFailures == 0 {
		cfg.Redis.BreakerFailures = 5
	}
	if cfg.Redis.BreakerTimeout == 0 {
		cfg.Redis.BreakerTimeout = 30 * time.Second
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "waifu-gateway"
	}
	if cfg.JWT.TokenExpiration == 0 {
		cfg.JWT.TokenExpiration = 24 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "waifu-exchange"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	// GiftTTL stays 0: gifts wait until answered
	if cfg.Exchange.ProposalTTL == 0 {
		cfg.Exchange.ProposalTTL = 5 * time.Minute
	}
	if cfg.Exchange.SweepInterval == 0 {
		cfg.Exchange.SweepInterval = time.Minute
	}
	if cfg.Exchange.MarketBasePrice == 0 {
		cfg.Exchange.MarketBasePrice = 150000
	}
	if cfg.Exchange.IdempotencyTTL == 0 {
		cfg.Exchange.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Rewards.DailyAmount == 0 {
		cfg.Rewards.DailyAmount = 5000
	}
	if cfg.Rewards.WeeklyAmount == 0 {
		cfg.Rewards.WeeklyAmount = 25000
	}
	if cfg.Rewards.MonthlyAmount == 0 {
		cfg.Rewards.MonthlyAmount = 50000
	}
	if cfg.Rewards.DailyCooldown == 0 {
		cfg.Rewards.DailyCooldown = 24 * time.Hour
	}
	if cfg.Rewards.WeeklyCooldown == 0 {
		cfg.Rewards.WeeklyCooldown = 7 * 24 * time.Hour
	}
	if cfg.Rewards.MonthlyCooldown == 0 {
		cfg.Rewards.MonthlyCooldown = 30 * 24 * time.Hour
	}
	if cfg.Rewards.ClaimCooldown == 0 {
		cfg.Rewards.ClaimCooldown = 24 * time.Hour
	}
	if cfg.Rewards.CraftCooldown == 0 {
		cfg.Rewards.CraftCooldown = 24 * time.Hour
	}
	if cfg.Rewards.CraftBonus == 0 {
		cfg.Rewards.CraftBonus = 10000
	}
	if cfg.Rewards.MarryCooldown == 0 {
		cfg.Rewards.MarryCooldown = 2 * time.Minute
	}
	if cfg.Rewards.MarryChance == 0 {
		cfg.Rewards.MarryChance = 0.7
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Exchange.ProposalTTL < 0 || c.Exchange.GiftTTL < 0 {
		return fmt.Errorf("exchange ttl values cannot be negative")
	}
	if c.Exchange.MarketBasePrice < 0 {
		return fmt.Errorf("exchange.market_base_price cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Rewards.MarryChance < 0.0 || c.Rewards.MarryChance > 1.0 {
		return fmt.Errorf("rewards.marry_chance must be between 0.0 and 1.0, got %f", c.Rewards.MarryChance)
	}
	if c.Rewards.CraftBonus < 0 {
		return fmt.Errorf("rewards.craft_bonus cannot be negative")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Bot.OwnerID == 0 {
			return fmt.Errorf("bot.owner_id is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
