package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/waifubot/backend/docs"
	appexchange "github.com/waifubot/backend/internal/application/exchange"
	"github.com/waifubot/backend/internal/domain/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/infrastructure/auth"
	"github.com/waifubot/backend/internal/infrastructure/cache"
	"github.com/waifubot/backend/internal/infrastructure/config"
	"github.com/waifubot/backend/internal/infrastructure/event"
	"github.com/waifubot/backend/internal/infrastructure/logger"
	"github.com/waifubot/backend/internal/infrastructure/persistence"
	"github.com/waifubot/backend/internal/infrastructure/telemetry"
	"github.com/waifubot/backend/internal/interfaces/http/handler"
	"github.com/waifubot/backend/internal/interfaces/http/middleware"
	"github.com/waifubot/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Waifu Exchange API
//	@version		1.0
//	@description	Ledger, card catalog and pending exchanges of the waifu card bot

//	@contact.name	API Support

//	@license.name	MIT

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Gateway service token. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry providers are no-ops when disabled
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log := loggerProvider.Bridge(baseLog, cfg.Telemetry.ServiceName, zapcore.InfoLevel)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting waifu exchange backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.OpenDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log).RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("database"), db.Pool(), cfg.Telemetry.DBSlowQueryThresh, log)
		if err != nil {
			log.Warn("Database metrics disabled", zap.Error(err))
		} else {
			if err := dbMetrics.Instrument(db.DB); err != nil {
				log.Warn("Failed to instrument database queries", zap.Error(err))
			}
			defer func() {
				_ = dbMetrics.Close()
			}()
		}
	}

	// Repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	cardRepo := persistence.NewGormCardRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryRepository(db.DB)
	exchangeLogRepo := persistence.NewGormExchangeLogRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Idempotency store backs both callback dedup and audit dedup
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Proposal broker
	broker := cache.NewInMemoryProposalBroker(
		cache.WithBrokerLogger(log),
		cache.WithSweepInterval(cfg.Exchange.SweepInterval),
	)

	// Domain policies from configuration
	roles := exchange.NewStaticRoles(cfg.Bot.OwnerID, cfg.Bot.AdminIDs)
	ttl := exchange.TTLPolicy{Default: cfg.Exchange.ProposalTTL, Gift: cfg.Exchange.GiftTTL}
	rewards := ledger.RewardPolicy{
		ledger.RewardDaily:   {Amount: cfg.Rewards.DailyAmount, Cooldown: cfg.Rewards.DailyCooldown},
		ledger.RewardWeekly:  {Amount: cfg.Rewards.WeeklyAmount, Cooldown: cfg.Rewards.WeeklyCooldown},
		ledger.RewardMonthly: {Amount: cfg.Rewards.MonthlyAmount, Cooldown: cfg.Rewards.MonthlyCooldown},
		ledger.RewardClaim:   {Cooldown: cfg.Rewards.ClaimCooldown, Drop: &ledger.CardDrop{}},
		ledger.RewardCraft: {
			Amount:   cfg.Rewards.CraftBonus,
			Cooldown: cfg.Rewards.CraftCooldown,
			Drop:     &ledger.CardDrop{Rarities: ledger.CraftRarities},
		},
		ledger.RewardMarry: {
			Cooldown: cfg.Rewards.MarryCooldown,
			Drop:     &ledger.CardDrop{Chance: cfg.Rewards.MarryChance, NoVideo: []ledger.Rarity{ledger.RarityCinematicLegend}},
		},
	}

	// Application services
	engine := appexchange.NewTransferEngine(txScope)
	exchangeService := appexchange.NewExchangeService(
		broker, engine, accountRepo, cardRepo, inventoryRepo, roles, ttl, cfg.Exchange.MarketBasePrice,
	)
	exchangeService.SetLogger(log)
	ledgerService := appexchange.NewLedgerService(
		accountRepo, cardRepo, inventoryRepo, txScope, roles, rewards, cfg.Exchange.MarketBasePrice,
	)
	ledgerService.SetLogger(log)
	ledgerService.SetHistoryRepository(exchangeLogRepo)

	if meterProvider.IsEnabled() {
		exchangeMetrics, err := telemetry.NewExchangeMetrics(meterProvider.Meter("exchange"), broker, log)
		if err != nil {
			log.Warn("Exchange metrics disabled", zap.Error(err))
		} else {
			exchangeService.SetMetrics(exchangeMetrics)
			defer func() {
				_ = exchangeMetrics.Close()
			}()
		}
	}

	// Event bus with the audit log subscriber
	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := event.NewIdempotentHandler(
		appexchange.NewAuditHandler(exchangeLogRepo, log),
		idempotencyStore,
		log,
		event.WithKeyPrefix("audit:"),
		event.WithTTL(cfg.Exchange.IdempotencyTTL),
	)
	eventBus.Subscribe(auditHandler)
	log.Info("Event handlers registered", zap.Strings("audit_events", auditHandler.EventTypes()))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	exchangeService.SetEventPublisher(eventBus)
	ledgerService.SetEventPublisher(eventBus)

	// Expired proposals are reported by the sweep
	broker.SetExpiryHandler(exchangeService.HandleExpired)
	broker.Start()
	defer func() {
		_ = broker.Close()
	}()
	log.Info("Proposal broker started",
		zap.Duration("sweep_interval", cfg.Exchange.SweepInterval),
		zap.Duration("proposal_ttl", cfg.Exchange.ProposalTTL),
		zap.Duration("gift_ttl", cfg.Exchange.GiftTTL),
	)

	// Gateway authentication
	jwtService := auth.NewJWTService(cfg.JWT)
	revocations := newRevocationList(cfg.Redis, log)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	ginEngine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order:
	// 1. RequestID so every later log line and error carries it
	// 2. Tracing opens the server span, SpanErrorMarker closes over it
	// 3. Recovery and access log
	// 4. Security headers, CORS, body limit, metrics
	ginEngine.Use(middleware.RequestID())
	ginEngine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	ginEngine.Use(middleware.SpanErrorMarker())
	ginEngine.Use(logger.Recovery(log))
	ginEngine.Use(logger.GinMiddleware(log))
	ginEngine.Use(middleware.Secure())
	ginEngine.Use(middleware.CORS(middleware.CORSConfigFrom(cfg.HTTP)))
	ginEngine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	ginEngine.Use(middleware.HTTPMetrics(meterProvider, log))

	authConfig := middleware.DefaultGatewayAuthConfig(jwtService)
	authConfig.Revocations = revocations
	authConfig.Logger = log

	r := router.NewRouter(ginEngine, router.WithAPIVersion("v1"))
	r.Use(middleware.GatewayAuth(authConfig), middleware.SpanAttributes())
	router.RegisterAPI(r, router.Handlers{
		Ledger:   handler.NewLedgerHandler(ledgerService),
		Exchange: handler.NewExchangeHandler(exchangeService),
		Health:   handler.NewHealthHandler(db, broker, version),
	}, middleware.Idempotency(idempotencyStore, cfg.Exchange.IdempotencyTTL, log))
	r.MountDocs(middleware.SwaggerProtection(cfg.Swagger, middleware.GatewayAuth(authConfig)))
	log.Info("API routes mounted", zap.Strings("routes", r.Mounted()))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newRevocationList shares revocations through Redis when it is enabled and
// reachable, and keeps them in memory otherwise
func newRevocationList(cfg config.RedisConfig, log *zap.Logger) auth.RevocationList {
	if !cfg.Enabled {
		return auth.NewInMemoryRevocationList()
	}
	list, err := auth.NewRedisRevocationList(cfg)
	if err != nil {
		log.Warn("Redis unavailable, token revocations are process local", zap.Error(err))
		return auth.NewInMemoryRevocationList()
	}
	return list
}
