package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	intgapp "github.com/pazarsync/backend/internal/application/integration"
	syncapp "github.com/pazarsync/backend/internal/application/sync"
	webhookapp "github.com/pazarsync/backend/internal/application/webhook"
	"github.com/pazarsync/backend/internal/domain/shared"
	"github.com/pazarsync/backend/internal/infrastructure/auth"
	"github.com/pazarsync/backend/internal/infrastructure/cache"
	"github.com/pazarsync/backend/internal/infrastructure/config"
	"github.com/pazarsync/backend/internal/infrastructure/connectors"
	"github.com/pazarsync/backend/internal/infrastructure/logger"
	"github.com/pazarsync/backend/internal/infrastructure/persistence"
	"github.com/pazarsync/backend/internal/infrastructure/resilience"
	"github.com/pazarsync/backend/internal/infrastructure/scheduler"
	"github.com/pazarsync/backend/internal/infrastructure/telemetry"
	"github.com/pazarsync/backend/internal/infrastructure/vault"
	"github.com/pazarsync/backend/internal/interfaces/http/handler"
	"github.com/pazarsync/backend/internal/interfaces/http/middleware"
	"github.com/pazarsync/backend/internal/interfaces/http/router"
)

// version is injected at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting PazarSync Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Initialize database connection
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Webhook dedup store: Redis when reachable, in-process fallback otherwise.
	// The durable webhook_events table backs both, so the fallback only widens
	// the redelivery window.
	var dedupStore shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory webhook dedup", zap.Error(err))
		dedupStore = cache.NewInMemoryIdempotencyStore()
	} else {
		dedupStore = redisStore
		defer func() {
			if err := redisStore.Close(); err != nil {
				log.Error("Error closing redis", zap.Error(err))
			}
		}()
		log.Info("Redis connected successfully")
	}

	// Initialize repositories
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	syncJobRepo := persistence.NewGormSyncJobRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	breakerRepo := persistence.NewGormBreakerStateRepository(db.DB)
	credentialRepo := persistence.NewGormCredentialRecordRepository(db.DB)
	webhookEventRepo := persistence.NewGormWebhookEventRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderImportRepo := persistence.NewGormOrderImportRepository(db.DB)

	// Credential vault
	credentialVault, err := vault.NewAESVault(cfg.Vault.MasterKey, credentialRepo, log)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	// Platform connectors. Empty URLs and nil clients select production
	// defaults; sandbox hosts are derived from the credential handle.
	connectorRegistry := connectors.NewRegistry(
		connectors.NewTrendyolConnector("", nil),
		connectors.NewHepsiburadaConnector("", nil),
		connectors.NewN11Connector("", nil),
		connectors.NewAmazonSPConnector("", "", nil),
		connectors.NewIyzicoConnector("", nil),
	)

	// Resilience policy around every outbound platform call
	invoker := resilience.NewInvoker(resilience.Config{
		Breaker: resilience.BreakerConfig{
			Threshold:  cfg.Resilience.BreakerThreshold,
			ProbeDelay: cfg.Resilience.BreakerProbeDelay,
			MaxDelay:   cfg.Resilience.BreakerMaxDelay,
		},
		Limiter: resilience.LimiterConfig{
			PerSecond:      cfg.Resilience.RateLimitPerSecond,
			Burst:          cfg.Resilience.RateLimitBurst,
			AcquireTimeout: cfg.Resilience.AcquireTimeout,
		},
		Retry: resilience.RetryConfig{
			MaxAttempts: cfg.Resilience.RetryMaxAttempts,
			BaseDelay:   cfg.Resilience.RetryBaseDelay,
			MaxDelay:    cfg.Resilience.RetryMaxDelay,
		},
	}, log)

	// Restore circuit state from the last run so a restart does not hammer a
	// platform that was already failing.
	if records, err := breakerRepo.FindAll(context.Background()); err != nil {
		log.Warn("Failed to restore breaker state", zap.Error(err))
	} else if len(records) > 0 {
		invoker.Restore(records)
		log.Info("Breaker state restored", zap.Int("count", len(records)))
	}

	breakerFlushStop := make(chan struct{})
	breakerFlushDone := make(chan struct{})
	go persistBreakers(invoker, breakerRepo, cfg.Resilience.PersistenceInterval, breakerFlushStop, breakerFlushDone, log)
	defer func() {
		close(breakerFlushStop)
		<-breakerFlushDone
	}()

	// Sync orchestrator
	orchestrator := syncapp.NewOrchestrator(syncapp.Config{
		GlobalConcurrency:         cfg.Sync.GlobalConcurrency,
		PerIntegrationConcurrency: cfg.Sync.PerTargetConcurrency,
		PageSize:                  cfg.Sync.PageSize,
		OrderWindow:               cfg.Sync.OrderWindow,
		HistorySize:               cfg.Sync.JobHistorySize,
	},
		integrationRepo, mappingRepo, syncJobRepo, syncLogRepo,
		connectorRegistry, credentialVault, invoker,
		productRepo, orderImportRepo, log)

	// Webhook ingestion with the background re-dispatch sweep
	webhookService := webhookapp.NewService(webhookapp.Config{
		DedupTTL:      cfg.Webhook.DedupTTL,
		SweepInterval: cfg.Webhook.SweepInterval,
		SweepAge:      cfg.Webhook.SweepAge,
		SweepBatch:    cfg.Webhook.SweepBatch,
	}, integrationRepo, connectorRegistry, credentialVault, webhookEventRepo, dedupStore, log)
	webhookService.RegisterHandler(webhookapp.NewOrderEventHandler(mappingRepo, log))
	webhookService.Start()
	defer webhookService.Stop()

	// Unattended delta pushes and order pulls
	if cfg.Scheduler.Enabled {
		syncScheduler := scheduler.NewSyncScheduler(scheduler.Config{
			DeltaInterval:     cfg.Scheduler.DeltaInterval,
			OrderPullInterval: cfg.Scheduler.OrderPullInterval,
		}, orchestrator, log)
		syncScheduler.Start()
		defer syncScheduler.Stop()
		log.Info("Sync scheduler started",
			zap.Duration("delta_interval", cfg.Scheduler.DeltaInterval),
			zap.Duration("order_pull_interval", cfg.Scheduler.OrderPullInterval),
		)
	}

	// Integration management
	integrationService := intgapp.NewService(
		integrationRepo, credentialVault, connectorRegistry, invoker, invoker, syncLogRepo, log)

	// Initialize HTTP handlers
	integrationHandler := handler.NewIntegrationHandler(integrationService)
	syncHandler := handler.NewSyncHandler(orchestrator)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	systemHandler := handler.NewSystemHandler(version,
		handler.ReadinessCheck{Name: "database", Probe: func(ctx context.Context) error {
			return db.Ping()
		}},
		handler.ReadinessCheck{Name: "dedup_store", Probe: func(ctx context.Context) error {
			_, err := dedupStore.IsProcessed(ctx, "readiness-probe")
			return err
		}},
	)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: request ID first so every later stage can log it,
	// recovery before anything that can panic, auth last before routing.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.SpanErrorMarker())
	}

	// Bearer auth on the admin API. Webhook ingest and the probe endpoints
	// stay open: platforms authenticate deliveries with payload signatures.
	if cfg.JWT.Secret != "" {
		jwtService := auth.NewJWTService(cfg.JWT)
		jwtConfig := middleware.DefaultJWTConfig(jwtService)
		jwtConfig.Logger = log
		engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
	} else {
		log.Warn("JWT secret not configured, admin API is unauthenticated")
	}

	// Webhook ingest lives at the engine root, outside API versioning, so
	// platform callback URLs survive API version bumps.
	webhookHandler.RegisterRoutes(&engine.RouterGroup)
	systemHandler.RegisterRootRoutes(engine)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(systemHandler).
		Register(integrationHandler).
		Register(syncHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// persistBreakers flushes circuit snapshots on a fixed interval and once more
// on shutdown, so restored state is at most one interval stale.
func persistBreakers(
	invoker *resilience.Invoker,
	repo *persistence.GormBreakerStateRepository,
	interval time.Duration,
	stop <-chan struct{},
	done chan<- struct{},
	log *zap.Logger,
) {
	defer close(done)

	flush := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, record := range invoker.Snapshots() {
			if err := repo.Save(ctx, record); err != nil {
				log.Warn("Failed to persist breaker state",
					zap.String("integration_id", record.IntegrationID.String()),
					zap.Error(err))
			}
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			flush()
			return
		case <-ticker.C:
			flush()
		}
	}
}
