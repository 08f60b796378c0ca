package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/freightmarket/backend/docs"
	marketplaceapp "github.com/freightmarket/backend/internal/application/marketplace"
	profileapp "github.com/freightmarket/backend/internal/application/profile"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/auth"
	"github.com/freightmarket/backend/internal/infrastructure/cache"
	"github.com/freightmarket/backend/internal/infrastructure/config"
	"github.com/freightmarket/backend/internal/infrastructure/event"
	"github.com/freightmarket/backend/internal/infrastructure/logger"
	"github.com/freightmarket/backend/internal/infrastructure/notification"
	"github.com/freightmarket/backend/internal/infrastructure/persistence"
	"github.com/freightmarket/backend/internal/infrastructure/storage"
	"github.com/freightmarket/backend/internal/infrastructure/telemetry"
	"github.com/freightmarket/backend/internal/interfaces/http/handler"
	"github.com/freightmarket/backend/internal/interfaces/http/middleware"
	"github.com/freightmarket/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Freight Marketplace API
//	@version		1.0
//	@description	Load posting, bidding, allocation and booking lifecycle for a freight marketplace

//	@contact.name	API Support
//	@contact.url	https://github.com/freightmarket/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(rootCtx, cfg.Telemetry, version, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := providers.Logs.Bridge(baseLog, zapcore.InfoLevel)
	defer func() {
		_ = logger.Sync(log)
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	log.Info("Starting freight marketplace",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.Server.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.GormLevel),
		logger.WithSlowThreshold(cfg.Log.SlowThreshold))
	db, err := persistence.Open(rootCtx, &cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:               cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		IncludeQueryVariables: !cfg.App.IsProduction(),
		SlowQueryThreshold:    cfg.Log.SlowThreshold,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, providers.Meter, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	defer func() { _ = dbMetrics.Stop() }()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(rootCtx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	loadRepo := persistence.NewGormLoadRepository(db.DB)
	bidRepo := persistence.NewGormBidRepository(db.DB)
	bookingRepo := persistence.NewGormBookingRepository(db.DB)
	profileRepo := persistence.NewGormProfileRepository(db.DB)
	allocationStore := persistence.NewGormAllocationStore(db.DB)
	bookingStore := persistence.NewGormBookingStore(db.DB)

	// Profile counters consume booking events at most once per instance group
	eventBus := event.NewInMemoryEventBus(log)
	idempotency := cache.NewIdempotencyStore(redisClient, log)
	deliveries := &event.DeliveryCounts{}
	for consumer, h := range map[string]shared.EventHandler{
		"profile.booking_completed": profileapp.NewBookingCompletedHandler(profileRepo, log),
		"profile.rating_submitted":  profileapp.NewRatingSubmittedHandler(profileRepo, bookingRepo, log),
	} {
		wrapped := event.NewIdempotentHandler(consumer, h, idempotency, log,
			event.WithCounts(deliveries))
		eventBus.Subscribe(wrapped)
		log.Info("Event handler registered",
			zap.String("consumer", consumer),
			zap.Strings("event_types", wrapped.EventTypes()),
		)
	}
	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// With Redis every instance relays the channel into its local hub,
	// so publishing replaces direct hub delivery.
	hub := notification.NewHub(log)
	defer hub.Close()
	sinks := notification.Tee{notification.NewLogSink(log)}
	if redisClient != nil {
		sinks = append(sinks, notification.NewRedisPublisher(redisClient))
		relay := notification.NewRedisRelay(redisClient, hub, log)
		go func() {
			if err := relay.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Notification relay stopped", zap.Error(err))
			}
		}()
	} else {
		sinks = append(sinks, hub)
	}
	notifier := notification.NewNotifier(sinks)

	marketCfg := marketplaceapp.Config{
		BidExpiry:          cfg.Marketplace.BidExpiry,
		CounterOfferExpiry: cfg.Marketplace.CounterOfferExpiry,
		DefaultCurrency:    cfg.Marketplace.DefaultCurrency,
		UploadURLExpiry:    cfg.Marketplace.UploadURLExpiry,
	}
	loadService := marketplaceapp.NewLoadService(loadRepo, allocationStore, log)
	bidService := marketplaceapp.NewBidService(loadRepo, bidRepo, allocationStore, profileRepo, marketCfg, log)
	allocationService := marketplaceapp.NewAllocationService(loadRepo, bidRepo, allocationStore, profileRepo, log)
	bookingService := marketplaceapp.NewBookingService(bookingRepo, loadRepo, bookingStore, profileRepo, marketCfg, log)
	profileService := profileapp.NewProfileService(profileRepo, log)

	marketMetrics, err := telemetry.NewMarketplaceMetrics(telemetry.MarketplaceMetricsConfig{
		Meter:           providers.Meter.Meter("marketplace"),
		Logger:          log,
		CollectInterval: cfg.Marketplace.OpenLoadsInterval,
		LoadProvider:    loadRepo,
	})
	if err != nil {
		log.Fatal("Failed to initialize marketplace metrics", zap.Error(err))
	}
	if providers.Meter.IsEnabled() {
		marketMetrics.StartPeriodicCollection(rootCtx)
		defer marketMetrics.Stop()
	}

	for _, svc := range []interface {
		SetEventPublisher(shared.EventPublisher)
		SetNotifier(marketplaceapp.Notifier)
		SetMarketplaceMetrics(*telemetry.MarketplaceMetrics)
	}{loadService, bidService, allocationService, bookingService} {
		svc.SetEventPublisher(eventBus)
		svc.SetNotifier(notifier)
		svc.SetMarketplaceMetrics(marketMetrics)
	}

	if cfg.Storage.Enabled {
		objectStorage, err := storage.NewDocumentStore(&cfg.Storage, log, cfg.Marketplace.UploadURLExpiry)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := objectStorage.EnsureBucket(rootCtx); err != nil {
			log.Fatal("Failed to prepare storage bucket", zap.Error(err), zap.String("bucket", objectStorage.Bucket()))
		}
		bookingService.SetObjectStorage(objectStorage)
		log.Info("Object storage ready", zap.String("bucket", objectStorage.Bucket()))
	} else {
		log.Warn("Object storage disabled, proof-of-delivery uploads are unavailable")
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit)
		go rateLimiter.Run(rootCtx)
	}

	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	middleware.SetupValidator()
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.NewEngine(router.EngineConfig{
		Server:           cfg.Server,
		Swagger:          cfg.Swagger,
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   providers.Tracer.IsEnabled(),
		ProfilingEnabled: providers.Profiler.IsEnabled(),
		JWTService:       auth.NewJWTService(cfg.JWT),
		MeterProvider:    providers.Meter,
		RateLimiter:      rateLimiter,
		Logger:           log,
	}, router.Handlers{
		System:        handler.NewSystemHandler(cfg.App.Name, version, checks).TrackDeliveries(deliveries),
		Loads:         handler.NewLoadHandler(loadService),
		Bids:          handler.NewBidHandler(bidService, allocationService),
		Bookings:      handler.NewBookingHandler(bookingService),
		Profiles:      handler.NewProfileHandler(profileService),
		Notifications: handler.NewNotificationHandler(hub, cfg.Server.CORSAllowOrigins),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	case <-rootCtx.Done():
		log.Info("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}
