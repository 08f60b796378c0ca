package router

import (
	"net/http"
	"time"

	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/auth"
	"github.com/freightmarket/backend/internal/infrastructure/config"
	"github.com/freightmarket/backend/internal/infrastructure/logger"
	"github.com/freightmarket/backend/internal/infrastructure/telemetry"
	"github.com/freightmarket/backend/internal/interfaces/http/dto"
	"github.com/freightmarket/backend/internal/interfaces/http/handler"
	"github.com/freightmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// EngineConfig holds what the middleware stack needs
type EngineConfig struct {
	Server           config.ServerConfig
	Swagger          config.SwaggerConfig
	ServiceName      string
	TracingEnabled   bool
	ProfilingEnabled bool
	JWTService       *auth.JWTService
	MeterProvider    *telemetry.MeterProvider // nil disables HTTP metrics
	RateLimiter      *middleware.RateLimiter  // nil disables rate limiting
	Logger           *zap.Logger
}

// Handlers groups the HTTP handlers mounted by NewEngine
type Handlers struct {
	System        *handler.SystemHandler
	Loads         *handler.LoadHandler
	Bids          *handler.BidHandler
	Bookings      *handler.BookingHandler
	Profiles      *handler.ProfileHandler
	Notifications *handler.NotificationHandler
}

// NewEngine builds the gin engine with the full middleware stack and every route.
//
// Engine-wide, in order: RequestID, access log, panic recovery, security
// headers, CORS, body limit, tracing, span error marking, HTTP metrics.
// Versioned API routes then add: JWT, rate limiting, span attributes, profiling labels.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.Server.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.Server.CORSAllowOrigins
	}
	if len(cfg.Server.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.Server.CORSAllowMethods
	}
	if len(cfg.Server.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.Server.CORSAllowHeaders
	}
	cors.MaxAge = 12 * time.Hour

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log, "/health", apiPrefix+"/system/ping"),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
	)
	if cfg.Server.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.Server.MaxBodySize))
	}
	engine.Use(middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled)...)
	engine.Use(middleware.HTTPMetrics(cfg.MeterProvider))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	jwtConfig := middleware.DefaultJWTConfig(cfg.JWTService)
	jwtConfig.SkipPathPrefixes = []string{apiPrefix + "/system/"}
	jwtConfig.Logger = log

	// Browsers cannot set headers on a websocket handshake.
	wsConfig := jwtConfig
	wsConfig.AllowQueryToken = true
	if h.Notifications != nil {
		engine.GET("/ws/notifications", middleware.JWTAuthMiddlewareWithConfig(wsConfig), h.Notifications.Stream)
	}

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger, middleware.JWTAuthMiddlewareWithConfig(jwtConfig)),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := []gin.HandlerFunc{middleware.JWTAuthMiddlewareWithConfig(jwtConfig)}
	if cfg.RateLimiter != nil {
		api = append(api, middleware.RateLimit(cfg.RateLimiter))
	}
	api = append(api,
		middleware.SpanIdentity(),
		middleware.Profiling(cfg.ProfilingEnabled),
	)

	mountAPI(engine, api, resources(h))

	return engine
}

// resources declares the versioned API surface
func resources(h Handlers) []*resource {
	owner := middleware.RequireRole(shared.RoleCargoOwner)
	driver := middleware.RequireRole(shared.RoleDriver)

	var out []*resource

	if h.System != nil {
		out = append(out, newResource("/system").
			get("/info", h.System.GetSystemInfo).
			get("/ping", h.System.Ping))
	}

	if h.Loads != nil && h.Bids != nil {
		out = append(out, newResource("/loads").
			post("", owner, h.Loads.Create).
			get("", h.Loads.List).
			get("/:id", h.Loads.GetByID).
			post("/:id/cancel", owner, h.Loads.Cancel).
			post("/:id/close", owner, h.Loads.Close).
			post("/:id/bids", driver, h.Bids.Submit).
			get("/:id/bids", h.Bids.ListForLoad).
			get("/:id/bids/analysis", h.Bids.Analysis))

		out = append(out, newResource("/bids").
			get("/:id", h.Bids.GetByID).
			post("/:id/view", owner, h.Bids.MarkViewed).
			post("/:id/review", owner, h.Bids.Review).
			post("/:id/shortlist", owner, h.Bids.Shortlist).
			post("/:id/accept", owner, h.Bids.Accept).
			post("/:id/reject", owner, h.Bids.Reject).
			post("/:id/withdraw", driver, h.Bids.Withdraw).
			post("/:id/counter-offer", owner, h.Bids.CounterOffer).
			post("/:id/counter-offer/respond", driver, h.Bids.RespondCounterOffer))
	}

	if h.Bookings != nil {
		out = append(out, newResource("/bookings").
			get("/:id", h.Bookings.GetByID).
			patch("/:id/status", h.Bookings.UpdateStatus).
			post("/:id/ratings", h.Bookings.SubmitRating).
			post("/:id/proof-of-delivery", driver, h.Bookings.RequestProofOfDelivery).
			get("/:id/proof-of-delivery", h.Bookings.GetProofOfDelivery))
	}

	if h.Profiles != nil {
		out = append(out, newResource("/profiles").
			get("/:id", h.Profiles.GetByID))
	}

	me := newResource("/me")
	if h.Profiles != nil {
		me.put("/profile", h.Profiles.UpsertMine)
	}
	if h.Bids != nil {
		me.get("/bids", driver, h.Bids.ListMine)
	}
	if h.Bookings != nil {
		me.get("/bookings", h.Bookings.ListMine)
	}
	return append(out, me)
}
