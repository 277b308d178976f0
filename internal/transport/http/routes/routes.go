package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/infra/config"
	"github.com/Korabi-dev/password-reset-adds/internal/transport/http/handlers"
	"github.com/Korabi-dev/password-reset-adds/internal/transport/http/middleware"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Resets handlers.ResetService
	Users  handlers.UserService
}

// ReadinessProbe names a dependency checked by /readyz.
type ReadinessProbe struct {
	Name  string
	Check handlers.ReadinessCheck
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	HTTPMetrics *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Services    ServiceSet
	Probes      []ReadinessProbe
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Telemetry.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger, "/healthz", "/readyz", "/metrics"))
	r.Use(deps.HTTPMetrics.Handler())

	healthOptions := make([]handlers.HealthOption, 0, len(deps.Probes))
	for _, probe := range deps.Probes {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck(probe.Name, probe.Check))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	if deps.Services.Resets != nil {
		codeHandler := handlers.NewCodeHandler(deps.Services.Resets, deps.Logger)
		codeHandler.RegisterRoutes(r.Group("/codes"), buildRateLimitMiddlewares(deps, cfg)...)
	}

	if deps.Services.Users != nil {
		userHandler := handlers.NewUserHandler(deps.Services.Users, deps.Logger)
		userHandler.RegisterRoutes(r.Group("/users"), middleware.RequireSharedSecret(cfg.Auth.Token))
	}

	return r
}

func buildRateLimitMiddlewares(deps Dependencies, cfg *config.AppConfig) []gin.HandlerFunc {
	if deps.RateLimiter == nil {
		return nil
	}

	rule := middleware.RateLimitRule{
		Name:       "codes_ip",
		Limit:      cfg.RateLimit.Limit,
		Window:     cfg.RateLimit.Window,
		Identifier: middleware.ForwardedForIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
