package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/infra/config"
	"github.com/arklim/residency-registry/internal/infra/telemetry"
	"github.com/arklim/residency-registry/internal/transport/http/handlers"
	"github.com/arklim/residency-registry/internal/transport/http/middleware"
	"github.com/arklim/residency-registry/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Users        *usecase.UserService
	Activity     *usecase.ActivityService
	Records      *usecase.RecordService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Throttle    *middleware.Throttle
	HTTPMetrics *middleware.HTTPMetrics
	Metrics     *telemetry.Metrics
	Gatherer    prometheus.Gatherer
	Services    ServiceSet
	Store       StoreChecker
}

// StoreChecker exposes readiness behaviour for the active store.
type StoreChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.Tracing(middleware.TracingOptions{}))
	r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	r.Use(deps.HTTPMetrics.Handler())
	r.Use(middleware.Logger(deps.Logger))

	healthOptions := make([]handlers.HealthOption, 0, 1)
	if deps.Store != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck(deps.Config.Store.Driver, deps.Store.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", metricsHandler(deps.Gatherer))

	requireAuth := middleware.RequireAuth(deps.Services.Auth, deps.Metrics)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Registration)
		authHandler.RegisterRoutes(api.Group("/auth"), buildLoginMiddlewares(deps)...)

		userHandler := handlers.NewUserHandler(deps.Services.Users)
		userHandler.RegisterRoutes(api.Group("/users", requireAuth, adminOnly))

		profileHandler := handlers.NewProfileHandler(deps.Services.Users)
		api.PUT("/profile", requireAuth, profileHandler.UpdatePassword)

		logHandler := handlers.NewLogHandler(deps.Services.Activity)
		api.GET("/logs", requireAuth, adminOnly, logHandler.List)

		recordHandler := handlers.NewRecordHandler(deps.Services.Records)
		recordHandler.RegisterRoutes(api.Group("/records", requireAuth), adminOnly)
	}

	return r
}

func metricsHandler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	if gatherer == nil {
		return gin.WrapH(promhttp.Handler())
	}
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.Throttle == nil || deps.Config == nil {
		return nil
	}

	settings := deps.Config.RateLimit
	window := settings.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	return []gin.HandlerFunc{deps.Throttle.Limit(
		middleware.ThrottleRule{
			Name:           "login_account",
			Limit:          settings.LoginMaxAttempts,
			Window:         window,
			Key:            middleware.LoginAccount(),
			ResetOnSuccess: true,
		},
		middleware.ThrottleRule{
			Name:   "login_ip",
			Limit:  settings.LoginIPMaxAttempts,
			Window: window,
			Key:    middleware.ClientIP(),
		},
	)}
}
