package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/fleetcore/fleet-api/docs" // swagger spec registration
	"github.com/fleetcore/fleet-api/internal/api/handler"
	"github.com/fleetcore/fleet-api/internal/api/middleware"
	"github.com/fleetcore/fleet-api/internal/core/ports"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Logger    zerolog.Logger
	JWTSecret string
	Version   string

	Auth      ports.AuthService
	Resources []ports.ResourceService

	// RateLimit, when set, throttles every route except health, metrics and docs.
	RateLimit echomiddleware.RateLimiterStore
	// HealthChecks are the dependencies /health/ready must reach.
	HealthChecks map[string]handler.Check
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.RequestLogger(deps.Logger))
	// HTTP metrics get a registry per router; /metrics serves it alongside
	// the process-wide collectors.
	httpMetrics := prometheus.NewRegistry()
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "fleet",
		Registerer: httpMetrics,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	if deps.RateLimit != nil {
		e.Use(middleware.RateLimit(deps.RateLimit))
	}

	// --- Health checks and tooling (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Version, deps.HealthChecks)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{prometheus.DefaultGatherer, httpMetrics},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/api/v1")

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)

	// --- Resource routes ---
	authMiddleware := middleware.Auth(deps.JWTSecret)
	for _, svc := range deps.Resources {
		h := handler.NewResourceHandler(svc)
		h.Register(v1.Group("/"+svc.Definition().Name, authMiddleware))
	}

	return e
}
