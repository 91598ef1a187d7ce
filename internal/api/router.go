package api

import (
	"net/http"
	"time"

	"fintrack/internal/api/handler"
	"fintrack/internal/api/middleware"
	"fintrack/internal/app/service"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	allowedOrigins []string,
	authService *service.AuthService,
	operationService *service.OperationService,
	healthChecks ...handler.HealthCheck,
) http.Handler {
	r := chi.NewRouter()

	// Each router owns its registry, so several can coexist in one process.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"WWW-Authenticate"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(metrics.Handler)

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(healthChecks...))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Auth routes (public except logout)
	authHandler := handler.NewAuthHandler(authService)
	r.Route("/auth", authHandler.RegisterRoutes)

	// Operation routes (authenticated)
	operationHandler := handler.NewOperationHandler(operationService)
	r.Route("/operations", func(ops chi.Router) {
		ops.Use(middleware.Authenticator(authService))
		operationHandler.RegisterRoutes(ops)
	})

	return r
}
