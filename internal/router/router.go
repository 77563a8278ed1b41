package router

import (
	"github.com/evyataryagoni/geolookup/internal/handler"
	"github.com/evyataryagoni/geolookup/internal/logger"
	custommiddleware "github.com/evyataryagoni/geolookup/internal/middleware"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter creates and configures the Chi router with all middleware and routes
//
// Parameters:
//   - ipHandler: the IP lookup handler
//   - healthHandler: liveness and readiness probes
//   - m: metrics collector
//   - gatherer: registry served on /metrics
//   - log: structured logger
func SetupRouter(ipHandler *handler.IPHandler, healthHandler *handler.HealthHandler, m *metrics.Metrics, gatherer prometheus.Gatherer, log *logger.Logger) chi.Router {
	r := chi.NewRouter()

	// Order matters: RequestID first so the logger can read it
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.LoggingMiddleware(log))
	r.Use(middleware.Recoverer)
	r.Use(custommiddleware.MetricsMiddleware(m))

	r.Get("/get-ip-info/{ip}", ipHandler.GetIPInfo)

	// Operational endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
