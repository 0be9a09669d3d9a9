package api

import (
	"context"
	"net/http"
	"route-optimizer-service/internal/api/handlers"
	"route-optimizer-service/internal/platform/metrics"
	"route-optimizer-service/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Optimizer *services.RouteOptimizer
	// Geocoder may be nil when no geocoding provider is configured.
	Geocoder    handlers.Geocoding
	MaxStops    int
	ReadyChecks map[string]func(ctx context.Context) error
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	metrics.Register()

	if deps.Optimizer == nil {
		deps.Optimizer = services.NewRouteOptimizer(services.DefaultOptimizerConfig())
	}

	mux := http.NewServeMux()

	routeHandler := &handlers.RouteHandler{
		Optimizer: deps.Optimizer,
		Geocoder:  deps.Geocoder,
		MaxStops:  deps.MaxStops,
	}
	healthHandler := &handlers.HealthHandler{Checks: deps.ReadyChecks}

	routes := map[string]http.Handler{
		"/health":          http.HandlerFunc(healthHandler.Health),
		"/ready":           http.HandlerFunc(healthHandler.Ready),
		"/routes/optimize": http.HandlerFunc(routeHandler.Optimize),
		"/metrics":         promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}

	known := make(map[string]bool, len(routes))
	for path, h := range routes {
		mux.Handle(path, h)
		known[path] = true
	}

	return requestIDMiddleware(loggingMiddleware(known)(mux))
}
