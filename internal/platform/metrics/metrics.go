package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// GeocodeLookups counts per-address geocoding outcomes:
	// cache_hit, resolved, approximate, failed.
	GeocodeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "geocode_lookups_total", Help: "Geocode lookups by outcome."},
		[]string{"outcome"},
	)
	RouteStops = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_stops", Help: "Stops per optimized route.", Buckets: []float64{1, 2, 5, 10, 20, 50, 100}},
	)
	RouteDistanceMiles = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_distance_miles", Help: "Total distance per optimized route.", Buckets: []float64{1, 5, 10, 25, 50, 100, 250}},
	)
)

var regOnce sync.Once

// Register adds all collectors to Registry. Safe to call more than once.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(GeocodeLookups)
		Registry.MustRegister(RouteStops)
		Registry.MustRegister(RouteDistanceMiles)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
