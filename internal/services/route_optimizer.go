package services

import (
	"math"
	"route-optimizer-service/internal/domain"
)

const (
	DefaultAverageSpeedMPH = 25.0
	DefaultDwellMinutes    = 5.0
	DefaultState           = "TX"

	earthRadiusMiles = 3959.0
)

// OptimizerConfig holds the tunable assumptions behind the time estimate
// and the navigation link. Values are per metro area, not per request.
type OptimizerConfig struct {
	AverageSpeedMPH float64
	DwellMinutes    float64
	State           string
	Unlocatable     domain.UnlocatablePolicy
}

func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		AverageSpeedMPH: DefaultAverageSpeedMPH,
		DwellMinutes:    DefaultDwellMinutes,
		State:           DefaultState,
		Unlocatable:     domain.UnlocatableDrop,
	}
}

// RouteOptimizer orders job locations with a greedy nearest-neighbor heuristic.
// It holds only immutable configuration and is safe for concurrent use.
type RouteOptimizer struct {
	cfg OptimizerConfig
}

// NewRouteOptimizer replaces unset or non-positive settings with the defaults.
func NewRouteOptimizer(cfg OptimizerConfig) *RouteOptimizer {
	def := DefaultOptimizerConfig()
	if !(cfg.AverageSpeedMPH > 0) || math.IsInf(cfg.AverageSpeedMPH, 0) {
		cfg.AverageSpeedMPH = def.AverageSpeedMPH
	}
	if !(cfg.DwellMinutes > 0) || math.IsInf(cfg.DwellMinutes, 0) {
		cfg.DwellMinutes = def.DwellMinutes
	}
	if cfg.State == "" {
		cfg.State = def.State
	}
	if cfg.Unlocatable == "" {
		cfg.Unlocatable = def.Unlocatable
	}
	return &RouteOptimizer{cfg: cfg}
}

func (o *RouteOptimizer) Config() OptimizerConfig { return o.cfg }

// OptimizeRoute runs Optimize with the default configuration.
func OptimizeRoute(locations []domain.Location, start *domain.Coordinates) domain.OptimizedRoute {
	return NewRouteOptimizer(DefaultOptimizerConfig()).Optimize(locations, start)
}

type candidate struct {
	loc domain.Location
	at  domain.Coordinates
}

// Optimize computes a visiting order for the geocoded locations.
//
// When start is nil (or not a valid coordinate) the route begins at the first
// geocoded location in input order. Each step moves to the strictly closest
// remaining stop; on exact ties the earlier input wins, so identical inputs
// always produce identical routes. The result is O(n²) in the number of
// geocoded stops, which is fine for a technician's daily job list.
//
// Degenerate inputs never fail: an empty list yields an empty route, and a list
// with no coordinates at all is returned in input order with zero metrics.
func (o *RouteOptimizer) Optimize(locations []domain.Location, start *domain.Coordinates) domain.OptimizedRoute {
	if len(locations) == 0 {
		return domain.OptimizedRoute{OrderedLocations: []domain.Location{}}
	}

	remaining := make([]candidate, 0, len(locations))
	unlocatable := make([]domain.Location, 0)
	for _, l := range locations {
		if c, ok := l.Coordinates(); ok {
			remaining = append(remaining, candidate{loc: l, at: c})
			continue
		}
		unlocatable = append(unlocatable, l)
	}

	// Address-based navigation still works without coordinates.
	if len(remaining) == 0 {
		ordered := append([]domain.Location(nil), locations...)
		return domain.OptimizedRoute{
			OrderedLocations: ordered,
			GoogleMapsURL:    BuildMapsURL(ordered, o.cfg.State),
		}
	}

	ordered := make([]domain.Location, 0, len(locations))

	var current domain.Coordinates
	if start != nil && start.Valid() {
		current = *start
	} else {
		current = remaining[0].at
		ordered = append(ordered, remaining[0].loc)
		remaining = remaining[1:]
	}

	totalMiles := 0.0
	for len(remaining) > 0 {
		best := 0
		bestMiles := HaversineMiles(current, remaining[0].at)
		for i := 1; i < len(remaining); i++ {
			if d := HaversineMiles(current, remaining[i].at); d < bestMiles {
				best, bestMiles = i, d
			}
		}

		next := remaining[best]
		ordered = append(ordered, next.loc)
		totalMiles += bestMiles
		current = next.at

		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	if o.cfg.Unlocatable == domain.UnlocatableAppend {
		ordered = append(ordered, unlocatable...)
	}

	miles := roundTenth(totalMiles)
	return domain.OptimizedRoute{
		OrderedLocations:   ordered,
		TotalDistanceMiles: miles,
		EstimatedMinutes:   o.EstimateMinutes(miles, len(ordered)),
		GoogleMapsURL:      BuildMapsURL(ordered, o.cfg.State),
	}
}

// EstimateMinutes is drive time at the average speed plus dwell per stop,
// rounded to the nearest minute.
func (o *RouteOptimizer) EstimateMinutes(miles float64, stops int) int {
	drive := miles / o.cfg.AverageSpeedMPH * 60
	return int(math.Round(drive + o.cfg.DwellMinutes*float64(stops)))
}

// HaversineMiles returns the great-circle distance between a and b.
func HaversineMiles(a, b domain.Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can leave h just above 1 for near-antipodal points.
	h = math.Min(1, math.Max(0, h))
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func roundTenth(v float64) float64 { return math.Round(v*10) / 10 }
