package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"route-optimizer-service/internal/api/dto"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/metrics"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/services"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Geocoding is the subset of services.GeocodeBatcher the handler needs.
type Geocoding interface {
	GeocodeMissing(ctx context.Context, locations []domain.Location) ([]domain.Location, services.GeocodeReport, error)
}

type RouteHandler struct {
	Optimizer *services.RouteOptimizer
	// Geocoder is optional; requests asking for geocoding fail with 503 without it.
	Geocoder Geocoding
	MaxStops int
}

// Optimize orders the submitted stops, optionally geocoding the ones that
// arrive without coordinates first.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.OptimizeRouteRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	locations, start, err := h.validate(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	policy, err := domain.ParseUnlocatablePolicy(req.Unlocatable)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unlocatable must be \"drop\" or \"append\"")
		return
	}

	var summary *dto.GeocodeSummary
	if req.GeocodeMissing {
		if h.Geocoder == nil {
			writeError(w, r, http.StatusServiceUnavailable, "geocoding is not configured")
			return
		}

		geocoded, report, err := h.Geocoder.GeocodeMissing(r.Context(), locations)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				writeError(w, r, http.StatusGatewayTimeout, "geocoding did not finish")
				return
			}
			zap.L().Error("geocode missing failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
			writeError(w, r, http.StatusInternalServerError, "internal server error")
			return
		}
		locations = geocoded
		summary = &dto.GeocodeSummary{
			CacheHits:   report.CacheHits,
			Resolved:    report.Resolved,
			Approximate: report.Approximate,
			Failed:      report.Failed,
			FailedIDs:   report.FailedIDs,
		}
	}

	optimizer := h.Optimizer
	if cfg := optimizer.Config(); cfg.Unlocatable != policy && req.Unlocatable != "" {
		cfg.Unlocatable = policy
		optimizer = services.NewRouteOptimizer(cfg)
	}

	route := optimizer.Optimize(locations, start)

	metrics.RouteStops.Observe(float64(len(route.OrderedLocations)))
	metrics.RouteDistanceMiles.Observe(route.TotalDistanceMiles)

	res := dto.OptimizeRouteResponse{
		OrderedLocations:   make([]dto.LocationResponse, 0, len(route.OrderedLocations)),
		TotalDistanceMiles: route.TotalDistanceMiles,
		EstimatedMinutes:   route.EstimatedMinutes,
		EstimatedDuration:  services.FormatDuration(route.EstimatedMinutes),
		GoogleMapsURL:      route.GoogleMapsURL,
		Geocoding:          summary,
	}
	for _, l := range route.OrderedLocations {
		item := dto.LocationResponse{ID: l.ID, Address: l.Address, City: l.City, Zip: l.Zip}
		if c, ok := l.Coordinates(); ok {
			item.Lat, item.Lng = &c.Lat, &c.Lng
		}
		res.OrderedLocations = append(res.OrderedLocations, item)
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *RouteHandler) validate(req dto.OptimizeRouteRequest) ([]domain.Location, *domain.Coordinates, error) {
	if h.MaxStops > 0 && len(req.Locations) > h.MaxStops {
		return nil, nil, fmt.Errorf("at most %d locations are allowed", h.MaxStops)
	}

	seen := make(map[string]struct{}, len(req.Locations))
	locations := make([]domain.Location, 0, len(req.Locations))
	for i, l := range req.Locations {
		if l.ID == "" {
			return nil, nil, fmt.Errorf("locations[%d]: id is required", i)
		}
		if _, ok := seen[l.ID]; ok {
			return nil, nil, fmt.Errorf("locations[%d]: duplicate id %q", i, l.ID)
		}
		seen[l.ID] = struct{}{}

		locations = append(locations, domain.Location{
			ID:      l.ID,
			Address: l.Address,
			City:    l.City,
			Zip:     l.Zip,
			Lat:     l.Lat,
			Lng:     l.Lng,
		})
	}

	if (req.StartLat == nil) != (req.StartLng == nil) {
		return nil, nil, errors.New("start_lat and start_lng must be provided together")
	}

	var start *domain.Coordinates
	if req.StartLat != nil {
		start = &domain.Coordinates{Lat: *req.StartLat, Lng: *req.StartLng}
		if !start.Valid() {
			return nil, nil, errors.New("start coordinates are out of range")
		}
	}

	return locations, start, nil
}
