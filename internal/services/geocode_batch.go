package services

import (
	"context"
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/metrics"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultGeocodeInterval keeps third-party geocoding near one request per second.
const DefaultGeocodeInterval = time.Second

// Summary of one GeocodeMissing call.
type GeocodeReport struct {
	CacheHits   int
	Resolved    int
	Approximate int
	Failed      int
	FailedIDs   []string
}

// GeocodeBatcher fills in coordinates for locations that lack them.
//
// Lookups are issued one at a time through a shared rate limiter, so a single
// batcher paces every request it serves. Exact matches are written back to the
// cache; approximate (fallback) matches are used for this call only.
type GeocodeBatcher struct {
	geocoder ports.Geocoder
	cache    ports.GeocodeCache
	limiter  *rate.Limiter
	state    string
}

// NewGeocodeBatcher wires a batcher. cache may be nil; a nil limiter paces at
// DefaultGeocodeInterval.
func NewGeocodeBatcher(geocoder ports.Geocoder, cache ports.GeocodeCache, limiter *rate.Limiter, state string) *GeocodeBatcher {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(DefaultGeocodeInterval), 1)
	}
	if state == "" {
		state = DefaultState
	}
	return &GeocodeBatcher{geocoder: geocoder, cache: cache, limiter: limiter, state: state}
}

// NormalizeAddress collapses whitespace so equal addresses share a cache key.
func NormalizeAddress(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// GeocodeMissing returns a copy of locations with coordinates resolved where
// possible. Locations that are already geocoded are not looked up, and a
// failed lookup leaves the location ungeocoded. Only context cancellation is
// reported as an error.
func (b *GeocodeBatcher) GeocodeMissing(
	ctx context.Context,
	locations []domain.Location,
) (_ []domain.Location, report GeocodeReport, err error) {
	defer obs.Time(ctx, "geocode.GeocodeMissing")(&err)

	out := append([]domain.Location(nil), locations...)

	pending := make([]int, 0, len(out))
	keys := make(map[int]string, len(out))
	lookup := make([]string, 0, len(out))
	for i, l := range out {
		if l.Geocoded() {
			continue
		}

		if strings.TrimSpace(l.Address) == "" && strings.TrimSpace(l.City) == "" {
			b.fail(&report, l, errors.New("address is empty"))
			continue
		}
		key := NormalizeAddress(StopLabel(l, b.state))

		pending = append(pending, i)
		keys[i] = key
		lookup = append(lookup, key)
	}

	if len(pending) == 0 {
		return out, report, nil
	}

	cached := map[string]domain.Coordinates{}
	if b.cache != nil {
		hits, err := b.cache.GetMany(ctx, lookup)
		if err != nil {
			if ctx.Err() != nil {
				return nil, report, ctx.Err()
			}
			zap.L().Warn("geocode cache read failed", zap.String("req_id", obs.RequestID(ctx)), zap.Error(err))
		} else {
			cached = hits
		}
	}

	fresh := make(map[string]domain.Coordinates)
	approx := make(map[string]domain.Coordinates)
	failed := make(map[string]error)

	for _, i := range pending {
		key := keys[i]

		if c, ok := cached[key]; ok && c.Valid() {
			out[i] = out[i].WithCoordinates(c)
			report.CacheHits++
			metrics.GeocodeLookups.WithLabelValues("cache_hit").Inc()
			continue
		}

		// Repeated addresses within one batch reuse the first answer.
		if c, ok := fresh[key]; ok {
			out[i] = out[i].WithCoordinates(c)
			report.Resolved++
			continue
		}
		if c, ok := approx[key]; ok {
			out[i] = out[i].WithCoordinates(c)
			report.Approximate++
			continue
		}
		if e, ok := failed[key]; ok {
			b.fail(&report, out[i], e)
			continue
		}

		if b.geocoder == nil {
			failed[key] = errors.New("no geocoder configured")
			b.fail(&report, out[i], failed[key])
			continue
		}

		if err := b.limiter.Wait(ctx); err != nil {
			// Wait fails early when the next slot lies past the deadline.
			if ctx.Err() == nil {
				if _, ok := ctx.Deadline(); ok {
					err = context.DeadlineExceeded
				}
			}
			return nil, report, fmt.Errorf("geocode missing: wait for rate limiter: %w", err)
		}

		res, err := b.geocoder.Geocode(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, report, ctx.Err()
			}
			failed[key] = err
			b.fail(&report, out[i], err)
			continue
		}

		if !res.Coordinates.Valid() {
			failed[key] = errors.New("geocoder returned invalid coordinates")
			b.fail(&report, out[i], failed[key])
			continue
		}

		out[i] = out[i].WithCoordinates(res.Coordinates)
		if res.Approximate {
			approx[key] = res.Coordinates
			report.Approximate++
			metrics.GeocodeLookups.WithLabelValues("approximate").Inc()
			continue
		}

		fresh[key] = res.Coordinates
		report.Resolved++
		metrics.GeocodeLookups.WithLabelValues("resolved").Inc()
	}

	if b.cache != nil && len(fresh) > 0 {
		if err := b.cache.PutMany(ctx, fresh); err != nil {
			zap.L().Warn("geocode cache write failed", zap.String("req_id", obs.RequestID(ctx)), zap.Error(err))
		}
	}

	return out, report, nil
}

func (b *GeocodeBatcher) fail(report *GeocodeReport, l domain.Location, err error) {
	report.Failed++
	report.FailedIDs = append(report.FailedIDs, l.ID)
	metrics.GeocodeLookups.WithLabelValues("failed").Inc()
	zap.L().Info("location left ungeocoded", zap.String("id", l.ID), zap.Error(err))
}
