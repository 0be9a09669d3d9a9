package ports

import (
	"context"
	"errors"
	"route-optimizer-service/internal/domain"
)

// ErrNoMatch is returned by a Geocoder when the address cannot be resolved
// and no fallback location is configured.
var ErrNoMatch = errors.New("geocode: no match")

// Result of resolving a free-text address.
// Approximate is set when the provider fell back to a coarse (city-level)
// position instead of matching the address itself.
type GeocodeResult struct {
	Coordinates domain.Coordinates
	Approximate bool
}

// Contract for turning an address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeocodeResult, error)
}
