package ports

import (
	"context"
	"route-optimizer-service/internal/domain"
)

// Port: persistent address -> coordinate cache.
// Keys are expected to be normalized by the caller.
type GeocodeCache interface {
	// Return cached coordinates for the addresses that have an entry.
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	// Store address -> coordinate mappings.
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
