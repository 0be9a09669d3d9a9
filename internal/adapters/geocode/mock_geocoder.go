package geocode

import (
	"context"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ports"
	"sync"
)

type MockEntry struct {
	Address     string
	Lat, Lng    float64
	Approximate bool
}

// MockGeocoder resolves addresses from a fixed table and records every lookup.
type MockGeocoder struct {
	mu    sync.Mutex
	m     map[string]ports.GeocodeResult
	calls []string
}

func NewMockGeocoder(entries []MockEntry) *MockGeocoder {
	m := make(map[string]ports.GeocodeResult, len(entries))
	for _, e := range entries {
		m[e.Address] = ports.GeocodeResult{
			Coordinates: domain.Coordinates{Lat: e.Lat, Lng: e.Lng},
			Approximate: e.Approximate,
		}
	}
	return &MockGeocoder{m: m}
}

func (g *MockGeocoder) Geocode(ctx context.Context, address string) (ports.GeocodeResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.GeocodeResult{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, address)

	r, ok := g.m[address]
	if !ok {
		return ports.GeocodeResult{}, fmt.Errorf("mock geocode %q: %w", address, ports.ErrNoMatch)
	}
	return r, nil
}

// Calls returns the addresses looked up so far, in order.
func (g *MockGeocoder) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}
