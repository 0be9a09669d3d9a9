package services

import (
	"context"
	"errors"
	"route-optimizer-service/internal/adapters/geocode"
	"route-optimizer-service/internal/domain"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type memCache struct {
	m       map[string]domain.Coordinates
	getErr  error
	puts    int
	getKeys []string
}

func (c *memCache) GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	c.getKeys = append(c.getKeys, addresses...)
	if c.getErr != nil {
		return nil, c.getErr
	}
	out := map[string]domain.Coordinates{}
	for _, a := range addresses {
		if v, ok := c.m[a]; ok {
			out[a] = v
		}
	}
	return out, nil
}

func (c *memCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) error {
	c.puts++
	for k, v := range results {
		c.m[k] = v
	}
	return nil
}

func unlimited() *rate.Limiter { return rate.NewLimiter(rate.Inf, 1) }

func TestGeocodeMissing(t *testing.T) {
	geocoder := geocode.NewMockGeocoder([]geocode.MockEntry{
		{Address: "2 Oak Ave, Katy, TX 77450", Lat: 29.78, Lng: -95.82},
		{Address: "3 Elm St, Houston, TX", Lat: 29.7604, Lng: -95.3698, Approximate: true},
	})
	cache := &memCache{m: map[string]domain.Coordinates{
		"1 Main St, Houston, TX 77002": {Lat: 29.76, Lng: -95.37},
	}}

	locs := []domain.Location{
		{ID: "1", Address: "1 Main St", City: "Houston", Zip: "77002"},
		{ID: "2", Address: "2  Oak Ave", City: "Katy", Zip: "77450"},
		{ID: "3", Address: "3 Elm St", City: "Houston"},
		{ID: "4", Address: "4 Nowhere Rd", City: "Houston"},
		geoLoc("5", 30, -95),
	}

	b := NewGeocodeBatcher(geocoder, cache, unlimited(), "TX")
	out, report, err := b.GeocodeMissing(context.Background(), locs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, want := range []bool{true, true, true, false, true} {
		if out[i].Geocoded() != want {
			t.Fatalf("location %s geocoded = %v, want %v", out[i].ID, out[i].Geocoded(), want)
		}
	}
	if locs[1].Geocoded() {
		t.Fatalf("input slice was modified")
	}

	if report.CacheHits != 1 || report.Resolved != 1 || report.Approximate != 1 || report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.FailedIDs) != 1 || report.FailedIDs[0] != "4" {
		t.Fatalf("failed ids = %v, want [4]", report.FailedIDs)
	}

	// Only the exact match is written back.
	if _, ok := cache.m["2 Oak Ave, Katy, TX 77450"]; !ok {
		t.Fatalf("resolved address not cached")
	}
	if _, ok := cache.m["3 Elm St, Houston, TX"]; ok {
		t.Fatalf("approximate address should not be cached")
	}

	calls := geocoder.Calls()
	if len(calls) != 3 {
		t.Fatalf("geocoder calls = %v, want 3 lookups", calls)
	}
}

func TestGeocodeMissingDeduplicatesAddresses(t *testing.T) {
	geocoder := geocode.NewMockGeocoder([]geocode.MockEntry{
		{Address: "1 Main St, Houston, TX", Lat: 29.76, Lng: -95.37},
	})
	locs := []domain.Location{
		{ID: "a", Address: "1 Main St", City: "Houston"},
		{ID: "b", Address: "1 Main St ", City: " Houston"},
	}

	out, report, err := NewGeocodeBatcher(geocoder, nil, unlimited(), "").GeocodeMissing(context.Background(), locs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out[0].Geocoded() || !out[1].Geocoded() {
		t.Fatalf("expected both locations geocoded")
	}
	if n := len(geocoder.Calls()); n != 1 {
		t.Fatalf("geocoder called %d times, want 1", n)
	}
	if report.Resolved != 2 {
		t.Fatalf("resolved = %d, want 2", report.Resolved)
	}
}

func TestGeocodeMissingCacheErrorFallsThrough(t *testing.T) {
	geocoder := geocode.NewMockGeocoder([]geocode.MockEntry{
		{Address: "1 Main St, Houston, TX", Lat: 29.76, Lng: -95.37},
	})
	cache := &memCache{m: map[string]domain.Coordinates{}, getErr: errors.New("redis down")}

	out, _, err := NewGeocodeBatcher(geocoder, cache, unlimited(), "TX").
		GeocodeMissing(context.Background(), []domain.Location{{ID: "a", Address: "1 Main St", City: "Houston"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out[0].Geocoded() {
		t.Fatalf("expected geocoder to resolve after cache failure")
	}
}

func TestGeocodeMissingEmptyAddress(t *testing.T) {
	geocoder := geocode.NewMockGeocoder(nil)

	_, report, err := NewGeocodeBatcher(geocoder, nil, unlimited(), "TX").
		GeocodeMissing(context.Background(), []domain.Location{{ID: "blank"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Failed != 1 || len(geocoder.Calls()) != 0 {
		t.Fatalf("report = %+v calls = %v", report, geocoder.Calls())
	}
}

func TestGeocodeMissingPacesRequests(t *testing.T) {
	geocoder := geocode.NewMockGeocoder([]geocode.MockEntry{
		{Address: "1 A St, Houston, TX", Lat: 1, Lng: 1},
		{Address: "2 B St, Houston, TX", Lat: 2, Lng: 2},
		{Address: "3 C St, Houston, TX", Lat: 3, Lng: 3},
	})
	locs := []domain.Location{
		{ID: "1", Address: "1 A St", City: "Houston"},
		{ID: "2", Address: "2 B St", City: "Houston"},
		{ID: "3", Address: "3 C St", City: "Houston"},
	}

	interval := 30 * time.Millisecond
	b := NewGeocodeBatcher(geocoder, nil, rate.NewLimiter(rate.Every(interval), 1), "TX")

	start := time.Now()
	if _, _, err := b.GeocodeMissing(context.Background(), locs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 2*interval-5*time.Millisecond {
		t.Fatalf("three lookups took %v, want at least ~%v", elapsed, 2*interval)
	}
}

func TestGeocodeMissingCancelled(t *testing.T) {
	geocoder := geocode.NewMockGeocoder(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewGeocodeBatcher(geocoder, nil, unlimited(), "TX").
		GeocodeMissing(ctx, []domain.Location{{ID: "a", Address: "1 Main St", City: "Houston"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
