package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"route-optimizer-service/internal/domain"
	"strings"
)

// InitSchema creates the geocode cache table.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
        address TEXT PRIMARY KEY,
        lat DOUBLE PRECISION NOT NULL,
        lng DOUBLE PRECISION NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_geocode_cache_updated_at
    ON geocode_cache(updated_at);
	`

	statements := []string{
		createGeocodeCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// A known address with surveyed coordinates.
type GeocodeSeed struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// ParseSeeds reads and validates a JSON array of GeocodeSeed.
// Addresses are normalized the same way lookups are.
func ParseSeeds(data []byte) (map[string]GeocodeSeed, error) {
	var items []GeocodeSeed
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("seed geocode cache: parse json: %w", err)
	}

	out := make(map[string]GeocodeSeed, len(items))
	for i, item := range items {
		addr := strings.Join(strings.Fields(item.Address), " ")
		if addr == "" {
			return nil, fmt.Errorf("seed geocode cache: item at index %d: address cannot be empty", i+1)
		}
		if item.Lat < -90 || item.Lat > 90 || item.Lng < -180 || item.Lng > 180 {
			return nil, fmt.Errorf("seed geocode cache: item at index %d: coordinates out of range", i+1)
		}
		item.Address = addr
		out[addr] = item
	}

	return out, nil
}

// SeedFromJSON populates the geocode cache from a JSON file.
func SeedFromJSON(ctx context.Context, c *SQLGeocodeCache, jsonPath string) (int, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed geocode cache: read %q: %w", jsonPath, err)
	}

	seeds, err := ParseSeeds(data)
	if err != nil {
		return 0, err
	}

	results := make(map[string]domain.Coordinates, len(seeds))
	for addr, s := range seeds {
		results[addr] = domain.Coordinates{Lat: s.Lat, Lng: s.Lng}
	}

	if err := c.PutMany(ctx, results); err != nil {
		return 0, fmt.Errorf("seed geocode cache: %w", err)
	}

	return len(results), nil
}
