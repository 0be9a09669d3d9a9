package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Optimizer is the per-metro tuning profile, usually loaded from YAML.
type Optimizer struct {
	AverageSpeedMPH float64  `yaml:"average_speed_mph"`
	DwellMinutes    float64  `yaml:"dwell_minutes"`
	State           string   `yaml:"state"`
	Unlocatable     string   `yaml:"unlocatable"`
	FallbackLat     *float64 `yaml:"fallback_lat"`
	FallbackLng     *float64 `yaml:"fallback_lng"`
}

type Config struct {
	Port            string
	AppEnv          string
	DatabaseURL     string
	RedisURL        string
	ORSAPIKey       string
	GeocodeInterval time.Duration
	GeocodeCacheTTL time.Duration
	MaxStops        int
	Optimizer       Optimizer
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// LoadDotEnv loads .env if present and reports whether it was found.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        Get("PORT", "8080"),
		AppEnv:      Get("APP_ENV", "production"),
		DatabaseURL: Get("DATABASE_URL", ""),
		RedisURL:    Get("REDIS_URL", ""),
		ORSAPIKey:   Get("ORS_API_KEY", ""),
	}

	var err error
	if cfg.GeocodeInterval, err = getDuration("GEOCODE_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheTTL, err = getDuration("GEOCODE_CACHE_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}

	maxStops, err := strconv.Atoi(Get("MAX_STOPS", "100"))
	if err != nil || maxStops < 1 {
		return nil, fmt.Errorf("config: MAX_STOPS must be a positive integer, got %q", Get("MAX_STOPS", ""))
	}
	cfg.MaxStops = maxStops

	if path := Get("OPTIMIZER_CONFIG", ""); path != "" {
		opt, err := LoadOptimizer(path)
		if err != nil {
			return nil, err
		}
		cfg.Optimizer = opt
	}

	return cfg, nil
}

// LoadOptimizer reads an optimizer profile from a YAML file.
func LoadOptimizer(path string) (Optimizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Optimizer{}, fmt.Errorf("config: read optimizer profile %q: %w", path, err)
	}
	return ParseOptimizer(data)
}

func ParseOptimizer(data []byte) (Optimizer, error) {
	var opt Optimizer
	if err := yaml.Unmarshal(data, &opt); err != nil {
		return Optimizer{}, fmt.Errorf("config: parse optimizer profile: %w", err)
	}

	if opt.AverageSpeedMPH < 0 || opt.DwellMinutes < 0 {
		return Optimizer{}, errors.New("config: average_speed_mph and dwell_minutes must not be negative")
	}
	if (opt.FallbackLat == nil) != (opt.FallbackLng == nil) {
		return Optimizer{}, errors.New("config: fallback_lat and fallback_lng must be set together")
	}

	return opt, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := Get(key, "")
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("config: %s must be a non-negative duration, got %q", key, raw)
	}
	return d, nil
}
