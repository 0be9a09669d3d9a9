package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openrouteservice.org"

// HoustonCenter is the default city-level fallback position.
var HoustonCenter = domain.Coordinates{Lat: 29.7604, Lng: -95.3698}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

type ORSConfig struct {
	APIKey  string
	BaseURL string
	Country string
	// Fallback is returned (marked approximate) when no feature matches.
	// Nil disables the fallback and unmatched addresses yield ports.ErrNoMatch.
	Fallback *domain.Coordinates
	Timeout  time.Duration
}

// ORSGeocoder implements ports.Geocoder using OpenRouteService (/geocode/search).
// It performs no caching or pacing of its own; callers own both.
// The geocoder is safe for concurrent use.
type ORSGeocoder struct {
	client         *http.Client
	apiKey         string
	baseURL        string
	country        string
	fallback       *domain.Coordinates
	maxAttempts    int
	initialBackoff time.Duration
}

func NewORSGeocoder(cfg ORSConfig) (*ORSGeocoder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	country := cfg.Country
	if country == "" {
		country = "US"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ORSGeocoder{
		client:         &http.Client{Timeout: timeout},
		apiKey:         cfg.APIKey,
		baseURL:        baseURL,
		country:        country,
		fallback:       cfg.Fallback,
		maxAttempts:    4,
		initialBackoff: 200 * time.Millisecond,
	}, nil
}

// Geocode resolves a single address to its best match.
func (o *ORSGeocoder) Geocode(ctx context.Context, address string) (_ ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	text := strings.Join(strings.Fields(address), " ")
	if text == "" {
		return ports.GeocodeResult{}, errors.New("geocode: address must be non-empty")
	}

	endpoint := o.baseURL + "/geocode/search"

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.newRequest(ctx, http.MethodGet, endpoint)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", text)
		q.Set("boundary.country", o.country)
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return ports.GeocodeResult{}, fmt.Errorf("geocode %q: execute request: %w", text, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.GeocodeResult{}, fmt.Errorf("geocode %q: decode response: %w", text, err)
	}

	if len(decoded.Features) == 0 {
		return o.fallbackResult(text)
	}

	// ORS returns GeoJSON [lon, lat].
	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return ports.GeocodeResult{}, fmt.Errorf("geocode %q: invalid coordinate format", text)
	}

	c := domain.Coordinates{Lat: coords[1], Lng: coords[0]}
	if !c.Valid() {
		return o.fallbackResult(text)
	}

	return ports.GeocodeResult{Coordinates: c}, nil
}

func (o *ORSGeocoder) fallbackResult(text string) (ports.GeocodeResult, error) {
	if o.fallback == nil {
		return ports.GeocodeResult{}, fmt.Errorf("geocode %q: %w", text, ports.ErrNoMatch)
	}
	return ports.GeocodeResult{Coordinates: *o.fallback, Approximate: true}, nil
}
