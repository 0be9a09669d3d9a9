package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"route-optimizer-service/internal/adapters/geocode"
	"route-optimizer-service/internal/api/dto"
	"route-optimizer-service/internal/services"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestRouter(geocoder *geocode.MockGeocoder) http.Handler {
	deps := Deps{
		Optimizer: services.NewRouteOptimizer(services.DefaultOptimizerConfig()),
		MaxStops:  3,
	}
	if geocoder != nil {
		deps.Geocoder = services.NewGeocodeBatcher(geocoder, nil, rate.NewLimiter(rate.Inf, 1), "TX")
	}
	return NewRouter(deps)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/routes/optimize", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeRoute(t *testing.T, rec *httptest.ResponseRecorder) dto.OptimizeRouteResponse {
	t.Helper()

	var res dto.OptimizeRouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func orderedIDs(res dto.OptimizeRouteResponse) []string {
	out := make([]string, 0, len(res.OrderedLocations))
	for _, l := range res.OrderedLocations {
		out = append(out, l.ID)
	}
	return out
}

func TestOptimizeEndpoint(t *testing.T) {
	h := newTestRouter(nil)

	rec := post(t, h, `{"locations":[
		{"id":"A","address":"1 A St","city":"Houston","lat":0,"lng":0},
		{"id":"C","address":"3 C St","city":"Houston","lat":0,"lng":10},
		{"id":"B","address":"2 B St","city":"Houston","zip":"77002","lat":0,"lng":1}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	res := decodeRoute(t, rec)
	assert.Equal(t, []string{"A", "B", "C"}, orderedIDs(res))
	assert.InDelta(t, 691.0, res.TotalDistanceMiles, 0.1)
	assert.Equal(t, services.FormatDuration(res.EstimatedMinutes), res.EstimatedDuration)
	assert.True(t, strings.HasPrefix(res.GoogleMapsURL, "https://www.google.com/maps/dir/?api=1&origin=1%20A%20St"))
	assert.Nil(t, res.Geocoding)
}

func TestOptimizeEndpointEmpty(t *testing.T) {
	rec := post(t, newTestRouter(nil), `{"locations":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeRoute(t, rec)
	assert.Empty(t, res.OrderedLocations)
	assert.Equal(t, "", res.GoogleMapsURL)
	assert.Equal(t, "0 min", res.EstimatedDuration)
}

func TestOptimizeEndpointAppendPolicy(t *testing.T) {
	rec := post(t, newTestRouter(nil), `{"unlocatable":"append","locations":[
		{"id":"X","address":"9 Lost Ln","city":"Houston"},
		{"id":"A","address":"1 A St","city":"Houston","lat":0,"lng":0},
		{"id":"B","address":"2 B St","city":"Houston","lat":0,"lng":1}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeRoute(t, rec)
	assert.Equal(t, []string{"A", "B", "X"}, orderedIDs(res))
	assert.Nil(t, res.OrderedLocations[2].Lat)
}

func TestOptimizeEndpointWithStart(t *testing.T) {
	rec := post(t, newTestRouter(nil), `{"start_lat":0,"start_lng":11,"locations":[
		{"id":"A","address":"1 A St","city":"Houston","lat":0,"lng":0},
		{"id":"C","address":"3 C St","city":"Houston","lat":0,"lng":10}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"C", "A"}, orderedIDs(decodeRoute(t, rec)))
}

func TestOptimizeEndpointGeocodes(t *testing.T) {
	geocoder := geocode.NewMockGeocoder([]geocode.MockEntry{
		{Address: "2 B St, Houston, TX", Lat: 0, Lng: 1},
	})

	rec := post(t, newTestRouter(geocoder), `{"geocode_missing":true,"locations":[
		{"id":"A","address":"1 A St","city":"Houston","lat":0,"lng":0},
		{"id":"B","address":"2 B St","city":"Houston"},
		{"id":"Z","address":"404 Missing","city":"Houston"}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeRoute(t, rec)
	assert.Equal(t, []string{"A", "B"}, orderedIDs(res))
	require.NotNil(t, res.Geocoding)
	assert.Equal(t, 1, res.Geocoding.Resolved)
	assert.Equal(t, 1, res.Geocoding.Failed)
	assert.Equal(t, []string{"Z"}, res.Geocoding.FailedIDs)
}

func TestOptimizeEndpointGeocodingUnavailable(t *testing.T) {
	rec := post(t, newTestRouter(nil), `{"geocode_missing":true,"locations":[{"id":"A","address":"1 A St","city":"Houston"}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOptimizeEndpointRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"locations":`},
		{"unknown field", `{"stops":[]}`},
		{"two objects", `{"locations":[]}{"locations":[]}`},
		{"missing id", `{"locations":[{"address":"1 A St","city":"Houston"}]}`},
		{"duplicate id", `{"locations":[{"id":"A"},{"id":"A"}]}`},
		{"too many stops", `{"locations":[{"id":"1"},{"id":"2"},{"id":"3"},{"id":"4"}]}`},
		{"half a start", `{"start_lat":29.7,"locations":[]}`},
		{"start out of range", `{"start_lat":95,"start_lng":0,"locations":[]}`},
		{"bad policy", `{"unlocatable":"keep","locations":[]}`},
	}

	h := newTestRouter(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestOptimizeEndpointMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/routes/optimize", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()

	newTestRouter(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyEndpoint(t *testing.T) {
	h := NewRouter(Deps{ReadyChecks: map[string]func(context.Context) error{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"database":"ok","redis":"connection refused"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(nil)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
