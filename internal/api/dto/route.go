package dto

type LocationRequest struct {
	ID      string   `json:"id"`
	Address string   `json:"address"`
	City    string   `json:"city"`
	Zip     string   `json:"zip,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

type OptimizeRouteRequest struct {
	Locations      []LocationRequest `json:"locations"`
	StartLat       *float64          `json:"start_lat"`
	StartLng       *float64          `json:"start_lng"`
	GeocodeMissing bool              `json:"geocode_missing"`
	Unlocatable    string            `json:"unlocatable"`
}

type LocationResponse struct {
	ID      string   `json:"id"`
	Address string   `json:"address"`
	City    string   `json:"city"`
	Zip     string   `json:"zip,omitempty"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

type GeocodeSummary struct {
	CacheHits   int      `json:"cache_hits"`
	Resolved    int      `json:"resolved"`
	Approximate int      `json:"approximate"`
	Failed      int      `json:"failed"`
	FailedIDs   []string `json:"failed_ids,omitempty"`
}

type OptimizeRouteResponse struct {
	OrderedLocations   []LocationResponse `json:"ordered_locations"`
	TotalDistanceMiles float64            `json:"total_distance_miles"`
	EstimatedMinutes   int                `json:"estimated_minutes"`
	EstimatedDuration  string             `json:"estimated_duration"`
	GoogleMapsURL      string             `json:"google_maps_url"`
	Geocoding          *GeocodeSummary    `json:"geocoding,omitempty"`
}
