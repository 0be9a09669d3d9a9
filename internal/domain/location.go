package domain

// Represents a single stop to visit (a job site).
// ID is opaque and only used to correlate output with input.
// Lat/Lng are optional; a Location without valid coordinates
// cannot take part in distance-based ordering.
type Location struct {
	ID      string
	Address string
	City    string
	Zip     string
	Lat     *float64
	Lng     *float64
}

// Coordinates returns the location's position and whether it is geocoded.
func (l Location) Coordinates() (Coordinates, bool) {
	if l.Lat == nil || l.Lng == nil {
		return Coordinates{}, false
	}
	c := Coordinates{Lat: *l.Lat, Lng: *l.Lng}
	if !c.Valid() {
		return Coordinates{}, false
	}
	return c, true
}

// Geocoded reports whether the location has usable coordinates.
func (l Location) Geocoded() bool {
	_, ok := l.Coordinates()
	return ok
}

// WithCoordinates returns a copy of the location positioned at c.
func (l Location) WithCoordinates(c Coordinates) Location {
	lat, lng := c.Lat, c.Lng
	l.Lat = &lat
	l.Lng = &lng
	return l
}
