package services

import (
	"fmt"
	"net/url"
	"route-optimizer-service/internal/domain"
	"strings"
)

const mapsDirectionsURL = "https://www.google.com/maps/dir/?api=1"

// BuildMapsURL renders a Google Maps directions link for the stops in order.
// The first stop is the origin, the last the destination and everything in
// between a waypoint. A single stop produces a destination-only link and an
// empty list produces "".
func BuildMapsURL(locations []domain.Location, state string) string {
	switch len(locations) {
	case 0:
		return ""
	case 1:
		return mapsDirectionsURL + "&destination=" + encodeStop(locations[0], state)
	}

	last := len(locations) - 1

	var b strings.Builder
	b.WriteString(mapsDirectionsURL)
	b.WriteString("&origin=")
	b.WriteString(encodeStop(locations[0], state))
	b.WriteString("&destination=")
	b.WriteString(encodeStop(locations[last], state))

	if last > 1 {
		waypoints := make([]string, 0, last-1)
		for _, l := range locations[1:last] {
			waypoints = append(waypoints, encodeStop(l, state))
		}
		b.WriteString("&waypoints=")
		b.WriteString(strings.Join(waypoints, "|"))
	}

	return b.String()
}

// StopLabel formats a location as "{address}, {city}, {state} {zip}".
// A blank zip is omitted together with its separating space, so the label
// ends in the state rather than "TX ".
func StopLabel(l domain.Location, state string) string {
	region := strings.TrimSpace(state + " " + strings.TrimSpace(l.Zip))
	label := fmt.Sprintf("%s, %s", strings.TrimSpace(l.Address), strings.TrimSpace(l.City))
	if region != "" {
		label += ", " + region
	}
	return label
}

// Spaces are encoded as %20 rather than '+' so the link survives copy/paste
// into apps that decode components strictly. QueryEscape also escapes
// !'()* which encodeURIComponent leaves literal; Maps decodes both forms.
func encodeStop(l domain.Location, state string) string {
	return strings.ReplaceAll(url.QueryEscape(StopLabel(l, state)), "+", "%20")
}
