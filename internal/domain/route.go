package domain

import "fmt"

// Represents the result of one route optimization.
// OrderedLocations is the visiting order; distances are in miles and
// durations in minutes. It is transient planning data and never persisted.
type OptimizedRoute struct {
	OrderedLocations   []Location
	TotalDistanceMiles float64
	EstimatedMinutes   int
	GoogleMapsURL      string
}

// UnlocatablePolicy decides what happens to stops without coordinates
// when at least one other stop is geocoded.
type UnlocatablePolicy string

const (
	// Ungeocoded stops are left out of the ordered result.
	UnlocatableDrop UnlocatablePolicy = "drop"
	// Ungeocoded stops follow the optimized stops, in input order.
	UnlocatableAppend UnlocatablePolicy = "append"
)

// ParseUnlocatablePolicy accepts "drop", "append" or "" (drop).
func ParseUnlocatablePolicy(s string) (UnlocatablePolicy, error) {
	switch UnlocatablePolicy(s) {
	case "", UnlocatableDrop:
		return UnlocatableDrop, nil
	case UnlocatableAppend:
		return UnlocatableAppend, nil
	}
	return "", fmt.Errorf("unknown unlocatable policy %q", s)
}
