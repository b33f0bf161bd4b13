// Package geo repairs the malformed coordinates found in route-geometry
// exports before they are stored. The heuristics are specific to the
// Konya service area.
package geo

import (
	"errors"
	"strconv"
	"strings"
)

// Konya service-area bounds. Points repaired outside this box are
// rejected rather than guessed at.
const (
	MinLat = 36.0
	MaxLat = 39.0
	MinLng = 31.0
	MaxLng = 35.0
)

// ErrOutOfBounds marks a coordinate pair that could not be repaired into
// the service area.
var ErrOutOfBounds = errors.New("geo: coordinate outside service area")

// ParseCoordinate repairs a single raw coordinate cell:
// decimal commas ("37,9" -> 37.9), doubled thousand separators
// ("37.123.456" -> 37.123456), and missing decimal points (378712 -> 37.8712,
// scaled down until plausible).
func ParseCoordinate(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if strings.Count(s, ".") > 1 {
		parts := strings.Split(s, ".")
		s = parts[0] + "." + strings.Join(parts[1:], "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	for v > 100 {
		v /= 10
	}
	return v, nil
}

// RepairPair parses a raw latitude/longitude pair, swaps the axes when
// they arrive reversed (latitude near 32, longitude near 37), and
// validates the result against the service-area bounds.
func RepairPair(rawLat, rawLng string) (lat, lng float64, err error) {
	lat, err = ParseCoordinate(rawLat)
	if err != nil {
		return 0, 0, err
	}
	lng, err = ParseCoordinate(rawLng)
	if err != nil {
		return 0, 0, err
	}

	// Swapped axes: a "latitude" near 32 with a "longitude" near 37 is
	// really a longitude/latitude pair in the wrong columns.
	if lat > 31 && lat < 35 && lng > 36 && lng < 39 {
		lat, lng = lng, lat
	}

	if lat <= MinLat || lat >= MaxLat || lng <= MinLng || lng >= MaxLng {
		return 0, 0, ErrOutOfBounds
	}
	return lat, lng, nil
}
