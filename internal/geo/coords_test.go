package geo

import (
	"errors"
	"math"
	"testing"
)

func TestParseCoordinate(t *testing.T) {
	cases := map[string]float64{
		"37.8712":    37.8712,
		"37,8712":    37.8712, // decimal comma
		"37.123.456": 37.123456,
		"378712":     37.8712, // missing decimal point
		" 32.5 ":     32.5,
	}
	for in, want := range cases {
		got, err := ParseCoordinate(in)
		if err != nil {
			t.Errorf("ParseCoordinate(%q): %v", in, err)
			continue
		}
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("ParseCoordinate(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseCoordinate("not a number"); err == nil {
		t.Error("expected error for garbage input")
	}
}

// TestRepairPairSwapsAxes: exports sometimes write longitude into the
// latitude column. A latitude near 32 with a longitude near 37 can only
// be a swapped pair in this service area.
func TestRepairPairSwapsAxes(t *testing.T) {
	lat, lng, err := RepairPair("32.4846", "37.8712")
	if err != nil {
		t.Fatalf("RepairPair: %v", err)
	}
	if math.Abs(lat-37.8712) > 1e-9 || math.Abs(lng-32.4846) > 1e-9 {
		t.Errorf("got (%v, %v), want axes swapped to (37.8712, 32.4846)", lat, lng)
	}
}

func TestRepairPairValid(t *testing.T) {
	lat, lng, err := RepairPair("37,8712", "32.484.600")
	if err != nil {
		t.Fatalf("RepairPair: %v", err)
	}
	if math.Abs(lat-37.8712) > 1e-9 || math.Abs(lng-32.4846) > 1e-9 {
		t.Errorf("got (%v, %v)", lat, lng)
	}
}

func TestRepairPairOutOfBounds(t *testing.T) {
	// Istanbul is outside the service area; guessing would silently
	// place stops hundreds of kilometers away.
	if _, _, err := RepairPair("41.0082", "28.9784"); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("error = %v, want ErrOutOfBounds", err)
	}
	if _, _, err := RepairPair("0", "0"); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("zero pair error = %v, want ErrOutOfBounds", err)
	}
}
