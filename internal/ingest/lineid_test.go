package ingest

import "testing"

// TestCanonicalLineID covers the representations one line number takes
// across source files; every variant of line 4 must produce the same
// join key or cross-file reconciliation silently drops data.
func TestCanonicalLineID(t *testing.T) {
	cases := map[string]string{
		"4":      "4",
		" 4 ":    "4",
		"4.0":    "4",
		"4.00":   "4",
		"04":     "4",
		"04.00":  "4",
		"0":      "0",
		"4.5":    "4.5", // real fraction, not a float artifact
		"56-1":   "56-1",
		"A3":     "A3",
		"":       "",
		"  ":     "",
		"120":    "120", // trailing zeros are not leading zeros
		"4.000":  "4",
		"hat4":   "hat4",
	}
	for in, want := range cases {
		if got := CanonicalLineID(in); got != want {
			t.Errorf("CanonicalLineID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalLineIDIdempotent(t *testing.T) {
	for _, in := range []string{"4", "04.00", " 56-1 ", "A3", "4.5"} {
		once := CanonicalLineID(in)
		twice := CanonicalLineID(once)
		if once != twice {
			t.Errorf("CanonicalLineID not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSplitLineID(t *testing.T) {
	cases := []struct {
		in        string
		main, sub string
	}{
		{"56", "56", "0"},
		{"56-1", "56", "1"},
		{"056-01", "56", "1"},
		{"4.0", "4", "0"},
	}
	for _, tc := range cases {
		main, sub := SplitLineID(tc.in)
		if main != tc.main || sub != tc.sub {
			t.Errorf("SplitLineID(%q) = (%q, %q), want (%q, %q)", tc.in, main, sub, tc.main, tc.sub)
		}
	}
}
