package series

import (
	"testing"
	"time"
)

func TestParseTimestampFormats(t *testing.T) {
	cases := []struct {
		date, hour string
		want       string
	}{
		{"2021-01-04", "08", "2021-01-04 08:00"},
		{"2021-01-04", "8", "2021-01-04 08:00"},
		{"04.01.2021", "08:15:00", "2021-01-04 08:00"},
		{"2021-01-04 08:15:00", "", "2021-01-04 08:00"},
		{"2021-01-04", "", "2021-01-04 00:00"},
	}
	for _, tc := range cases {
		got, ok := ParseTimestamp(tc.date, tc.hour)
		if !ok {
			t.Errorf("ParseTimestamp(%q, %q) failed", tc.date, tc.hour)
			continue
		}
		if s := got.Format("2006-01-02 15:04"); s != tc.want {
			t.Errorf("ParseTimestamp(%q, %q) = %s, want %s", tc.date, tc.hour, s, tc.want)
		}
	}

	if _, ok := ParseTimestamp("garbage", "xx"); ok {
		t.Error("expected failure for unparseable input")
	}
}

// TestBuilderHourlyGapFree is the core resampling property: the output
// grid has no holes, and hours without boardings carry an explicit zero.
func TestBuilderHourlyGapFree(t *testing.T) {
	b := NewBuilder()
	base := time.Date(2021, 1, 4, 6, 0, 0, 0, time.UTC)
	b.Add(base, 10)
	b.Add(base.Add(3*time.Hour), 4) // hours 7 and 8 unobserved
	b.Add(base.Add(3*time.Hour), 2) // same hour twice: summed

	s := b.Hourly()
	if s.Len() != 4 {
		t.Fatalf("series length = %d, want 4", s.Len())
	}
	want := []float64{10, 0, 0, 6}
	for i, v := range want {
		if s.Values[i] != v {
			t.Errorf("Values[%d] = %v, want %v", i, s.Values[i], v)
		}
	}
	if !s.TimeAt(1).Equal(base.Add(time.Hour)) {
		t.Errorf("TimeAt(1) = %v, want %v", s.TimeAt(1), base.Add(time.Hour))
	}
	if !s.End().Equal(base.Add(3 * time.Hour)) {
		t.Errorf("End() = %v", s.End())
	}
}

func TestBuilderSubHourTruncation(t *testing.T) {
	b := NewBuilder()
	base := time.Date(2021, 1, 4, 8, 0, 0, 0, time.UTC)
	b.Add(base.Add(10*time.Minute), 1)
	b.Add(base.Add(50*time.Minute), 1)

	s := b.Hourly()
	if s.Len() != 1 || s.Values[0] != 2 {
		t.Errorf("sub-hour events not grouped: len=%d values=%v", s.Len(), s.Values)
	}
}

func TestBuilderEmpty(t *testing.T) {
	s := NewBuilder().Hourly()
	if s.Len() != 0 {
		t.Errorf("empty builder produced %d points", s.Len())
	}
}
