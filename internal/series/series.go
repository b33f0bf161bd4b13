// Package series turns raw boarding events into the regular hourly
// demand series the forecasting models train on.
package series

import (
	"sort"
	"time"
)

// timestampFormats are tried in order when combining a date column and
// an hour column. Source files disagree on both the date order and
// whether the hour carries minutes/seconds.
var timestampFormats = []string{
	"2006-01-02 15",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
	"02.01.2006 15",
	"2006-01-02 15:04",
	"02.01.2006 15:04",
	"2006-01-02",
	"02.01.2006",
}

// ParseTimestamp combines a raw date and hour cell into an hour-resolution
// timestamp. Returns false when no known format matches; such rows are
// discarded by the caller.
func ParseTimestamp(date, hour string) (time.Time, bool) {
	candidates := []string{date}
	if hour != "" {
		candidates = []string{date + " " + hour, date}
	}
	for _, s := range candidates {
		for _, layout := range timestampFormats {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Truncate(time.Hour), true
			}
		}
	}
	return time.Time{}, false
}

// Point is one entry of an hourly demand series.
type Point struct {
	Timestamp time.Time
	Total     float64
}

// Builder accumulates per-event passenger counts grouped by exact hour.
// Overlapping source files report the same hours; their counts are summed
// because the export format has no unique event key to deduplicate on.
type Builder struct {
	totals map[time.Time]float64
}

// NewBuilder returns an empty accumulator.
func NewBuilder() *Builder {
	return &Builder{totals: make(map[time.Time]float64)}
}

// Add records passengers boarding at the given hour.
func (b *Builder) Add(t time.Time, passengers float64) {
	b.totals[t.Truncate(time.Hour)] += passengers
}

// Len returns the number of distinct observed hours.
func (b *Builder) Len() int { return len(b.totals) }

// Hourly resamples the accumulated totals onto a strictly hourly grid
// spanning the observed min and max hour. Hours with no recorded events
// are filled with zero: absence of smartcard taps is zero demand, not
// missing data, and the models require unbroken regular sampling.
func (b *Builder) Hourly() Series {
	if len(b.totals) == 0 {
		return Series{}
	}

	hours := make([]time.Time, 0, len(b.totals))
	for t := range b.totals {
		hours = append(hours, t)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })

	start, end := hours[0], hours[len(hours)-1]
	n := int(end.Sub(start)/time.Hour) + 1
	values := make([]float64, n)
	for t, v := range b.totals {
		values[int(t.Sub(start)/time.Hour)] = v
	}
	return Series{Start: start, Values: values}
}

// Series is a gap-free hourly demand series: Values[i] is the passenger
// total for the hour Start + i hours.
type Series struct {
	Start  time.Time
	Values []float64
}

// Len returns the number of hours covered.
func (s Series) Len() int { return len(s.Values) }

// TimeAt returns the timestamp of index i.
func (s Series) TimeAt(i int) time.Time {
	return s.Start.Add(time.Duration(i) * time.Hour)
}

// End returns the timestamp of the last entry, zero for an empty series.
func (s Series) End() time.Time {
	if len(s.Values) == 0 {
		return time.Time{}
	}
	return s.TimeAt(len(s.Values) - 1)
}

// Points materializes the series, mostly for tests and debugging.
func (s Series) Points() []Point {
	out := make([]Point, len(s.Values))
	for i, v := range s.Values {
		out[i] = Point{Timestamp: s.TimeAt(i), Total: v}
	}
	return out
}
