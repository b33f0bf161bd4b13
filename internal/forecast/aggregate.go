package forecast

import "time"

// Aggregation selects the bucket size of a served forecast.
type Aggregation string

const (
	AggHour  Aggregation = "hour"
	AggDay   Aggregation = "day"
	AggMonth Aggregation = "month"
)

// PeriodSettings maps a query period to its forecast horizon and bucket
// size.
func PeriodSettings(period string) (hours int, agg Aggregation) {
	switch period {
	case "weekly":
		return 7 * 24, AggDay
	case "monthly":
		return 30 * 24, AggDay
	case "yearly":
		return 365 * 24, AggMonth
	default: // daily
		return 24, AggHour
	}
}

// Aggregate sums hourly forecast points into the requested buckets.
// Bounds are summed too: the band of a bucket is the sum of its hourly
// bands. Buckets are keyed on the calendar day or month of the local
// timestamp, so the hourly values within one day sum exactly to that
// day's aggregated value.
func Aggregate(points []Point, agg Aggregation) []Point {
	if agg == AggHour || len(points) == 0 {
		return points
	}

	var out []Point
	var key time.Time
	for _, p := range points {
		k := bucketStart(p.Timestamp, agg)
		if len(out) == 0 || !k.Equal(key) {
			out = append(out, Point{Timestamp: k})
			key = k
		}
		last := &out[len(out)-1]
		last.Value += p.Value
		last.Lower += p.Lower
		last.Upper += p.Upper
	}
	return out
}

func bucketStart(t time.Time, agg Aggregation) time.Time {
	switch agg {
	case AggMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}
