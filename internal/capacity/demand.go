package capacity

import (
	"github.com/QuanLionSoft/KonyaBusProject/internal/ingest"
	"github.com/QuanLionSoft/KonyaBusProject/internal/series"
	"github.com/QuanLionSoft/KonyaBusProject/internal/stats"
)

// FileDemand computes average demand per hour of day straight from the
// boarding-event files. It satisfies DemandSource.
type FileDemand struct {
	DataDir string
}

// AvgDemandByHour returns, per hour of day, the mean of the hourly
// boarding totals observed for that hour across all dates. Each
// (date, hour) pair is one observation; hours a line never served on a
// given date contribute nothing rather than an implicit zero.
func (d *FileDemand) AvgDemandByHour(lineID string) (map[int]float64, error) {
	lineID = ingest.CanonicalLineID(lineID)

	type key struct {
		date string
		hour int
	}
	totals := make(map[key]float64)

	_, err := ingest.StreamBoardingEvents(d.DataDir, lineID, func(ev ingest.BoardingEvent) {
		t, ok := series.ParseTimestamp(ev.Date, ev.Hour)
		if !ok {
			return
		}
		totals[key{t.Format("2006-01-02"), t.Hour()}] += ev.Passengers
	})
	if err != nil {
		return nil, err
	}

	byHour := make(map[int]*stats.Welford)
	for k, total := range totals {
		w, ok := byHour[k.hour]
		if !ok {
			w = &stats.Welford{}
			byHour[k.hour] = w
		}
		w.Update(total)
	}

	out := make(map[int]float64, len(byHour))
	for hour, w := range byHour {
		out[hour] = w.Mean
	}
	return out, nil
}
