// Package forecast trains and serves the per-line passenger demand
// models: an additive trend+seasonality decomposition with an optional
// autoregressive residual correction.
package forecast

import (
	"time"

	"github.com/QuanLionSoft/KonyaBusProject/internal/series"
	"github.com/QuanLionSoft/KonyaBusProject/internal/stats"
)

// SchemaVersion is bumped whenever the persisted model layout changes.
// Loading an artifact with a different version is treated as corruption:
// the file is deleted and the line retrained.
const SchemaVersion = 2

// residualLookBack is the window of trailing fitting errors fed into the
// correction model.
const residualLookBack = 5

// Model is a fitted demand model for one line. It decomposes the hourly
// series into a linear trend, an hour-of-week profile (daily and weekly
// periodicity), a month-of-year profile (yearly periodicity) and a
// national-holiday offset. All components are additive.
type Model struct {
	Version   int       `json:"version"`
	LineID    string    `json:"line_id"`
	TrainedAt time.Time `json:"trained_at"`

	SeriesStart time.Time `json:"series_start"`
	SeriesLen   int       `json:"series_len"`

	Intercept   float64      `json:"intercept"`
	Slope       float64      `json:"slope"`
	HourOfWeek  [168]float64 `json:"hour_of_week"`
	Month       [12]float64  `json:"month"`
	Holiday     float64      `json:"holiday"`
	ResidualStd float64      `json:"residual_std"`

	// Optional correction model over the trend model's fitting errors.
	// Best-effort: nil when the series was too short or fitting failed.
	Residual      *stats.ARModel      `json:"residual,omitempty"`
	Scaler        *stats.MinMaxScaler `json:"scaler,omitempty"`
	LastResiduals []float64           `json:"last_residuals,omitempty"`
}

// Point is one forecast step with its confidence band.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
}

// Fit trains a Model on a gap-free hourly series.
func Fit(lineID string, s series.Series) *Model {
	m := &Model{
		Version:     SchemaVersion,
		LineID:      lineID,
		TrainedAt:   time.Now().UTC(),
		SeriesStart: s.Start,
		SeriesLen:   s.Len(),
	}

	n := s.Len()
	y := s.Values

	// Linear trend by ordinary least squares over the hour index.
	var sumX, sumX2, sumY, sumXY float64
	for i := 0; i < n; i++ {
		x := float64(i)
		sumX += x
		sumX2 += x * x
		sumY += y[i]
		sumXY += x * y[i]
	}
	det := float64(n)*sumX2 - sumX*sumX
	if det != 0 {
		m.Slope = (float64(n)*sumXY - sumX*sumY) / det
		m.Intercept = (sumY - m.Slope*sumX) / float64(n)
	} else {
		m.Intercept = stats.Mean(y)
	}

	// Hour-of-week profile from detrended values.
	var howSum [168]float64
	var howCount [168]int
	for i := 0; i < n; i++ {
		resid := y[i] - m.trend(i)
		h := hourOfWeek(s.TimeAt(i))
		howSum[h] += resid
		howCount[h]++
	}
	for h := range m.HourOfWeek {
		if howCount[h] > 0 {
			m.HourOfWeek[h] = howSum[h] / float64(howCount[h])
		}
	}

	// Month profile from what the trend and weekly profile leave over.
	var moSum [12]float64
	var moCount [12]int
	for i := 0; i < n; i++ {
		t := s.TimeAt(i)
		resid := y[i] - m.trend(i) - m.HourOfWeek[hourOfWeek(t)]
		mo := int(t.Month()) - 1
		moSum[mo] += resid
		moCount[mo]++
	}
	for mo := range m.Month {
		if moCount[mo] > 0 {
			m.Month[mo] = moSum[mo] / float64(moCount[mo])
		}
	}

	// Holiday offset and residual spread over the final residuals.
	var holSum float64
	var holCount int
	var spread stats.Welford
	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		t := s.TimeAt(i)
		fitted := m.trend(i) + m.HourOfWeek[hourOfWeek(t)] + m.Month[int(t.Month())-1]
		resid := y[i] - fitted
		if IsNationalHoliday(t) {
			holSum += resid
			holCount++
		}
		residuals[i] = resid
	}
	if holCount > 0 {
		m.Holiday = holSum / float64(holCount)
	}
	for i := 0; i < n; i++ {
		r := residuals[i]
		if IsNationalHoliday(s.TimeAt(i)) {
			r -= m.Holiday
		}
		residuals[i] = r
		spread.Update(r)
	}
	m.ResidualStd = spread.StdDev()

	m.fitResidualModel(residuals)
	return m
}

// fitResidualModel trains the AR correction over the fitting errors.
// Failure here is acceptable; the base model alone still serves.
func (m *Model) fitResidualModel(residuals []float64) {
	if len(residuals) <= residualLookBack*2 {
		return
	}
	scaler := &stats.MinMaxScaler{}
	scaler.Fit(residuals)
	scaled := make([]float64, len(residuals))
	for i, r := range residuals {
		scaled[i] = scaler.Transform(r)
	}
	ar, err := stats.FitAR(scaled, residualLookBack)
	if err != nil {
		return
	}
	m.Residual = ar
	m.Scaler = scaler
	m.LastResiduals = append([]float64(nil), scaled[len(scaled)-residualLookBack:]...)
}

func (m *Model) trend(i int) float64 {
	return m.Intercept + m.Slope*float64(i)
}

func hourOfWeek(t time.Time) int {
	return int(t.Weekday())*24 + t.Hour()
}

// baseValue is the additive decomposition's estimate for one hour.
func (m *Model) baseValue(t time.Time) float64 {
	i := int(t.Sub(m.SeriesStart) / time.Hour)
	v := m.trend(i) + m.HourOfWeek[hourOfWeek(t)] + m.Month[int(t.Month())-1]
	if IsNationalHoliday(t) {
		v += m.Holiday
	}
	return v
}

// Forecast produces hourly predictions from the given start hour.
// The residual correction, when present, is propagated recursively:
// each step's predicted residual is appended to the window that predicts
// the next step's. Values and both bounds are clipped at zero; negative
// ridership is meaningless.
func (m *Model) Forecast(from time.Time, hours int) []Point {
	from = from.Truncate(time.Hour)
	out := make([]Point, 0, hours)

	window := append([]float64(nil), m.LastResiduals...)
	band := 1.96 * m.ResidualStd

	for i := 0; i < hours; i++ {
		t := from.Add(time.Duration(i) * time.Hour)
		v := m.baseValue(t)

		if m.Residual != nil && m.Scaler != nil && len(window) >= m.Residual.LookBack {
			if scaled, err := m.Residual.Predict(window); err == nil {
				v += m.Scaler.Inverse(scaled)
				window = append(window[1:], scaled)
			}
		}

		out = append(out, Point{
			Timestamp: t,
			Value:     clipZero(v),
			Lower:     clipZero(v - band),
			Upper:     clipZero(v + band),
		})
	}
	return out
}

func clipZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
