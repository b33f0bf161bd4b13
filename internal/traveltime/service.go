// Package traveltime trains and serves the stop-to-stop travel duration
// estimator: label-encoded categorical features into a gradient-boosted
// stump ensemble, with an optional autoregressive correction from
// recently observed delays.
package traveltime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/QuanLionSoft/KonyaBusProject/internal/ingest"
	"github.com/QuanLionSoft/KonyaBusProject/internal/stats"
)

const (
	// SchemaVersion is bumped whenever the persisted artifact layout
	// changes; a mismatch on load is treated as corruption.
	SchemaVersion = 1

	// Durations outside (0, maxDurationSec) seconds are clock glitches
	// or overnight layovers, not travel, and are dropped before
	// training.
	maxDurationSec = 7200

	// MinDurationSec is the serving floor: no predicted hop is shorter
	// than this many seconds.
	MinDurationSec = 30

	// FallbackDurationSec is served when the model fails internally at
	// prediction time. Queries for unseen identifiers do not fall back;
	// they error.
	FallbackDurationSec = 60

	delayLookBack = 5
)

// ErrNotTrained is returned when a prediction is requested before any
// model has been trained or loaded.
var ErrNotTrained = errors.New("traveltime: model not trained")

// artifactName is the single global model file; travel times are modeled
// across all lines at once, unlike the per-line demand models.
const artifactName = "travel_model.json"

// model is the persisted estimator state.
type model struct {
	Version   int       `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Rows      int       `json:"rows"`

	Lines *LabelEncoder `json:"lines"`
	Stops *LabelEncoder `json:"stops"`

	Regressor *GBTRegressor `json:"regressor"`

	// Optional correction over recent observed delays, scaled to [0,1].
	Delay  *stats.ARModel      `json:"delay,omitempty"`
	Scaler *stats.MinMaxScaler `json:"scaler,omitempty"`
}

// Metrics is the instrumentation sink for training and serving
// activity. A nil sink is ignored, so batch commands run without one.
type Metrics interface {
	FallbackInc()
	RowsIngested(read int, skippedByReason map[string]int)
}

// Estimator trains, persists and serves the travel-time model.
type Estimator struct {
	dataDir  string
	modelDir string
	metrics  Metrics

	mu    sync.Mutex
	model *model

	fallbacks int
}

// NewEstimator creates the estimator. modelDir is created if absent.
func NewEstimator(dataDir, modelDir string) (*Estimator, error) {
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}
	return &Estimator{dataDir: dataDir, modelDir: modelDir}, nil
}

// SetMetrics attaches the instrumentation sink. Call before serving.
func (e *Estimator) SetMetrics(m Metrics) {
	e.metrics = m
}

func (e *Estimator) artifactPath() string {
	return filepath.Join(e.modelDir, artifactName)
}

// Train reads every travel log, filters implausible durations, fits the
// encoders and the regressor and persists the artifact.
func (e *Estimator) Train() error {
	var (
		lineVals, stopVals []string
		rows               []ingest.TripRow
	)
	summary, err := ingest.StreamTripRows(e.dataDir, func(row ingest.TripRow) {
		if row.DurationSec <= 0 || row.DurationSec >= maxDurationSec {
			return
		}
		rows = append(rows, row)
		lineVals = append(lineVals, row.LineID)
		stopVals = append(stopVals, row.OriginStop, row.DestStop)
	})
	if err != nil {
		return fmt.Errorf("traveltime: reading trip logs: %w", err)
	}
	log.Printf("Travel time: %d rows read, %d skipped from %d files; %d usable",
		summary.RowsRead, summary.RowsSkipped, summary.FilesRead, len(rows))
	if e.metrics != nil {
		e.metrics.RowsIngested(summary.RowsRead, summary.SkipReasons)
	}
	if len(rows) == 0 {
		return errors.New("traveltime: no usable trip rows")
	}

	m := &model{
		Version:   SchemaVersion,
		TrainedAt: time.Now().UTC(),
		Rows:      len(rows),
		// Stops share one encoder over the union of origins and
		// destinations, so a stop has the same code in either role.
		Lines: NewLabelEncoder("line", lineVals),
		Stops: NewLabelEncoder("stop", stopVals),
	}

	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, row := range rows {
		x[i] = m.features(row)
		y[i] = float64(row.DurationSec)
	}

	reg, err := FitGBT(x, y, defaultRounds, defaultShrinkage)
	if err != nil {
		return fmt.Errorf("traveltime: fitting regressor: %w", err)
	}
	m.Regressor = reg

	m.fitDelayModel(x, y)

	if err := e.persist(m); err != nil {
		return fmt.Errorf("traveltime: persisting model: %w", err)
	}
	e.mu.Lock()
	e.model = m
	e.mu.Unlock()
	return nil
}

// features builds the row the regressor was trained on. Encoding cannot
// fail here because the encoders were just fitted on these same rows.
func (m *model) features(row ingest.TripRow) []float64 {
	line, _ := m.Lines.Transform(row.LineID)
	origin, _ := m.Stops.Transform(row.OriginStop)
	dest, _ := m.Stops.Transform(row.DestStop)
	return []float64{
		float64(line),
		float64(origin),
		float64(dest),
		float64(row.Departure.Hour()),
		float64(row.Departure.Weekday()),
	}
}

// fitDelayModel trains the AR correction over the regressor's training
// errors. Best-effort: the base regressor alone still serves.
func (m *model) fitDelayModel(x [][]float64, y []float64) {
	if len(y) <= delayLookBack*2 {
		return
	}
	errs := make([]float64, len(y))
	for i := range y {
		errs[i] = y[i] - m.Regressor.Predict(x[i])
	}
	scaler := &stats.MinMaxScaler{}
	scaler.Fit(errs)
	scaled := make([]float64, len(errs))
	for i, v := range errs {
		scaled[i] = scaler.Transform(v)
	}
	ar, err := stats.FitAR(scaled, delayLookBack)
	if err != nil {
		return
	}
	m.Delay = ar
	m.Scaler = scaler
}

func (e *Estimator) persist(m *model) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	path := e.artifactPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads the persisted artifact from disk. Missing file returns
// ErrNotTrained; a corrupt or incompatible artifact returns an error.
func (e *Estimator) Load() error {
	data, err := os.ReadFile(e.artifactPath())
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotTrained
		}
		return err
	}
	var m model
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("traveltime: corrupt artifact: %w", err)
	}
	if m.Version != SchemaVersion {
		return fmt.Errorf("traveltime: corrupt artifact: schema version %d, want %d", m.Version, SchemaVersion)
	}
	if m.Lines == nil || m.Stops == nil {
		return errors.New("traveltime: corrupt artifact: encoders missing")
	}
	// The encoder lookup indexes are not persisted. Rebuild them before
	// the model becomes visible to concurrent requests; Transform does
	// not rebuild on the fly.
	m.Lines.buildIndex()
	m.Stops.buildIndex()
	e.mu.Lock()
	e.model = &m
	e.mu.Unlock()
	return nil
}

// Trained reports whether a model is available in memory.
func (e *Estimator) Trained() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model != nil
}

// Fallbacks returns how many predictions fell back to the default
// duration because of an internal failure.
func (e *Estimator) Fallbacks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fallbacks
}

// PredictDuration estimates the travel time in seconds between two stops
// on a line at the given hour and weekday. recentDelays, when it holds
// at least the look-back window of observed delays in seconds (most
// recent last), feeds the correction model.
//
// Unseen line or stop identifiers return UnseenIdentifierError: serving
// a made-up duration for an identifier the model has never encoded would
// hide a stale model. Any other internal failure degrades to the
// fallback duration without an error.
func (e *Estimator) PredictDuration(lineID, originStop, destStop string, hour int, weekday time.Weekday, recentDelays []float64) (int, error) {
	e.mu.Lock()
	m := e.model
	e.mu.Unlock()
	if m == nil {
		return 0, ErrNotTrained
	}

	line, err := m.Lines.Transform(ingest.CanonicalLineID(lineID))
	if err != nil {
		return 0, err
	}
	origin, err := m.Stops.Transform(originStop)
	if err != nil {
		return 0, err
	}
	dest, err := m.Stops.Transform(destStop)
	if err != nil {
		return 0, err
	}

	sec, err := e.predict(m, []float64{
		float64(line),
		float64(origin),
		float64(dest),
		float64(hour),
		float64(weekday),
	}, recentDelays)
	if err != nil {
		log.Printf("Travel time: prediction failed (%v), serving fallback", err)
		e.mu.Lock()
		e.fallbacks++
		e.mu.Unlock()
		if e.metrics != nil {
			e.metrics.FallbackInc()
		}
		return FallbackDurationSec, nil
	}
	if sec < MinDurationSec {
		sec = MinDurationSec
	}
	return sec, nil
}

func (e *Estimator) predict(m *model, row []float64, recentDelays []float64) (int, error) {
	if m.Regressor == nil {
		return 0, errors.New("regressor missing from artifact")
	}
	v := m.Regressor.Predict(row)

	if m.Delay != nil && m.Scaler != nil && len(recentDelays) >= m.Delay.LookBack {
		scaled := make([]float64, len(recentDelays))
		for i, d := range recentDelays {
			scaled[i] = m.Scaler.Transform(d)
		}
		if corr, err := m.Delay.Predict(scaled); err == nil {
			v += m.Scaler.Inverse(corr)
		}
	}
	return int(v + 0.5), nil
}
