package forecast

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
	"github.com/QuanLionSoft/KonyaBusProject/internal/series"
)

// MinTrainingPoints is the minimum viable series length: two full days
// of hourly data. Shorter series cannot support the weekly profile.
const MinTrainingPoints = 48

var (
	// ErrInsufficientData means a line has no usable series to train
	// on. Surfaced to the caller as "not trained", not a system failure.
	ErrInsufficientData = errors.New("forecast: insufficient training data")

	// ErrModelUnavailable means even retraining could not produce a
	// model; this is an internal failure, distinct from missing data.
	ErrModelUnavailable = errors.New("forecast: model unavailable")
)

// State describes a line's model lifecycle.
type State string

const (
	StateUntrained State = "UNTRAINED"
	StateTrained   State = "TRAINED"
	StateStale     State = "STALE"
)

// Metrics is the instrumentation sink for training activity. A nil sink
// is ignored, so batch commands run without one.
type Metrics interface {
	TrainingRunInc()
	RowsIngested(read int, skippedByReason map[string]int)
}

// Service trains, persists and serves per-line demand models. One
// Service is constructed at process start and shared by reference; the
// in-memory cache and the per-line locks replace the global singleton
// predictor the request handlers would otherwise reach for.
type Service struct {
	dataDir  string
	modelDir string
	metrics  Metrics

	mu       sync.Mutex
	cache    map[string]*Model
	inflight map[string]*sync.Mutex // per-line guard around lazy training

	trainings int
}

// NewService creates the forecaster. modelDir is created if absent.
func NewService(dataDir, modelDir string) (*Service, error) {
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}
	return &Service{
		dataDir:  dataDir,
		modelDir: modelDir,
		cache:    make(map[string]*Model),
		inflight: make(map[string]*sync.Mutex),
	}, nil
}

// SetMetrics attaches the instrumentation sink. Call before serving.
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

func (s *Service) artifactPath(lineID string) string {
	return filepath.Join(s.modelDir, "demand_line_"+lineID+".json")
}

// lineLock returns the mutex guarding lazy training for one line, so
// concurrent first requests for the same line train once, not twice.
func (s *Service) lineLock(lineID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.inflight[lineID]
	if !ok {
		l = &sync.Mutex{}
		s.inflight[lineID] = l
	}
	return l
}

// Train builds the hourly series for a line from every boarding-event
// file and fits a fresh model, persisting it on success.
func (s *Service) Train(lineID string) (*Model, error) {
	lineID = ingest.CanonicalLineID(lineID)

	builder := series.NewBuilder()
	summary, err := ingest.StreamBoardingEvents(s.dataDir, lineID, func(ev ingest.BoardingEvent) {
		if t, ok := series.ParseTimestamp(ev.Date, ev.Hour); ok {
			builder.Add(t, ev.Passengers)
		}
	})
	if err != nil {
		if errors.Is(err, ingest.ErrNoData) {
			return nil, ErrInsufficientData
		}
		return nil, fmt.Errorf("forecast: reading boarding events: %w", err)
	}
	log.Printf("Forecast: line %s: %d rows read, %d skipped from %d files",
		lineID, summary.RowsRead, summary.RowsSkipped, summary.FilesRead)
	if s.metrics != nil {
		s.metrics.RowsIngested(summary.RowsRead, summary.SkipReasons)
	}

	hourly := builder.Hourly()
	if hourly.Len() < MinTrainingPoints {
		return nil, ErrInsufficientData
	}

	model := Fit(lineID, hourly)
	if err := s.persist(model); err != nil {
		return nil, fmt.Errorf("forecast: persisting model for line %s: %w", lineID, err)
	}

	s.mu.Lock()
	s.cache[lineID] = model
	s.trainings++
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.TrainingRunInc()
	}

	return model, nil
}

func (s *Service) persist(m *Model) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	path := s.artifactPath(m.LineID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// load reads a persisted model from disk. A deserialization failure or
// schema mismatch returns an error the caller treats as corruption.
func (s *Service) load(lineID string) (*Model, error) {
	data, err := os.ReadFile(s.artifactPath(lineID))
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("corrupt artifact: %w", err)
	}
	if m.Version != SchemaVersion {
		return nil, fmt.Errorf("corrupt artifact: schema version %d, want %d", m.Version, SchemaVersion)
	}
	return &m, nil
}

// State reports the model lifecycle state for a line without training.
func (s *Service) State(lineID string) State {
	lineID = ingest.CanonicalLineID(lineID)
	s.mu.Lock()
	if _, ok := s.cache[lineID]; ok {
		s.mu.Unlock()
		return StateTrained
	}
	s.mu.Unlock()

	if _, err := os.Stat(s.artifactPath(lineID)); err != nil {
		return StateUntrained
	}
	if _, err := s.load(lineID); err != nil {
		return StateStale
	}
	return StateTrained
}

// TrainingRuns returns how many training runs the service has executed.
func (s *Service) TrainingRuns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trainings
}

// Predict serves a forecast for a line starting at the current hour.
// A missing model is trained on first use; a corrupt artifact is deleted
// and retrained once before the call fails with ErrModelUnavailable.
func (s *Service) Predict(lineID string, horizonHours int, agg Aggregation) ([]Point, error) {
	return s.predictFrom(lineID, time.Now(), horizonHours, agg)
}

func (s *Service) predictFrom(lineID string, from time.Time, horizonHours int, agg Aggregation) ([]Point, error) {
	lineID = ingest.CanonicalLineID(lineID)

	lock := s.lineLock(lineID)
	lock.Lock()
	defer lock.Unlock()

	model, err := s.materialize(lineID)
	if err != nil {
		return nil, err
	}

	points := model.Forecast(from, horizonHours)
	return Aggregate(points, agg), nil
}

// materialize returns the line's model: cached, loaded from disk, or
// lazily trained. Callers hold the per-line lock.
func (s *Service) materialize(lineID string) (*Model, error) {
	s.mu.Lock()
	model, ok := s.cache[lineID]
	s.mu.Unlock()
	if ok {
		return model, nil
	}

	model, err := s.load(lineID)
	if err == nil {
		s.mu.Lock()
		s.cache[lineID] = model
		s.mu.Unlock()
		return model, nil
	}

	if !os.IsNotExist(err) {
		// Corrupt or incompatible artifact: delete and retrain once.
		log.Printf("Forecast: line %s artifact unusable (%v), retraining", lineID, err)
		os.Remove(s.artifactPath(lineID))
	}

	model, trainErr := s.Train(lineID)
	if trainErr != nil {
		if errors.Is(trainErr, ErrInsufficientData) {
			return nil, trainErr
		}
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, trainErr)
	}
	return model, nil
}
