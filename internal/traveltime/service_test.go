package traveltime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// writeTripFixture writes a travel log with regular hops between three
// stops on line 4, plus the given extra raw rows appended verbatim.
func writeTripFixture(t *testing.T, dir string, extraRows ...string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("HAT_NO;BASLANGIC DURAK NO;BITIS DURAK NO;CIKIS SAATI;VARIS SAATI\n")
	dep := time.Date(2021, 1, 4, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 80; i++ {
		// Alternate 120s and 180s hops between stop pairs.
		dur := 120
		origin, dest := "1001", "1002"
		if i%2 == 1 {
			dur = 180
			origin, dest = "1002", "1003"
		}
		arr := dep.Add(time.Duration(dur) * time.Second)
		fmt.Fprintf(&b, "4;%s;%s;%s;%s\n", origin, dest,
			dep.Format("2006-01-02 15:04:05"), arr.Format("2006-01-02 15:04:05"))
		dep = dep.Add(30 * time.Minute)
	}
	for _, row := range extraRows {
		b.WriteString(row + "\n")
	}
	path := filepath.Join(dir, "otobusdurakvaris01.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
}

func newTrainedEstimator(t *testing.T, extraRows ...string) *Estimator {
	t.Helper()
	dataDir := t.TempDir()
	writeTripFixture(t, dataDir, extraRows...)
	est, err := NewEstimator(dataDir, t.TempDir())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	if err := est.Train(); err != nil {
		t.Fatalf("Train: %v", err)
	}
	return est
}

// TestTrainFiltersImplausibleDurations: zero, negative and multi-hour
// durations are clock glitches, not travel, and must not poison the
// model. The fixture adds such rows; the prediction for a known pair
// must stay near the plausible observations.
func TestTrainFiltersImplausibleDurations(t *testing.T) {
	est := newTrainedEstimator(t,
		"4;1001;1002;2021-01-10 08:00:00;2021-01-10 08:00:00", // zero
		"4;1001;1002;2021-01-10 09:00:00;2021-01-10 08:00:00", // negative
		"4;1001;1002;2021-01-10 10:00:00;2021-01-10 13:00:00", // 3 hours
	)

	sec, err := est.PredictDuration("4", "1001", "1002", 8, time.Monday, nil)
	if err != nil {
		t.Fatalf("PredictDuration: %v", err)
	}
	if sec < 60 || sec > 300 {
		t.Errorf("prediction %ds outside the plausible training range", sec)
	}
}

// TestPredictUnseenIdentifier: a stop or line the model never saw is an
// operational retrain signal and must surface as a typed error, never as
// a fabricated duration.
func TestPredictUnseenIdentifier(t *testing.T) {
	est := newTrainedEstimator(t)

	_, err := est.PredictDuration("4", "9999", "1002", 8, time.Monday, nil)
	var unseen *UnseenIdentifierError
	if !errors.As(err, &unseen) {
		t.Fatalf("error = %v, want UnseenIdentifierError", err)
	}
	if unseen.Kind != "stop" || unseen.Value != "9999" {
		t.Errorf("error identifies %s %q, want stop 9999", unseen.Kind, unseen.Value)
	}

	_, err = est.PredictDuration("77", "1001", "1002", 8, time.Monday, nil)
	if !errors.As(err, &unseen) || unseen.Kind != "line" {
		t.Errorf("unseen line error = %v, want line-kind UnseenIdentifierError", err)
	}
}

// TestPredictCanonicalizesLineID: queries with float-artifact line ids
// must hit the same encoder class as the training rows.
func TestPredictCanonicalizesLineID(t *testing.T) {
	est := newTrainedEstimator(t)
	if _, err := est.PredictDuration("04.00", "1001", "1002", 8, time.Monday, nil); err != nil {
		t.Errorf("canonicalized query failed: %v", err)
	}
}

func TestPredictNotTrained(t *testing.T) {
	est, err := NewEstimator(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	if _, err := est.PredictDuration("4", "1001", "1002", 8, time.Monday, nil); !errors.Is(err, ErrNotTrained) {
		t.Errorf("error = %v, want ErrNotTrained", err)
	}
}

// TestPredictFloor: no prediction goes below the serving floor even when
// the regression output does.
func TestPredictFloor(t *testing.T) {
	est := newTrainedEstimator(t)

	// Force a tiny regression output by zeroing the ensemble.
	est.mu.Lock()
	est.model.Regressor = &GBTRegressor{Base: 1, Shrinkage: 0.1}
	est.model.Delay = nil
	est.mu.Unlock()

	sec, err := est.PredictDuration("4", "1001", "1002", 8, time.Monday, nil)
	if err != nil {
		t.Fatalf("PredictDuration: %v", err)
	}
	if sec != MinDurationSec {
		t.Errorf("prediction = %ds, want floor %ds", sec, MinDurationSec)
	}
}

// TestPredictFallbackOnInternalError: an internally broken model serves
// the fallback duration without an error; only identifier problems and
// a missing model surface to the caller.
func TestPredictFallbackOnInternalError(t *testing.T) {
	est := newTrainedEstimator(t)

	est.mu.Lock()
	est.model.Regressor = nil
	est.mu.Unlock()

	sec, err := est.PredictDuration("4", "1001", "1002", 8, time.Monday, nil)
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	if sec != FallbackDurationSec {
		t.Errorf("prediction = %ds, want fallback %ds", sec, FallbackDurationSec)
	}
	if est.Fallbacks() != 1 {
		t.Errorf("fallback counter = %d, want 1", est.Fallbacks())
	}
}

type sinkMetrics struct {
	fallbacks int
	rows      int
	skipped   int
}

func (m *sinkMetrics) FallbackInc() { m.fallbacks++ }

func (m *sinkMetrics) RowsIngested(read int, skippedByReason map[string]int) {
	m.rows += read
	for _, n := range skippedByReason {
		m.skipped += n
	}
}

// TestMetricsSink: training reports the ingestion summary and fallback
// serves increment the sink.
func TestMetricsSink(t *testing.T) {
	dataDir := t.TempDir()
	writeTripFixture(t, dataDir)
	est, err := NewEstimator(dataDir, t.TempDir())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	sink := &sinkMetrics{}
	est.SetMetrics(sink)

	if err := est.Train(); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if sink.rows != 80 {
		t.Errorf("sink rows = %d, want 80", sink.rows)
	}

	est.mu.Lock()
	est.model.Regressor = nil
	est.mu.Unlock()
	if _, err := est.PredictDuration("4", "1001", "1002", 8, time.Monday, nil); err != nil {
		t.Fatalf("PredictDuration: %v", err)
	}
	if sink.fallbacks != 1 {
		t.Errorf("sink fallbacks = %d, want 1", sink.fallbacks)
	}
}

// TestLoadRoundTrip: a persisted model must serve identical predictions
// after reload in a fresh process.
func TestLoadRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	modelDir := t.TempDir()
	writeTripFixture(t, dataDir)

	est, err := NewEstimator(dataDir, modelDir)
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	if err := est.Train(); err != nil {
		t.Fatalf("Train: %v", err)
	}
	want, err := est.PredictDuration("4", "1002", "1003", 9, time.Tuesday, nil)
	if err != nil {
		t.Fatalf("PredictDuration: %v", err)
	}

	reloaded, err := NewEstimator(dataDir, modelDir)
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := reloaded.PredictDuration("4", "1002", "1003", 9, time.Tuesday, nil)
	if err != nil {
		t.Fatalf("PredictDuration after reload: %v", err)
	}
	if got != want {
		t.Errorf("reloaded prediction %ds != original %ds", got, want)
	}
}

// TestLoadServesConcurrentRequests: after a process restart the first
// requests arrive together; the freshly loaded model, whose encoder
// indexes are rebuilt on load, must serve all of them.
func TestLoadServesConcurrentRequests(t *testing.T) {
	dataDir := t.TempDir()
	modelDir := t.TempDir()
	writeTripFixture(t, dataDir)

	est, err := NewEstimator(dataDir, modelDir)
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	if err := est.Train(); err != nil {
		t.Fatalf("Train: %v", err)
	}

	reloaded, err := NewEstimator(dataDir, modelDir)
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reloaded.PredictDuration("4", "1001", "1002", 8, time.Monday, nil); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent predict: %v", err)
	}
}

// TestLoadRejectsIncompleteArtifact: an artifact without its encoders
// cannot serve and must be reported as corrupt, not loaded.
func TestLoadRejectsIncompleteArtifact(t *testing.T) {
	est, err := NewEstimator(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	if err := os.WriteFile(est.artifactPath(), []byte(`{"version": 1}`), 0o644); err != nil {
		t.Fatalf("writing artifact: %v", err)
	}
	if err := est.Load(); err == nil {
		t.Error("expected error for artifact without encoders")
	}
	if est.Trained() {
		t.Error("incomplete artifact must not become the serving model")
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	est, err := NewEstimator(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	if err := est.Load(); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Load on empty dir = %v, want ErrNotTrained", err)
	}
}
