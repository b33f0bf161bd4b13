package traveltime

import (
	"math"
	"testing"
)

// TestFitGBTStepFunction: a boosted stump ensemble must nail a target
// that is itself a step function of one feature.
func TestFitGBTStepFunction(t *testing.T) {
	var x [][]float64
	var y []float64
	for i := 0; i < 100; i++ {
		v := float64(i)
		x = append(x, []float64{v})
		if v < 50 {
			y = append(y, 100)
		} else {
			y = append(y, 300)
		}
	}

	m, err := FitGBT(x, y, 100, 0.1)
	if err != nil {
		t.Fatalf("FitGBT: %v", err)
	}
	if got := m.Predict([]float64{10}); math.Abs(got-100) > 20 {
		t.Errorf("Predict(10) = %v, want about 100", got)
	}
	if got := m.Predict([]float64{90}); math.Abs(got-300) > 20 {
		t.Errorf("Predict(90) = %v, want about 300", got)
	}
}

// TestFitGBTPicksInformativeFeature: with one informative and one
// constant feature, splits must land on the informative one.
func TestFitGBTPicksInformativeFeature(t *testing.T) {
	var x [][]float64
	var y []float64
	for i := 0; i < 60; i++ {
		v := float64(i % 6)
		x = append(x, []float64{1, v})
		y = append(y, v*10)
	}

	m, err := FitGBT(x, y, 50, 0.1)
	if err != nil {
		t.Fatalf("FitGBT: %v", err)
	}
	for _, s := range m.Stumps {
		if s.Feature == 0 {
			t.Fatalf("split on the constant feature: %+v", s)
		}
	}
	if got := m.Predict([]float64{1, 5}); math.Abs(got-50) > 10 {
		t.Errorf("Predict = %v, want about 50", got)
	}
}

func TestFitGBTConstantTarget(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}}
	y := []float64{7, 7, 7}
	m, err := FitGBT(x, y, 10, 0.1)
	if err != nil {
		t.Fatalf("FitGBT: %v", err)
	}
	if got := m.Predict([]float64{2}); math.Abs(got-7) > 1e-6 {
		t.Errorf("Predict = %v, want 7", got)
	}
}

func TestFitGBTEmpty(t *testing.T) {
	if _, err := FitGBT(nil, nil, 10, 0.1); err == nil {
		t.Error("expected error for empty training table")
	}
	if _, err := FitGBT([][]float64{{1}}, []float64{1, 2}, 10, 0.1); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}
