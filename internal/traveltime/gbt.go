package traveltime

import (
	"errors"
	"math"
	"sort"
)

// Stump is a one-split regression tree: feature below threshold predicts
// Left, otherwise Right.
type Stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// GBTRegressor is a gradient-boosted ensemble of regression stumps
// fitted to squared loss: start from the target mean, then repeatedly
// fit a stump to the current residuals and add it with shrinkage.
type GBTRegressor struct {
	Base      float64 `json:"base"`
	Shrinkage float64 `json:"shrinkage"`
	Stumps    []Stump `json:"stumps"`
}

const (
	defaultRounds    = 100
	defaultShrinkage = 0.1
	// thresholds are drawn from feature quantiles so fitting cost stays
	// bounded on multi-million-row training tables.
	thresholdCandidates = 16
)

// FitGBT trains the ensemble on X (rows of features) and y.
func FitGBT(x [][]float64, y []float64, rounds int, shrinkage float64) (*GBTRegressor, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("traveltime: empty or mismatched training table")
	}
	if rounds <= 0 {
		rounds = defaultRounds
	}
	if shrinkage <= 0 || shrinkage > 1 {
		shrinkage = defaultShrinkage
	}

	model := &GBTRegressor{Shrinkage: shrinkage}
	for _, v := range y {
		model.Base += v
	}
	model.Base /= float64(len(y))

	nFeatures := len(x[0])
	thresholds := make([][]float64, nFeatures)
	for f := 0; f < nFeatures; f++ {
		thresholds[f] = quantileThresholds(x, f)
	}

	resid := make([]float64, len(y))
	for i := range y {
		resid[i] = y[i] - model.Base
	}

	for round := 0; round < rounds; round++ {
		stump, ok := bestStump(x, resid, thresholds)
		if !ok {
			break
		}
		model.Stumps = append(model.Stumps, stump)
		for i := range resid {
			resid[i] -= shrinkage * stump.predict(x[i])
		}
	}
	return model, nil
}

// Predict returns the ensemble estimate for one feature row.
func (m *GBTRegressor) Predict(row []float64) float64 {
	out := m.Base
	for _, s := range m.Stumps {
		out += m.Shrinkage * s.predict(row)
	}
	return out
}

func (s Stump) predict(row []float64) float64 {
	if row[s.Feature] < s.Threshold {
		return s.Left
	}
	return s.Right
}

// bestStump scans every (feature, threshold) candidate and keeps the
// split with the lowest squared error against the residuals.
func bestStump(x [][]float64, resid []float64, thresholds [][]float64) (Stump, bool) {
	var best Stump
	bestScore := math.Inf(1)
	found := false

	for f := range thresholds {
		for _, th := range thresholds[f] {
			var sumL, sumR float64
			var nL, nR int
			for i, row := range x {
				if row[f] < th {
					sumL += resid[i]
					nL++
				} else {
					sumR += resid[i]
					nR++
				}
			}
			if nL == 0 || nR == 0 {
				continue
			}
			meanL := sumL / float64(nL)
			meanR := sumR / float64(nR)

			var score float64
			for i, row := range x {
				var d float64
				if row[f] < th {
					d = resid[i] - meanL
				} else {
					d = resid[i] - meanR
				}
				score += d * d
			}
			if score < bestScore {
				bestScore = score
				best = Stump{Feature: f, Threshold: th, Left: meanL, Right: meanR}
				found = true
			}
		}
	}
	return best, found
}

func quantileThresholds(x [][]float64, feature int) []float64 {
	values := make([]float64, len(x))
	for i, row := range x {
		values[i] = row[feature]
	}
	sort.Float64s(values)

	seen := make(map[float64]bool)
	var out []float64
	for i := 1; i <= thresholdCandidates; i++ {
		idx := i * (len(values) - 1) / (thresholdCandidates + 1)
		v := values[idx]
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
