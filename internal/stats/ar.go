package stats

import "errors"

// ARModel is a linear autoregressive model: the next value is predicted
// from the previous LookBack values plus a bias term. It is the
// correction model applied on top of the main demand and travel-time
// regressors; inputs are expected to be scaled to [0, 1] first.
type ARModel struct {
	LookBack int       `json:"look_back"`
	Weights  []float64 `json:"weights"` // len LookBack, oldest first
	Bias     float64   `json:"bias"`
}

// ErrTooFewObservations is returned when a series is too short to build
// even a single (window, target) training pair.
var ErrTooFewObservations = errors.New("stats: too few observations for look-back window")

// FitAR fits an ARModel with the given look-back over a series using
// ordinary least squares on sliding windows.
func FitAR(series []float64, lookBack int) (*ARModel, error) {
	if lookBack <= 0 {
		return nil, errors.New("stats: look-back must be positive")
	}
	n := len(series) - lookBack
	if n < lookBack+1 {
		return nil, ErrTooFewObservations
	}

	// Build the normal equations for [w_0..w_{k-1}, bias].
	k := lookBack + 1
	ata := make([][]float64, k)
	atb := make([]float64, k)
	for i := range ata {
		ata[i] = make([]float64, k)
	}
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		copy(row, series[i:i+lookBack])
		row[lookBack] = 1 // bias
		y := series[i+lookBack]
		for a := 0; a < k; a++ {
			for b := 0; b < k; b++ {
				ata[a][b] += row[a] * row[b]
			}
			atb[a] += row[a] * y
		}
	}
	// Small ridge term keeps the system solvable on constant series.
	for i := 0; i < k; i++ {
		ata[i][i] += 1e-6
	}

	sol, err := solve(ata, atb)
	if err != nil {
		return nil, err
	}
	return &ARModel{
		LookBack: lookBack,
		Weights:  sol[:lookBack],
		Bias:     sol[lookBack],
	}, nil
}

// Predict returns the next value given at least LookBack recent
// observations (the trailing window is used).
func (m *ARModel) Predict(recent []float64) (float64, error) {
	if len(recent) < m.LookBack {
		return 0, ErrTooFewObservations
	}
	window := recent[len(recent)-m.LookBack:]
	out := m.Bias
	for i, w := range m.Weights {
		out += w * window[i]
	}
	return out, nil
}

// solve performs Gaussian elimination with partial pivoting on a small
// dense system. The matrices here are (lookBack+1)-square, typically 6x6.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(a[r][col]) > abs(a[pivot][col]) {
				pivot = r
			}
		}
		if abs(a[pivot][col]) < 1e-12 {
			return nil, errors.New("stats: singular system")
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]
		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
