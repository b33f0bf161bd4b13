package stats

// MinMaxScaler maps observations into [0, 1] based on the range seen at
// fit time. Persisted alongside the residual models so that corrections
// applied at serving time use the training-time scale.
type MinMaxScaler struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Fit records the observed range. A constant series degenerates to a
// zero-width range; Transform then maps everything to 0.
func (s *MinMaxScaler) Fit(xs []float64) {
	if len(xs) == 0 {
		s.Min, s.Max = 0, 0
		return
	}
	s.Min, s.Max = xs[0], xs[0]
	for _, v := range xs[1:] {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
}

// Transform scales a single value into [0, 1] (unclamped for values
// outside the fitted range).
func (s *MinMaxScaler) Transform(v float64) float64 {
	if s.Max == s.Min {
		return 0
	}
	return (v - s.Min) / (s.Max - s.Min)
}

// Inverse maps a scaled value back to the original units.
func (s *MinMaxScaler) Inverse(v float64) float64 {
	return v*(s.Max-s.Min) + s.Min
}
