package indicator

import (
	"fmt"
	"math"
)

// EWM returns the bias-adjusted exponentially weighted mean of xs.
//
// Each output is sum((1-alpha)^(t-j) * x[j]) / sum((1-alpha)^(t-j)) over the
// observations j <= t. NaN inputs are missing observations: they add no
// weight, but the decay of earlier observations still advances past them.
// Positions before the first observation are undefined.
func EWM(xs []float64, alpha float64) (Output, error) {
	if err := validateAlpha(alpha); err != nil {
		return nil, fmt.Errorf("ewm: %w", err)
	}
	in := make([]Value, len(xs))
	for i, x := range xs {
		if !math.IsNaN(x) {
			in[i] = Value{Float64: x, Valid: true}
		}
	}
	return ewm(in, alpha), nil
}

func ewm(xs []Value, alpha float64) Output {
	out := make(Output, len(xs))
	decay := 1 - alpha

	var weighted, oldWeight float64
	started := false
	for t, x := range xs {
		if !started {
			if x.Valid {
				weighted, oldWeight, started = x.Float64, 1, true
			}
		} else {
			oldWeight *= decay
			if x.Valid {
				if weighted != x.Float64 {
					weighted = (oldWeight*weighted + x.Float64) / (oldWeight + 1)
				}
				oldWeight++
			}
		}
		if started {
			out[t] = Some(weighted)
		}
	}
	return out
}
