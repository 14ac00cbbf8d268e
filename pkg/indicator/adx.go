package indicator

import (
	"fmt"
	"math"
)

// ADX calculates the Average Directional Index over the range window.
//
// For each consecutive pair of bars in the window it derives the true range
// max(high-low, high-prevClose) and the directional moves
// +DM = high-prevHigh and -DM = prevLow-low. Both zeroing rules compare the
// moves as computed, before either is cleared:
//
//	+DM = 0 if +DM < -DM or +DM < 0
//	-DM = 0 if +DM > -DM or +DM < 0
//
// A negative +DM therefore clears both moves. +DI and -DI are the EWM of
// DM/TR, and the result is 100 times the last EWM of (+DI - -DI)/(+DI + -DI).
// Steps with a zero true range or a zero DI sum are missing observations;
// a window left with none is undefined.
func ADX(high, low, close []float64, period int, alpha float64) (Output, error) {
	if err := validate(period, high, low, close); err != nil {
		return nil, fmt.Errorf("adx: %w", err)
	}
	if err := validateAlpha(alpha); err != nil {
		return nil, fmt.Errorf("adx: %w", err)
	}

	return slide(len(close), period, rangeWindow, func(lo, hi int) (float64, bool) {
		steps := hi - lo - 1
		if steps < 1 {
			return 0, false
		}

		plus := make([]Value, steps)
		minus := make([]Value, steps)
		for j, k := 0, lo+1; k < hi; j, k = j+1, k+1 {
			tr := math.Max(high[k]-low[k], high[k]-close[k-1])
			if tr == 0 {
				continue
			}

			up, down := high[k]-high[k-1], low[k-1]-low[k]
			plusDM, minusDM := up, down
			if up < down || up < 0 {
				plusDM = 0
			}
			if up > down || up < 0 {
				minusDM = 0
			}

			plus[j] = Some(plusDM / tr)
			minus[j] = Some(minusDM / tr)
		}

		plusDI := ewm(plus, alpha)
		minusDI := ewm(minus, alpha)

		dx := make([]Value, steps)
		for j := range dx {
			p, m := plusDI[j], minusDI[j]
			if !p.Valid || !m.Valid || p.Float64+m.Float64 == 0 {
				continue
			}
			dx[j] = Some((p.Float64 - m.Float64) / (p.Float64 + m.Float64))
		}

		last := ewm(dx, alpha).Last()
		if !last.Valid {
			return 0, false
		}
		return 100 * last.Float64, true
	}), nil
}
