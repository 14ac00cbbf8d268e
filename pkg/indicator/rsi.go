package indicator

import "fmt"

// RSI calculates the Relative Strength Index over each window
// [i-period, i] of prices.
//
// Consecutive differences are split into up moves and down moves and
// averaged: RSI = 100 - 100/(1 + avgUp/avgDown). A window with no down
// move is undefined.
func RSI(prices []float64, period int) (Output, error) {
	if err := validate(period, prices); err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}

	return slide(len(prices), period, valueWindow, func(lo, hi int) (float64, bool) {
		var ups, downs float64
		for k := lo + 1; k < hi; k++ {
			change := prices[k] - prices[k-1]
			if change >= 0 {
				ups += change
			} else {
				downs -= change
			}
		}

		steps := float64(hi - lo - 1)
		avgUp, avgDown := ups/steps, downs/steps
		if avgDown == 0 {
			return 0, false
		}
		return 100 - 100/(1+avgUp/avgDown), true
	}), nil
}
