package indicator

import "fmt"

// Bollinger calculates how many sample standard deviations the current
// price sits from the mean of the window [i-period, i]. A constant window
// is undefined.
func Bollinger(prices []float64, period int) (Output, error) {
	if err := validate(period, prices); err != nil {
		return nil, fmt.Errorf("bollinger: %w", err)
	}

	return slide(len(prices), period, valueWindow, func(lo, hi int) (float64, bool) {
		m := mean(prices, lo, hi)
		sigma, ok := sampleStdDev(prices, lo, hi, m)
		if !ok || sigma == 0 {
			return 0, false
		}
		return (prices[hi-1] - m) / sigma, true
	}), nil
}
