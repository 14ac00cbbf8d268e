package indicator

import "fmt"

// ATR calculates the Average True Range in percentage form: the mean of
// (high-low)/close*100 over the range window. The first computed position
// averages period+1 bars, later positions average period bars. A window
// with a zero close is undefined.
func ATR(high, low, close []float64, period int) (Output, error) {
	if err := validate(period, high, low, close); err != nil {
		return nil, fmt.Errorf("atr: %w", err)
	}

	return slide(len(close), period, rangeWindow, func(lo, hi int) (float64, bool) {
		var sum float64
		for k := lo; k < hi; k++ {
			if close[k] == 0 {
				return 0, false
			}
			sum += (high[k] - low[k]) / close[k] * 100
		}
		return sum / float64(hi-lo), true
	}), nil
}
