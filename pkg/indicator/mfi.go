package indicator

import "fmt"

// MFI calculates the Money Flow Index over each window [i-period, i].
//
// Raw money flow is the typical price (high+low+close)/3 times volume. Bars
// that closed above their open count as positive flow, all others as
// negative flow. MFI = 100 - 100/(1 + positive/negative); a window without
// negative flow is undefined.
func MFI(open, high, low, close, volume []float64, period int) (Output, error) {
	if err := validate(period, open, high, low, close, volume); err != nil {
		return nil, fmt.Errorf("mfi: %w", err)
	}

	return slide(len(close), period, valueWindow, func(lo, hi int) (float64, bool) {
		var positive, negative float64
		for k := lo; k < hi; k++ {
			typical := (high[k] + low[k] + close[k]) / 3
			flow := typical * volume[k]
			if close[k]-open[k] > 0 {
				positive += flow
			} else {
				negative += flow
			}
		}

		if negative == 0 {
			return 0, false
		}
		return 100 - 100/(1+positive/negative), true
	}), nil
}
