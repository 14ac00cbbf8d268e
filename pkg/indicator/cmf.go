package indicator

import "fmt"

// CMF calculates Chaikin Money Flow over each window [i-period, i]:
// sum(multiplier * volume) / sum(volume), where the multiplier is
// ((close-low) - (high-close)) / (high-low).
//
// open is accepted so CMF shares the MFI signature; the formula does not
// use it. A window holding a bar with high == low, or with zero total
// volume, is undefined.
func CMF(open, high, low, close, volume []float64, period int) (Output, error) {
	if err := validate(period, open, high, low, close, volume); err != nil {
		return nil, fmt.Errorf("cmf: %w", err)
	}

	return slide(len(close), period, valueWindow, func(lo, hi int) (float64, bool) {
		var flowVolume, totalVolume float64
		for k := lo; k < hi; k++ {
			spread := high[k] - low[k]
			if spread == 0 {
				return 0, false
			}
			multiplier := ((close[k] - low[k]) - (high[k] - close[k])) / spread
			flowVolume += multiplier * volume[k]
			totalVolume += volume[k]
		}

		if totalVolume == 0 {
			return 0, false
		}
		return flowVolume / totalVolume, true
	}), nil
}
