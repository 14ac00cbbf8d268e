package indicator

import "math"

// sampleStdDev returns the sample standard deviation (n-1 denominator) of
// xs[lo:hi] around the given mean. Windows of one value have none.
func sampleStdDev(xs []float64, lo, hi int, mean float64) (float64, bool) {
	n := hi - lo
	if n < 2 {
		return 0, false
	}

	var sumSquares float64
	for _, x := range xs[lo:hi] {
		diff := x - mean
		sumSquares += diff * diff
	}

	return math.Sqrt(sumSquares / float64(n-1)), true
}
