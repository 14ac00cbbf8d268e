package indicator

// mean returns the arithmetic mean of xs[lo:hi].
func mean(xs []float64, lo, hi int) float64 {
	var sum float64
	for _, x := range xs[lo:hi] {
		sum += x
	}
	return sum / float64(hi-lo)
}
