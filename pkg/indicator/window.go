package indicator

// windowRule selects how the trailing window is cut for a position.
type windowRule int

const (
	// valueWindow is [i-period, i] for every computed position.
	valueWindow windowRule = iota
	// rangeWindow is [i-period, i] on the first computed position and
	// [i-period+1, i] afterwards.
	rangeWindow
)

// bounds returns the half-open window [lo, hi) ending at position i.
func (r windowRule) bounds(i, period int) (lo, hi int) {
	hi = i + 1
	if r == rangeWindow && i > period {
		return i - period + 1, hi
	}
	return i - period, hi
}

// windowFunc computes one output from the window [lo, hi). ok is false when
// the formula is undefined for that window.
type windowFunc func(lo, hi int) (v float64, ok bool)

// slide runs fn over every trailing window of a series of length n.
// Positions before period stay undefined. Each window is recomputed from
// the raw series; nothing is carried between positions.
func slide(n, period int, rule windowRule, fn windowFunc) Output {
	out := make(Output, n)
	for i := period; i < n; i++ {
		lo, hi := rule.bounds(i, period)
		if v, ok := fn(lo, hi); ok {
			out[i] = Some(v)
		}
	}
	return out
}
