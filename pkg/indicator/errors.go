package indicator

import (
	"errors"
	"fmt"
)

// Precondition errors. They are returned before any window is computed.
var (
	ErrInvalidPeriod    = errors.New("period must be at least 1")
	ErrInvalidAlpha     = errors.New("alpha must be in (0, 1]")
	ErrLengthMismatch   = errors.New("series lengths differ")
	ErrInsufficientData = errors.New("series shorter than period")
	ErrUnknownIndicator = errors.New("unknown indicator")
)

// validate checks that all series share one length of at least period.
func validate(period int, series ...[]float64) error {
	if period < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidPeriod, period)
	}
	if len(series) == 0 {
		return ErrInsufficientData
	}
	n := len(series[0])
	for i, s := range series[1:] {
		if len(s) != n {
			return fmt.Errorf("%w: series 0 has %d values, series %d has %d", ErrLengthMismatch, n, i+1, len(s))
		}
	}
	if n < period {
		return fmt.Errorf("%w: %d values, period %d", ErrInsufficientData, n, period)
	}
	return nil
}

func validateAlpha(alpha float64) error {
	// NaN fails both comparisons.
	if !(alpha > 0 && alpha <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidAlpha, alpha)
	}
	return nil
}
