// Package types defines shared types used across the indicator service.
package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/quant-ta/pkg/indicator"
)

// Bar is one OHLCV observation.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Validate checks that the bar is internally consistent.
func (b Bar) Validate() error {
	if b.Open.IsNegative() || b.High.IsNegative() || b.Low.IsNegative() || b.Close.IsNegative() {
		return fmt.Errorf("%w: negative price at %s", ErrInvalidPrice, b.Timestamp.Format(time.RFC3339))
	}
	if b.High.LessThan(b.Low) {
		return fmt.Errorf("%w: high %s below low %s at %s", ErrInvalidPrice, b.High, b.Low, b.Timestamp.Format(time.RFC3339))
	}
	if b.Volume.IsNegative() {
		return fmt.Errorf("%w: negative volume at %s", ErrInvalidData, b.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// Bars is an ordered, positionally aligned bar history for one symbol.
type Bars []Bar

// Inputs converts the bars into aligned float series for the indicator
// engine.
func (bs Bars) Inputs() indicator.Inputs {
	in := indicator.Inputs{
		Open:   make([]float64, len(bs)),
		High:   make([]float64, len(bs)),
		Low:    make([]float64, len(bs)),
		Close:  make([]float64, len(bs)),
		Volume: make([]float64, len(bs)),
	}
	for i, b := range bs {
		in.Open[i] = b.Open.InexactFloat64()
		in.High[i] = b.High.InexactFloat64()
		in.Low[i] = b.Low.InexactFloat64()
		in.Close[i] = b.Close.InexactFloat64()
		in.Volume[i] = b.Volume.InexactFloat64()
	}
	return in
}

// Timestamps returns the bar timestamps in order.
func (bs Bars) Timestamps() []time.Time {
	ts := make([]time.Time, len(bs))
	for i, b := range bs {
		ts[i] = b.Timestamp
	}
	return ts
}

// Validate checks every bar and that timestamps are strictly increasing.
func (bs Bars) Validate() error {
	if len(bs) == 0 {
		return ErrDataUnavailable
	}
	for i, b := range bs {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
		if i > 0 && !b.Timestamp.After(bs[i-1].Timestamp) {
			return fmt.Errorf("bar %d: %w: timestamps not increasing", i, ErrInvalidData)
		}
	}
	return nil
}
