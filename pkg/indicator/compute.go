package indicator

import (
	"fmt"
	"strings"
)

// Kind identifies an indicator.
type Kind int

const (
	KindRSI Kind = iota
	KindBollinger
	KindMFI
	KindCMF
	KindATR
	KindADX
)

var kindNames = [...]string{
	KindRSI:       "rsi",
	KindBollinger: "bollinger",
	KindMFI:       "mfi",
	KindCMF:       "cmf",
	KindATR:       "atr",
	KindADX:       "adx",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind resolves an indicator name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownIndicator, name)
}

// Kinds returns every indicator in a stable order.
func Kinds() []Kind {
	return []Kind{KindRSI, KindBollinger, KindMFI, KindCMF, KindATR, KindADX}
}

// Inputs holds positionally aligned bar series.
type Inputs struct {
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// Len returns the length of the close series.
func (in Inputs) Len() int {
	return len(in.Close)
}

// Params holds the lookback period and the ADX smoothing factor.
type Params struct {
	Period int
	Alpha  float64
}

// DefaultParams returns period 14 and alpha 0.2.
func DefaultParams() Params {
	return Params{Period: DefaultPeriod, Alpha: DefaultAlpha}
}

// Compute runs the indicator of the given kind. RSI and Bollinger read
// the close series.
func Compute(kind Kind, in Inputs, p Params) (Output, error) {
	switch kind {
	case KindRSI:
		return RSI(in.Close, p.Period)
	case KindBollinger:
		return Bollinger(in.Close, p.Period)
	case KindMFI:
		return MFI(in.Open, in.High, in.Low, in.Close, in.Volume, p.Period)
	case KindCMF:
		return CMF(in.Open, in.High, in.Low, in.Close, in.Volume, p.Period)
	case KindATR:
		return ATR(in.High, in.Low, in.Close, p.Period)
	case KindADX:
		return ADX(in.High, in.Low, in.Close, p.Period, p.Alpha)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndicator, int(kind))
	}
}
