// Package indicator provides windowed technical indicator calculations.
//
// Every indicator is a stateless batch function over positionally aligned
// series. The output has the same length as the input; the first period
// positions are undefined (warm-up) and later positions may be undefined
// when the formula has no finite answer for that window.
package indicator

import (
	"math"
	"strconv"
)

// Default parameters.
const (
	DefaultPeriod = 14
	DefaultAlpha  = 0.2
)

// Value is a single indicator output. Valid is false for warm-up positions
// and for windows where the formula is undefined (division by zero).
type Value struct {
	Float64 float64
	Valid   bool
}

// Some returns a valid Value, or an undefined one if f is not finite.
func Some(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{Float64: f, Valid: true}
}

// String formats the value, "null" when undefined.
func (v Value) String() string {
	if !v.Valid {
		return "null"
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

// MarshalJSON encodes undefined values as JSON null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.Float64, 'g', -1, 64), nil
}

// UnmarshalJSON decodes a JSON number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// Output is an indicator sequence aligned with its input series.
type Output []Value

// Floats returns the output as float64s with NaN for undefined positions.
func (o Output) Floats() []float64 {
	out := make([]float64, len(o))
	for i, v := range o {
		if v.Valid {
			out[i] = v.Float64
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Defined returns the number of valid positions.
func (o Output) Defined() int {
	n := 0
	for _, v := range o {
		if v.Valid {
			n++
		}
	}
	return n
}

// Last returns the final position, undefined if the output is empty.
func (o Output) Last() Value {
	if len(o) == 0 {
		return Value{}
	}
	return o[len(o)-1]
}
