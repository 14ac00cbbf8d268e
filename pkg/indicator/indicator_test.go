package indicator

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func assertClose(t *testing.T, label string, got Value, want, tol float64) {
	t.Helper()
	if !got.Valid {
		t.Errorf("%s: got undefined, want %.10f", label, want)
		return
	}
	if math.Abs(got.Float64-want) > tol {
		t.Errorf("%s: got %.10f, want %.10f (diff=%g)", label, got.Float64, want, math.Abs(got.Float64-want))
	}
}

func assertUndefined(t *testing.T, label string, got Value) {
	t.Helper()
	if got.Valid {
		t.Errorf("%s: got %v, want undefined", label, got.Float64)
	}
}

// randomBars builds a deterministic random walk with non-degenerate bars.
func randomBars(n int, seed int64) Inputs {
	rng := rand.New(rand.NewSource(seed))
	in := Inputs{
		Open:   make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
	}
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price += rng.NormFloat64()
		closePrice := price
		in.Open[i] = open
		in.Close[i] = closePrice
		in.High[i] = math.Max(open, closePrice) + 0.1 + rng.Float64()
		in.Low[i] = math.Min(open, closePrice) - 0.1 - rng.Float64()
		in.Volume[i] = 1000 + float64(rng.Intn(5000))
	}
	return in
}

func TestWarmUp_AllIndicators(t *testing.T) {
	in := randomBars(60, 1)
	p := DefaultParams()

	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			out, err := Compute(kind, in, p)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			if len(out) != in.Len() {
				t.Fatalf("len = %d, want %d", len(out), in.Len())
			}
			for i := 0; i < p.Period; i++ {
				assertUndefined(t, "warm-up", out[i])
			}
			if out.Defined() == 0 {
				t.Error("expected defined values after warm-up")
			}
		})
	}
}

func TestCompute_Idempotent(t *testing.T) {
	in := randomBars(80, 7)
	p := Params{Period: 10, Alpha: 0.3}

	for _, kind := range Kinds() {
		first, err := Compute(kind, in, p)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		second, err := Compute(kind, in, p)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		for i := range first {
			if first[i].Valid != second[i].Valid ||
				math.Float64bits(first[i].Float64) != math.Float64bits(second[i].Float64) {
				t.Fatalf("%s: position %d differs: %v vs %v", kind, i, first[i], second[i])
			}
		}
	}
}

func TestCompute_DoesNotMutateInputs(t *testing.T) {
	in := randomBars(30, 3)
	snapshot := append([]float64(nil), in.Close...)

	for _, kind := range Kinds() {
		if _, err := Compute(kind, in, DefaultParams()); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
	}
	for i := range snapshot {
		if in.Close[i] != snapshot[i] {
			t.Fatalf("close[%d] mutated", i)
		}
	}
}

func TestPreconditions(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"zero period", func() error { _, err := RSI([]float64{1, 2, 3}, 0); return err }, ErrInvalidPeriod},
		{"short series", func() error { _, err := Bollinger([]float64{1, 2, 3}, 5); return err }, ErrInsufficientData},
		{"length mismatch", func() error {
			_, err := ATR([]float64{1, 2, 3}, []float64{1, 2}, []float64{1, 2, 3}, 1)
			return err
		}, ErrLengthMismatch},
		{"mfi mismatch", func() error {
			s := []float64{1, 2, 3}
			_, err := MFI(s, s, s, s, []float64{1}, 1)
			return err
		}, ErrLengthMismatch},
		{"zero alpha", func() error {
			s := []float64{1, 2, 3}
			_, err := ADX(s, s, s, 1, 0)
			return err
		}, ErrInvalidAlpha},
		{"alpha above one", func() error {
			s := []float64{1, 2, 3}
			_, err := ADX(s, s, s, 1, 1.5)
			return err
		}, ErrInvalidAlpha},
		{"unknown kind", func() error { _, err := Compute(Kind(42), Inputs{}, DefaultParams()); return err }, ErrUnknownIndicator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSeriesEqualToPeriod_AllUndefined(t *testing.T) {
	out, err := RSI([]float64{1, 2, 3}, 3)
	if err != nil {
		t.Fatalf("rsi: %v", err)
	}
	if len(out) != 3 || out.Defined() != 0 {
		t.Errorf("got %v, want three undefined values", out)
	}
}

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds() {
		got, err := ParseKind(kind.String())
		if err != nil || got != kind {
			t.Errorf("ParseKind(%q) = %v, %v", kind.String(), got, err)
		}
	}

	if got, err := ParseKind(" ADX "); err != nil || got != KindADX {
		t.Errorf("ParseKind(ADX) = %v, %v", got, err)
	}
	if _, err := ParseKind("macd"); !errors.Is(err, ErrUnknownIndicator) {
		t.Errorf("err = %v, want ErrUnknownIndicator", err)
	}
	if Kind(-1).String() != "unknown" {
		t.Errorf("Kind(-1).String() = %s", Kind(-1))
	}
}

func TestValue_JSON(t *testing.T) {
	out := Output{{}, Some(1.5), Some(math.NaN())}
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[null,1.5,null]" {
		t.Errorf("json = %s", data)
	}

	var back Output
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Defined() != 1 || back[1].Float64 != 1.5 {
		t.Errorf("decoded = %v", back)
	}
}

func TestOutput_Helpers(t *testing.T) {
	out := Output{{}, Some(2)}
	floats := out.Floats()
	if !math.IsNaN(floats[0]) || floats[1] != 2 {
		t.Errorf("Floats() = %v", floats)
	}
	if out.Last().Float64 != 2 {
		t.Errorf("Last() = %v", out.Last())
	}
	if (Output{}).Last().Valid {
		t.Error("Last() of empty output should be undefined")
	}
	if Some(math.Inf(1)).Valid {
		t.Error("Some(+Inf) should be undefined")
	}
	if (Value{}).String() != "null" || Some(0.25).String() != "0.25" {
		t.Error("unexpected String() formatting")
	}
}
