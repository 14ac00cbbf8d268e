package indicator

import (
	"math"
	"testing"
)

func TestCMF_Basic(t *testing.T) {
	in := sampleBars()
	out, err := CMF(in.Open, in.High, in.Low, in.Close, in.Volume, 2)
	if err != nil {
		t.Fatalf("cmf: %v", err)
	}
	// Multipliers 1/2, -1/3, 1/3 weighted by 100, 200, 150 over 450.
	assertClose(t, "CMF(2)", out[2], 1.0/13.5, 1e-12)
}

func TestCMF_IgnoresOpen(t *testing.T) {
	in := sampleBars()
	a, _ := CMF(in.Open, in.High, in.Low, in.Close, in.Volume, 2)
	b, _ := CMF([]float64{0, 0, 0}, in.High, in.Low, in.Close, in.Volume, 2)
	if a[2] != b[2] {
		t.Errorf("open changed result: %v vs %v", a[2], b[2])
	}
}

func TestCMF_ZeroSpreadIsUndefined(t *testing.T) {
	prices := []float64{10, 10, 10, 10}
	out, err := CMF(prices, prices, prices, prices, []float64{5, 5, 5, 5}, 2)
	if err != nil {
		t.Fatalf("cmf: %v", err)
	}
	for i := 2; i < len(out); i++ {
		assertUndefined(t, "high == low", out[i])
		if math.IsNaN(out[i].Float64) {
			t.Errorf("undefined CMF[%d] carries NaN", i)
		}
	}
}

func TestCMF_ZeroVolumeIsUndefined(t *testing.T) {
	in := sampleBars()
	out, err := CMF(in.Open, in.High, in.Low, in.Close, []float64{0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("cmf: %v", err)
	}
	assertUndefined(t, "zero volume", out[2])
}

func TestCMF_Bounded(t *testing.T) {
	in := randomBars(150, 9)
	out, err := CMF(in.Open, in.High, in.Low, in.Close, in.Volume, 14)
	if err != nil {
		t.Fatalf("cmf: %v", err)
	}
	for i, v := range out {
		if v.Valid && (v.Float64 < -1 || v.Float64 > 1) {
			t.Errorf("CMF[%d] = %v out of [-1, 1]", i, v.Float64)
		}
	}
}
