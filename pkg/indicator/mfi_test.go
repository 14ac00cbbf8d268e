package indicator

import "testing"

// sampleBars are three hand-checked bars: up, down, up.
func sampleBars() Inputs {
	return Inputs{
		Open:   []float64{10, 11, 10},
		High:   []float64{12, 12, 13},
		Low:    []float64{8, 9, 10},
		Close:  []float64{11, 10, 12},
		Volume: []float64{100, 200, 150},
	}
}

func TestMFI_Basic(t *testing.T) {
	in := sampleBars()
	out, err := MFI(in.Open, in.High, in.Low, in.Close, in.Volume, 2)
	if err != nil {
		t.Fatalf("mfi: %v", err)
	}
	// Positive flow 31/3*100 + 35/3*150, negative flow 31/3*200.
	assertClose(t, "MFI(2)", out[2], 57.388316151202744, 1e-9)
}

func TestMFI_FlatBarCountsAsNegative(t *testing.T) {
	in := Inputs{
		Open:   []float64{10, 10, 10},
		High:   []float64{11, 11, 11},
		Low:    []float64{9, 9, 9},
		Close:  []float64{10, 10, 10},
		Volume: []float64{1, 1, 1},
	}
	out, err := MFI(in.Open, in.High, in.Low, in.Close, in.Volume, 2)
	if err != nil {
		t.Fatalf("mfi: %v", err)
	}
	assertClose(t, "flat", out[2], 0, 1e-12)
}

func TestMFI_NoNegativeFlowIsUndefined(t *testing.T) {
	in := Inputs{
		Open:   []float64{10, 11, 12},
		High:   []float64{12, 13, 14},
		Low:    []float64{9, 10, 11},
		Close:  []float64{11, 12, 13},
		Volume: []float64{100, 100, 100},
	}
	out, err := MFI(in.Open, in.High, in.Low, in.Close, in.Volume, 2)
	if err != nil {
		t.Fatalf("mfi: %v", err)
	}
	assertUndefined(t, "all positive", out[2])
}

func TestMFI_Bounded(t *testing.T) {
	in := randomBars(150, 5)
	out, err := MFI(in.Open, in.High, in.Low, in.Close, in.Volume, 14)
	if err != nil {
		t.Fatalf("mfi: %v", err)
	}
	for i, v := range out {
		if v.Valid && (v.Float64 < 0 || v.Float64 > 100) {
			t.Errorf("MFI[%d] = %v out of [0, 100]", i, v.Float64)
		}
	}
}
