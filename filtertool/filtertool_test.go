package filtertool

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-unc/internal/testutil"
)

func TestFilterFIRConvolution(t *testing.T) {
	// Pure FIR: output is the convolution of b with x, truncated.
	y, err := Filter([]float64{1, 2}, []float64{1}, []float64{1, 0, 0, 1})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, y, []float64{1, 2, 0, 1}, 1e-12)
}

func TestFilterFirstOrderIIR(t *testing.T) {
	// y[n] = 0.5 x[n] + 0.5 y[n-1]: impulse response 0.5, 0.25, 0.125, ...
	y, err := Filter([]float64{0.5}, []float64{1, -0.5}, testutil.Impulse(5, 0))
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, y, []float64{0.5, 0.25, 0.125, 0.0625, 0.03125}, 1e-12)
}

func TestFilterNormalizesLeadingCoefficient(t *testing.T) {
	x := testutil.DeterministicNoise(7, 1, 64)
	y1, err := Filter([]float64{1, 0.5}, []float64{1, -0.3}, x)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	y2, err := Filter([]float64{2, 1}, []float64{2, -0.6}, x)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, y1, y2, 1e-12)
}

func TestFilterContractViolations(t *testing.T) {
	if _, err := Filter(nil, []float64{1}, nil); err == nil {
		t.Fatal("expected error for empty numerator")
	}
	if _, err := Filter([]float64{1}, []float64{0, 1}, nil); err == nil {
		t.Fatal("expected error for zero leading denominator coefficient")
	}
}

func TestImpulseResponseMatchesFilter(t *testing.T) {
	b := []float64{0.2, 0.3}
	a := []float64{1, -0.4}
	h, err := ImpulseResponse(b, a, 16)
	if err != nil {
		t.Fatalf("ImpulseResponse: %v", err)
	}
	want, err := Filter(b, a, testutil.Impulse(16, 0))
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, h, want, 1e-12)
}

func TestFreqRespDCGain(t *testing.T) {
	// DC gain of (b, a) is sum(b)/sum(a).
	b := []float64{0.5, 0.2}
	a := []float64{1, -0.3}
	h, err := FreqResp(b, a, []float64{0}, 48000)
	if err != nil {
		t.Fatalf("FreqResp: %v", err)
	}
	want := (0.5 + 0.2) / (1 - 0.3)
	if cmplx.Abs(h[0]-complex(want, 0)) > 1e-12 {
		t.Fatalf("H(0) = %v, want %v", h[0], want)
	}
}

func TestFreqRespPureDelay(t *testing.T) {
	// b = [0 0 1] is a two-sample delay: |H| = 1, phase = -2w.
	f := []float64{1000, 2000, 5000}
	fs := 48000.0
	h, err := FreqResp([]float64{0, 0, 1}, []float64{1}, f, fs)
	if err != nil {
		t.Fatalf("FreqResp: %v", err)
	}
	for i, freq := range f {
		w := 2 * math.Pi * freq / fs
		if math.Abs(cmplx.Abs(h[i])-1) > 1e-12 {
			t.Fatalf("|H| at %v Hz = %v, want 1", freq, cmplx.Abs(h[i]))
		}
		wantPhase := math.Mod(-2*w+3*math.Pi, 2*math.Pi) - math.Pi
		if math.Abs(cmplx.Phase(h[i])-wantPhase) > 1e-9 {
			t.Fatalf("phase at %v Hz = %v, want %v", freq, cmplx.Phase(h[i]), wantPhase)
		}
	}
}

func TestMagnitude(t *testing.T) {
	got := Magnitude([]complex128{3 + 4i, 1, -2i})
	testutil.RequireSliceNearlyEqual(t, got, []float64{5, 1, 2}, 1e-12)
}

func TestIsStable(t *testing.T) {
	cases := []struct {
		name string
		a    []float64
		want bool
	}{
		{"first order stable", []float64{1, -0.5}, true},
		{"first order unstable", []float64{1, -1.25}, false},
		{"on unit circle", []float64{1, -1}, false},
		{"constant", []float64{1}, true},
		{"second order stable", []float64{1, -0.2, 0.5}, true},
		{"second order unstable", []float64{1, 0, 1.21}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IsStable(tc.a)
			if err != nil {
				t.Fatalf("IsStable: %v", err)
			}
			if got != tc.want {
				t.Fatalf("IsStable(%v) = %v, want %v", tc.a, got, tc.want)
			}
		})
	}
}

func TestMapInsideReflectsRoots(t *testing.T) {
	// Root at 1.25 maps to 0.8.
	mapped, err := MapInside([]float64{1, -1.25})
	if err != nil {
		t.Fatalf("MapInside: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, mapped, []float64{1, -0.8}, 1e-9)

	stable, err := IsStable(mapped)
	if err != nil {
		t.Fatalf("IsStable: %v", err)
	}
	if !stable {
		t.Fatal("mapped polynomial is not stable")
	}
}

func TestMapInsideKeepsStableRoots(t *testing.T) {
	a := []float64{1, -0.2, 0.5}
	mapped, err := MapInside(a)
	if err != nil {
		t.Fatalf("MapInside: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, mapped, a, 1e-9)
}

func TestGroupDelayPureDelay(t *testing.T) {
	// A two-sample FIR delay has constant group delay 2.
	gd, f, err := GroupDelay([]float64{0, 0, 1}, []float64{1}, 48000)
	if err != nil {
		t.Fatalf("GroupDelay: %v", err)
	}
	if len(gd) != len(f) || len(gd) == 0 {
		t.Fatalf("len(gd) = %d, len(f) = %d", len(gd), len(f))
	}
	testutil.RequireSliceNearlyEqual(t, gd, testutil.DC(2, len(gd)), 1e-9)
	if f[0] != 0 || f[len(f)-1] >= 24000 {
		t.Fatalf("frequency grid [%v, %v] not in [0, fs/2)", f[0], f[len(f)-1])
	}
}

func TestGroupDelayFirstOrderIIR(t *testing.T) {
	// For H(z) = 1/(1 - r z^-1) the group delay at DC is r/(1-r).
	r := 0.5
	gd, _, err := GroupDelay([]float64{1}, []float64{1, -r}, 48000)
	if err != nil {
		t.Fatalf("GroupDelay: %v", err)
	}
	testutil.RequireNearlyEqual(t, gd[0], r/(1-r), 1e-9)
	testutil.RequireFinite(t, gd)
}
