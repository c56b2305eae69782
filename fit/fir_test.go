package fit

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-unc/filtertool"
	"github.com/cwbudde/algo-unc/internal/testutil"
)

func TestLSFIRRecoversFIR(t *testing.T) {
	b0 := []float64{0.5, 0.3, 0.2}
	const fs = 1000.0
	f := frequencyGrid(12, 450)

	h, err := filtertool.FreqResp(b0, []float64{1}, f, fs)
	if err != nil {
		t.Fatalf("FreqResp: %v", err)
	}

	b, err := LSFIR(h, 2, 0, f, fs)
	if err != nil {
		t.Fatalf("LSFIR: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, b, b0, 1e-8)
}

func TestLSFIRPureDelay(t *testing.T) {
	const fs = 1000.0
	f := frequencyGrid(12, 450)
	h := make([]complex128, len(f))
	for i := range h {
		h[i] = 1
	}

	// A flat response fit with two samples of delay is the two-sample
	// delay filter.
	b, err := LSFIR(h, 4, 2, f, fs)
	if err != nil {
		t.Fatalf("LSFIR: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, b, []float64{0, 0, 1, 0, 0}, 1e-8)
}

func TestLSFIRUniformWeightsMatchUnweighted(t *testing.T) {
	b0 := []float64{0.5, 0.3, 0.2}
	const fs = 1000.0
	f := frequencyGrid(12, 450)

	h, err := filtertool.FreqResp(b0, []float64{1}, f, fs)
	if err != nil {
		t.Fatalf("FreqResp: %v", err)
	}

	plain, err := LSFIR(h, 2, 0, f, fs)
	if err != nil {
		t.Fatalf("LSFIR: %v", err)
	}

	weights := testutil.DC(2, len(f))
	weighted, err := LSFIR(h, 2, 0, f, fs, WithWeights(weights))
	if err != nil {
		t.Fatalf("LSFIR weighted: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, weighted, plain, 1e-10)
}

func TestInvLSFIRRecoversInverse(t *testing.T) {
	// The reciprocal of 1/b0(z) is the FIR filter b0 itself.
	b0 := []float64{1, -0.5, 0.06}
	const fs = 1000.0
	f := frequencyGrid(12, 450)

	h, err := filtertool.FreqResp([]float64{1}, b0, f, fs)
	if err != nil {
		t.Fatalf("FreqResp: %v", err)
	}

	b, err := InvLSFIR(h, 2, 0, f, fs)
	if err != nil {
		t.Fatalf("InvLSFIR: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, b, b0, 1e-8)
}

func TestInvLSFIRUnc(t *testing.T) {
	b0 := []float64{1, -0.5, 0.06}
	const fs = 1000.0
	f := frequencyGrid(12, 450)

	h, err := filtertool.FreqResp([]float64{1}, b0, f, fs)
	if err != nil {
		t.Fatalf("FreqResp: %v", err)
	}

	uh := mat.NewSymDense(2*len(h), nil)
	for i := range 2 * len(h) {
		uh.SetSym(i, i, 1e-10)
	}

	b, ub, err := InvLSFIRUnc(h, uh, 2, 0, f, fs,
		WithMCRuns(200), WithRandSource(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatalf("InvLSFIRUnc: %v", err)
	}

	// The nominal coefficients are deterministic and match the plain design.
	testutil.RequireSliceNearlyEqual(t, b, b0, 1e-8)

	if dim := ub.SymmetricDim(); dim != 3 {
		t.Fatalf("Ub dimension = %d, want 3", dim)
	}
	for i := range 3 {
		v := ub.At(i, i)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("Ub[%d][%d] = %g", i, i, v)
		}
	}
}

func TestInvLSFIRUncMC(t *testing.T) {
	b0 := []float64{1, -0.5, 0.06}
	const fs = 1000.0
	f := frequencyGrid(12, 450)

	h, err := filtertool.FreqResp([]float64{1}, b0, f, fs)
	if err != nil {
		t.Fatalf("FreqResp: %v", err)
	}

	uh := mat.NewSymDense(2*len(h), nil)
	for i := range 2 * len(h) {
		uh.SetSym(i, i, 1e-12)
	}

	b, ub, err := InvLSFIRUncMC(h, uh, 2, 0, f, fs,
		WithMCRuns(100), WithRandSource(rand.NewPCG(5, 6)))
	if err != nil {
		t.Fatalf("InvLSFIRUncMC: %v", err)
	}

	// With a nearly point-mass response distribution the Monte Carlo mean
	// approaches the plain design.
	testutil.RequireSliceNearlyEqual(t, b, b0, 1e-4)

	if dim := ub.SymmetricDim(); dim != 3 {
		t.Fatalf("Ub dimension = %d, want 3", dim)
	}
	for i := range 3 {
		v := ub.At(i, i)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("Ub[%d][%d] = %g", i, i, v)
		}
	}
}

func TestFIRContractViolations(t *testing.T) {
	const fs = 1000.0
	f := frequencyGrid(8, 400)
	h := make([]complex128, len(f))
	for i := range h {
		h[i] = 1
	}

	if _, err := LSFIR(h, -1, 0, f, fs); !errors.Is(err, ErrOrder) {
		t.Fatalf("negative order: got %v, want %v", err, ErrOrder)
	}
	if _, err := LSFIR(h, 2, 0, f, fs, WithWeights([]float64{1, 2})); !errors.Is(err, ErrWeights) {
		t.Fatalf("short weights: got %v, want %v", err, ErrWeights)
	}
	if _, err := LSFIR(h, 2, 0, f[:4], fs); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("length mismatch: got %v, want %v", err, ErrLengthMismatch)
	}
	if _, _, err := InvLSFIRUnc(h, nil, 2, 0, f, fs); !errors.Is(err, ErrCovarianceSize) {
		t.Fatalf("nil covariance: got %v, want %v", err, ErrCovarianceSize)
	}
	if _, _, err := InvLSFIRUncMC(h, mat.NewSymDense(3, nil), 2, 0, f, fs); !errors.Is(err, ErrCovarianceSize) {
		t.Fatalf("covariance size: got %v, want %v", err, ErrCovarianceSize)
	}
}
