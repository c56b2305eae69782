package propagate

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-unc/internal/testutil"
)

func TestTf2ssShapes(t *testing.T) {
	b := []float64{0.5, 0.2, 0.1}
	a := []float64{1, -0.4, 0.3}
	sys := tf2ss(b, a)

	r, c := sys.a.Dims()
	if r != 2 || c != 2 {
		t.Fatalf("A is %dx%d, want 2x2", r, c)
	}
	if sys.b0 != b[0] {
		t.Fatalf("b0 = %v, want %v", sys.b0, b[0])
	}
	// Companion structure: superdiagonal ones, last row carries -a reversed.
	if sys.a.At(0, 1) != 1 {
		t.Fatalf("A[0,1] = %v, want 1", sys.a.At(0, 1))
	}
	if sys.a.At(1, 0) != -a[2] || sys.a.At(1, 1) != -a[1] {
		t.Fatalf("last row = [%v %v], want [%v %v]", sys.a.At(1, 0), sys.a.At(1, 1), -a[2], -a[1])
	}
	if sys.b.AtVec(0) != 0 || sys.b.AtVec(1) != 1 {
		t.Fatalf("B = %v, want unit last entry", sys.b)
	}
	// C packs (b[1:] - b0 a[1:]) reversed.
	wantC0 := b[2] - b[0]*a[2]
	wantC1 := b[1] - b[0]*a[1]
	if math.Abs(sys.c.AtVec(0)-wantC0) > 1e-15 || math.Abs(sys.c.AtVec(1)-wantC1) > 1e-15 {
		t.Fatalf("C = [%v %v], want [%v %v]", sys.c.AtVec(0), sys.c.AtVec(1), wantC0, wantC1)
	}
}

func TestInitialStateDCGain(t *testing.T) {
	// At a stationary operating point the realization must reproduce the
	// filter's DC gain: y = C z + b0 x0 = H(1) x0.
	b := []float64{0.5, 0}
	a := []float64{1, -0.5}
	x0 := 2.0

	state, err := InitialState(b, a, x0, 0, nil)
	if err != nil {
		t.Fatalf("InitialState: %v", err)
	}

	sys := tf2ss(b, a)
	y := mat.Dot(sys.c, state.z) + sys.b0*x0

	dcGain := (0.5 + 0.0) / (1 - 0.5)
	testutil.RequireNearlyEqual(t, y, dcGain*x0, 1e-12)
}

func TestInitialStateZeroOperatingPoint(t *testing.T) {
	state, err := InitialState([]float64{0.3, 0.1}, []float64{1, -0.2}, 0, 0, nil)
	if err != nil {
		t.Fatalf("InitialState: %v", err)
	}
	if state.z.AtVec(0) != 0 {
		t.Fatalf("z = %v, want zero", state.z)
	}
	if state.cov.At(0, 0) != 0 {
		t.Fatalf("P = %v, want zero", state.cov)
	}
}

func TestInitialStateMarginallyStable(t *testing.T) {
	// a = [1, -1] puts a pole at z = 1: (I - A) is singular.
	_, err := InitialState([]float64{1, 0}, []float64{1, -1}, 1, 0.1, nil)
	if err == nil {
		t.Fatal("expected error for marginally stable filter")
	}
	if !errors.Is(err, ErrMarginallyStable) {
		t.Fatalf("err = %v, want ErrMarginallyStable", err)
	}
}

func TestInitialStateContract(t *testing.T) {
	if _, err := InitialState([]float64{1}, []float64{1}, 0, 0, nil); !errors.Is(err, ErrDenominator) {
		t.Fatalf("constant denominator: err = %v, want ErrDenominator", err)
	}
	if _, err := InitialState([]float64{1}, []float64{2, -0.5}, 0, 0, nil); !errors.Is(err, ErrDenominator) {
		t.Fatalf("non-monic denominator: err = %v, want ErrDenominator", err)
	}
}

func TestSolveDiscreteLyapunovFirstOrder(t *testing.T) {
	// P = a^2 P + q has the closed form q / (1 - a^2).
	A := mat.NewDense(1, 1, []float64{0.5})
	Q := mat.NewDense(1, 1, []float64{0.75})

	P, err := solveDiscreteLyapunov(A, Q)
	if err != nil {
		t.Fatalf("solveDiscreteLyapunov: %v", err)
	}
	testutil.RequireNearlyEqual(t, P.At(0, 0), 1, 1e-12)
}

func TestSolveDiscreteLyapunovResidual(t *testing.T) {
	A := mat.NewDense(2, 2, []float64{0, 1, -0.3, 0.4})
	Q := mat.NewDense(2, 2, []float64{0, 0, 0, 0.25})

	P, err := solveDiscreteLyapunov(A, Q)
	if err != nil {
		t.Fatalf("solveDiscreteLyapunov: %v", err)
	}

	// Residual P - A P A^T - Q must vanish.
	var apa, tmp mat.Dense
	tmp.Mul(A, P)
	apa.Mul(&tmp, A.T())
	for i := range 2 {
		for j := range 2 {
			res := P.At(i, j) - apa.At(i, j) - Q.At(i, j)
			if math.Abs(res) > 1e-12 {
				t.Fatalf("residual[%d,%d] = %v", i, j, res)
			}
		}
	}
	// And P must be symmetric.
	if math.Abs(P.At(0, 1)-P.At(1, 0)) > 1e-12 {
		t.Fatalf("P not symmetric: %v vs %v", P.At(0, 1), P.At(1, 0))
	}
}

func TestSolveDiscreteLyapunovMarginal(t *testing.T) {
	A := mat.NewDense(1, 1, []float64{1})
	Q := mat.NewDense(1, 1, []float64{1})
	if _, err := solveDiscreteLyapunov(A, Q); !errors.Is(err, ErrMarginallyStable) {
		t.Fatalf("err = %v, want ErrMarginallyStable", err)
	}
}

func TestCorrelatedUncertaintyWhiteNoise(t *testing.T) {
	// For white noise the autocovariance is sigma^2 at lag zero only, and
	// the contribution collapses to sigma^2 * sum(h^2).
	b := []float64{0.5, 0}
	a := []float64{1, -0.5}
	sigma2 := 0.04
	autocov := make([]float64, 64)
	autocov[0] = sigma2

	got, err := correlatedUncertainty(b, a, autocov)
	if err != nil {
		t.Fatalf("correlatedUncertainty: %v", err)
	}

	// Impulse response of this first-order low-pass: 0.5^(n+1).
	var want float64
	for n := range 64 {
		h := math.Pow(0.5, float64(n+1))
		want += sigma2 * h * h
	}
	testutil.RequireNearlyEqual(t, got, want, 1e-12)
}
