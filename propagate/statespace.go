package propagate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-unc/filtertool"
)

// Errors returned by the propagation functions.
var (
	ErrDenominator      = errors.New("propagate: denominator must have a[0] == 1 and order >= 1")
	ErrEmptyNoise       = errors.New("propagate: noise description must not be empty")
	ErrLengthMismatch   = errors.New("propagate: input length mismatch")
	ErrCovarianceSize   = errors.New("propagate: coefficient covariance has wrong size")
	ErrNoiseKind        = errors.New("propagate: unknown noise kind")
	ErrStateMismatch    = errors.New("propagate: supplied state does not match filter dimensions")
	ErrMarginallyStable = errors.New("propagate: filter is marginally stable, stationary state is undefined")
)

// IIRState is the internal state of the IIR uncertainty recursion: the state
// vector, its sensitivity to the denominator coefficients, its covariance,
// and the cached correlated-noise contribution. A state is exported as a
// checkpoint by IIR and can seed a subsequent call for chunked processing.
// It is treated as immutable once returned.
type IIRState struct {
	z       *mat.VecDense
	dz      *mat.Dense
	cov     *mat.Dense
	corrUnc float64
}

// Order returns the denominator order the state belongs to.
func (s *IIRState) Order() int {
	return s.z.Len()
}

func (s *IIRState) clone() *IIRState {
	return &IIRState{
		z:       mat.VecDenseCopyOf(s.z),
		dz:      mat.DenseCopyOf(s.dz),
		cov:     mat.DenseCopyOf(s.cov),
		corrUnc: s.corrUnc,
	}
}

// stateSpace is the observable canonical realization of a transfer function
// (b, a) used by the sensitivity recursion: the input matrix is the unit
// impulse-injection vector e_p, the output row packs (b[1:] - b[0]*a[1:])
// in reversed order, and the direct term is b[0].
type stateSpace struct {
	a  *mat.Dense    // p x p companion-type state matrix
	b  *mat.VecDense // p x 1 input vector (unit, last entry)
	c  *mat.VecDense // output row stored as a vector
	b0 float64       // direct feed-through
}

// normalizeCoeffs validates (b, a) and zero-pads the shorter coefficient
// vector so both have the common length p+1.
func normalizeCoeffs(b, a []float64) (bn, an []float64, p int, err error) {
	if len(a) < 2 || a[0] != 1 {
		return nil, nil, 0, ErrDenominator
	}
	if len(b) == 0 {
		return nil, nil, 0, ErrDenominator
	}

	n := max(len(b), len(a))
	bn = make([]float64, n)
	an = make([]float64, n)
	copy(bn, b)
	copy(an, a)

	return bn, an, n - 1, nil
}

// tf2ss converts padded coefficient vectors (len(b) == len(a) == p+1) into
// the observable canonical state space required by the recursion.
func tf2ss(b, a []float64) stateSpace {
	p := len(a) - 1

	A := mat.NewDense(p, p, nil)
	for i := range p - 1 {
		A.Set(i, i+1, 1)
	}
	for j := range p {
		A.Set(p-1, j, -a[p-j])
	}

	B := mat.NewVecDense(p, nil)
	B.SetVec(p-1, 1)

	C := mat.NewVecDense(p, nil)
	for j := range p {
		C.SetVec(j, b[p-j]-b[0]*a[p-j])
	}

	return stateSpace{a: A, b: B, c: C, b0: b[0]}
}

// checkSolve filters the errors of gonum dense solves: an ill-conditioned but
// solvable system is accepted, an exactly singular one is not.
func checkSolve(err error) error {
	if err == nil {
		return nil
	}
	var cond mat.Condition
	if errors.As(err, &cond) && !math.IsInf(float64(cond), 0) {
		return nil
	}
	return err
}

// solveDiscreteLyapunov solves P = A P A^T + Q for P by rewriting the
// fixed-point equation as the linear system (I - kron(A, A)) vec(P) = vec(Q).
// The system is singular exactly when A has a reciprocal eigenvalue pair on
// the unit circle, i.e. for a marginally stable filter.
func solveDiscreteLyapunov(A *mat.Dense, Q *mat.Dense) (*mat.Dense, error) {
	p, _ := A.Dims()
	n := p * p

	K := mat.NewDense(n, n, nil)
	for i := range p {
		for j := range p {
			row := i*p + j
			for k := range p {
				for l := range p {
					col := k*p + l
					v := -A.At(i, k) * A.At(j, l)
					if row == col {
						v++
					}
					K.Set(row, col, v)
				}
			}
		}
	}

	rhs := mat.NewVecDense(n, nil)
	for i := range p {
		for j := range p {
			rhs.SetVec(i*p+j, Q.At(i, j))
		}
	}

	var sol mat.VecDense
	if err := checkSolve(sol.SolveVec(K, rhs)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarginallyStable, err)
	}

	P := mat.NewDense(p, p, nil)
	for i := range p {
		for j := range p {
			P.Set(i, j, sol.AtVec(i*p+j))
		}
	}

	// Symmetrize against round-off; the exact solution is symmetric.
	for i := range p {
		for j := i + 1; j < p; j++ {
			v := 0.5 * (P.At(i, j) + P.At(j, i))
			P.Set(i, j, v)
			P.Set(j, i, v)
		}
	}

	return P, nil
}

// correlatedUncertainty computes the cumulative output-uncertainty
// contribution of stationary correlated input noise: the quadratic form of
// the filter impulse response over the Toeplitz matrix of the one-sided
// autocovariance.
func correlatedUncertainty(b, a []float64, autocov []float64) (float64, error) {
	h, err := filtertool.ImpulseResponse(b, a, len(autocov))
	if err != nil {
		return 0, err
	}

	var sum float64
	for r := range h {
		for s := range h {
			lag := r - s
			if lag < 0 {
				lag = -lag
			}
			sum += h[r] * h[s] * autocov[lag]
		}
	}

	return sum, nil
}

// InitialState computes the internal state of the IIR uncertainty recursion
// for a stationary input operating point: the stationary state z from
// (I-A) z = B x0, its stationary sensitivity dz from (I-A) dz = dA z, and its
// stationary covariance P from the discrete Lyapunov equation
// P = A P A^T + u0^2 B B^T. A non-nil autocov additionally caches the
// correlated-noise contribution for NoiseCorr propagation.
//
// A marginally stable filter (eigenvalue of A at 1) makes the stationary
// state undefined and yields ErrMarginallyStable.
func InitialState(b, a []float64, x0, u0 float64, autocov []float64) (*IIRState, error) {
	bn, an, p, err := normalizeCoeffs(b, a)
	if err != nil {
		return nil, err
	}

	sys := tf2ss(bn, an)

	IminusA := mat.NewDense(p, p, nil)
	for i := range p {
		for j := range p {
			v := -sys.a.At(i, j)
			if i == j {
				v++
			}
			IminusA.Set(i, j, v)
		}
	}

	rhs := mat.NewVecDense(p, nil)
	rhs.ScaleVec(x0, sys.b)

	var z mat.VecDense
	if err := checkSolve(z.SolveVec(IminusA, rhs)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarginallyStable, err)
	}

	// dA z has a single non-zero row: the derivative of A w.r.t. a_k only
	// touches the last row, so column k of the right-hand side carries
	// -z[p-1-k] in its last entry.
	dAz := mat.NewDense(p, p, nil)
	for k := range p {
		dAz.Set(p-1, k, -z.AtVec(p-1-k))
	}

	var dz mat.Dense
	if err := checkSolve(dz.Solve(IminusA, dAz)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarginallyStable, err)
	}

	var P *mat.Dense
	if u0 != 0 {
		Q := mat.NewDense(p, p, nil)
		Q.Set(p-1, p-1, u0*u0)
		P, err = solveDiscreteLyapunov(sys.a, Q)
		if err != nil {
			return nil, err
		}
	} else {
		P = mat.NewDense(p, p, nil)
	}

	var corrUnc float64
	if autocov != nil {
		corrUnc, err = correlatedUncertainty(bn, an, autocov)
		if err != nil {
			return nil, err
		}
	}

	return &IIRState{z: &z, dz: &dz, cov: P, corrUnc: corrUnc}, nil
}
