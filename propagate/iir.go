package propagate

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// IIRResult bundles the output of an IIR propagation call.
type IIRResult struct {
	// Y is the filtered output signal.
	Y []float64

	// Uy holds the point-wise standard uncertainties associated with Y.
	Uy []float64

	// State is the internal state after the last processed sample. Passing
	// it to a subsequent call via WithState continues the recursion as if
	// both signals had been processed in one call.
	State *IIRState
}

// IIR applies the IIR filter (b, a) to the signal x and propagates both the
// input uncertainty ux and the optional coefficient covariance
// (WithCoeffCovariance, over the vector [a[1:], b]) to point-wise output
// uncertainties.
//
// Under NoiseDiag (default), ux holds per-sample standard uncertainties of
// white input noise; a single-element ux is broadcast over x. Under
// NoiseCorr, ux holds the one-sided autocovariance of stationary input noise.
//
// Numerator and denominator are zero-padded to a common length; the
// denominator must be monic with order >= 1.
func IIR(x, ux []float64, b, a []float64, opts ...Option) (*IIRResult, error) {
	cfg := applyOptions(opts)

	if !cfg.kind.valid() {
		return nil, ErrNoiseKind
	}
	if len(ux) == 0 {
		return nil, ErrEmptyNoise
	}

	bn, an, p, err := normalizeCoeffs(b, a)
	if err != nil {
		return nil, err
	}

	if len(ux) == 1 && len(x) > 1 {
		broadcast := make([]float64, len(x))
		for i := range broadcast {
			broadcast[i] = ux[0]
		}
		ux = broadcast
	}
	if cfg.kind == NoiseDiag && len(ux) != len(x) {
		return nil, ErrLengthMismatch
	}

	nphi := 2*p + 1
	if cfg.coeffCov != nil && cfg.coeffCov.SymmetricDim() != nphi {
		return nil, ErrCovarianceSize
	}

	sys := tf2ss(bn, an)

	var state *IIRState
	if cfg.state != nil {
		if cfg.state.Order() != p {
			return nil, ErrStateMismatch
		}
		state = cfg.state.clone()
	} else {
		var autocov []float64
		if cfg.kind == NoiseCorr {
			autocov = ux
		}
		state, err = InitialState(bn, an, 0, 0, autocov)
		if err != nil {
			return nil, err
		}
	}

	z, dz, P := state.z, state.dz, state.cov

	y := make([]float64, len(x))
	uy := make([]float64, len(x))

	phi := mat.NewVecDense(nphi, nil)
	var (
		covPhi  mat.VecDense
		pc      mat.VecDense
		tmpMat  mat.Dense
		nextP   mat.Dense
		nextDz  mat.Dense
		nextZ   mat.VecDense
		lastRow = p - 1
	)

	for n := range x {
		// Sensitivity of the output w.r.t. a_1..a_p, b_0, b_1..b_p.
		for j := range p {
			var acc float64
			for i := range p {
				acc += sys.c.AtVec(i) * dz.At(i, j)
			}
			phi.SetVec(j, acc-sys.b0*z.AtVec(lastRow-j))
		}
		db0 := x[n]
		for j := range p {
			db0 -= an[p-j] * z.AtVec(j)
		}
		phi.SetVec(p, db0)
		for k := range p {
			phi.SetVec(p+1+k, z.AtVec(lastRow-k))
		}

		y[n] = mat.Dot(sys.c, z) + sys.b0*x[n]

		var coeffVar float64
		if cfg.coeffCov != nil {
			covPhi.MulVec(cfg.coeffCov, phi)
			coeffVar = mat.Dot(phi, &covPhi)
		}

		switch cfg.kind {
		case NoiseDiag:
			pc.MulVec(P, sys.c)
			b0u := sys.b0 * ux[n]
			uy[n] = coeffVar + mat.Dot(sys.c, &pc) + b0u*b0u
		case NoiseCorr:
			uy[n] = coeffVar + state.corrUnc
		}

		// State covariance update P <- A P A^T + q B B^T. With B the unit
		// impulse-injection vector the added term only touches the corner.
		tmpMat.Mul(sys.a, P)
		nextP.Mul(&tmpMat, sys.a.T())
		switch cfg.kind {
		case NoiseDiag:
			nextP.Set(lastRow, lastRow, nextP.At(lastRow, lastRow)+ux[n]*ux[n])
		case NoiseCorr:
			nextP.Set(lastRow, lastRow, nextP.At(lastRow, lastRow)+ux[0])
		}
		P.Copy(&nextP)

		// Sensitivity update dz <- A dz + dA z, exploiting that dA z only
		// fills the last row with the reversed, negated state.
		nextDz.Mul(sys.a, dz)
		for k := range p {
			nextDz.Set(lastRow, k, nextDz.At(lastRow, k)-z.AtVec(lastRow-k))
		}
		dz.Copy(&nextDz)

		// State update z <- A z + B x[n].
		nextZ.MulVec(sys.a, z)
		nextZ.SetVec(lastRow, nextZ.AtVec(lastRow)+x[n])
		z.CopyVec(&nextZ)
	}

	// Guard against small negative variances from floating-point
	// cancellation before taking the square root.
	for i, v := range uy {
		uy[i] = math.Sqrt(math.Abs(v))
	}

	return &IIRResult{Y: y, Uy: uy, State: state}, nil
}
