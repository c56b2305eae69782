package fit

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
)

// ErrWeights reports a weight vector whose length does not match the
// frequency grid.
var ErrWeights = errors.New("fit: weight vector length must match the frequency grid")

// LSFIR fits an order n FIR filter to the frequency response h given at the
// frequencies f for a filter running at the sampling frequency fs. The fit
// targets the response delayed by tau samples; WithWeights selects a weighted
// least-squares fit.
func LSFIR(h []complex128, n, tau int, f []float64, fs float64, opts ...Option) ([]float64, error) {
	cfg := applyOptions(opts)
	return lsfir(h, n, tau, f, fs, cfg, false)
}

// InvLSFIR fits an order n FIR filter to the reciprocal of the frequency
// response h, delayed by tau samples. This is the standard deconvolution
// filter design.
func InvLSFIR(h []complex128, n, tau int, f []float64, fs float64, opts ...Option) ([]float64, error) {
	cfg := applyOptions(opts)
	return lsfir(h, n, tau, f, fs, cfg, true)
}

func lsfir(h []complex128, n, tau int, f []float64, fs float64, cfg config, reciprocal bool) ([]float64, error) {
	w, err := validateFIRInputs(h, n, f, fs, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.verbose != nil {
		fmt.Fprintf(cfg.verbose, "fit: least-squares fit of an order %d FIR filter to%s a response given by %d values\n",
			n, reciprocalNote(reciprocal), len(h))
	}

	x := stackedDesign(w, n, cfg.weights)
	rhs := stackedTarget(h, w, tau, cfg.weights, reciprocal)

	sol, err := solveMinNorm(x, rhs, cfg.svdTol)
	if err != nil {
		return nil, err
	}

	b := make([]float64, n+1)
	for i := range b {
		b[i] = sol.AtVec(i)
	}
	return b, nil
}

// InvLSFIRUnc designs an order n deconvolution FIR filter for the frequency
// response h with associated covariance uh over its interleaved real and
// imaginary parts. The response covariance is propagated to the reciprocal by
// Monte Carlo and from there to the coefficients by linear propagation
// through the truncated pseudo-inverse of the design matrix.
func InvLSFIRUnc(h []complex128, uh *mat.SymDense, n, tau int, f []float64, fs float64, opts ...Option) ([]float64, *mat.SymDense, error) {
	cfg := applyOptions(opts)

	w, err := validateFIRInputs(h, n, f, fs, cfg)
	if err != nil {
		return nil, nil, err
	}
	m := len(h)
	if uh == nil || uh.SymmetricDim() != 2*m {
		return nil, nil, ErrCovarianceSize
	}

	// Monte Carlo propagation of the response covariance to the stacked
	// real and imaginary parts of the delayed reciprocal.
	runs := cfg.mcRuns
	if runs <= 0 {
		runs = 10000
	}
	inv := mat.NewDense(runs, 2*m, nil)
	err = monteCarloDraws(h, uh, cfg, runs, func(r int, hk []complex128) error {
		for i := range m {
			t := cmplx.Exp(complex(0, -w[i]*float64(tau))) / hk[i]
			inv.Set(r, i, real(t))
			inv.Set(r, m+i, imag(t))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	uiH := mat.NewSymDense(2*m, nil)
	stat.CovarianceMatrix(uiH, inv, nil)

	x := stackedDesign(w, n, cfg.weights)
	rhs := stackedTarget(h, w, tau, cfg.weights, true)

	pinv, err := pseudoInverse(x, cfg.svdTol)
	if err != nil {
		return nil, nil, err
	}

	bVec := mat.NewVecDense(n+1, nil)
	bVec.MulVec(pinv, rhs)

	var t, ubDense mat.Dense
	t.Mul(pinv, uiH)
	ubDense.Mul(&t, pinv.T())

	b := make([]float64, n+1)
	for i := range b {
		b[i] = bVec.AtVec(i)
	}
	return b, symmetrize(&ubDense), nil
}

// InvLSFIRUncMC is the full Monte Carlo variant of InvLSFIRUnc: every draw of
// the response is refit, and the coefficients and their covariance are the
// sample mean and covariance of the draws. It is the fallback when the design
// matrix is too ill-conditioned for linear propagation.
func InvLSFIRUncMC(h []complex128, uh *mat.SymDense, n, tau int, f []float64, fs float64, opts ...Option) ([]float64, *mat.SymDense, error) {
	cfg := applyOptions(opts)

	w, err := validateFIRInputs(h, n, f, fs, cfg)
	if err != nil {
		return nil, nil, err
	}
	m := len(h)
	if uh == nil || uh.SymmetricDim() != 2*m {
		return nil, nil, ErrCovarianceSize
	}

	x := stackedDesign(w, n, cfg.weights)

	runs := cfg.mcRuns
	if runs <= 0 {
		runs = 10000
	}
	draws := mat.NewDense(runs, n+1, nil)
	err = monteCarloDraws(h, uh, cfg, runs, func(r int, hk []complex128) error {
		rhs := stackedTarget(hk, w, tau, cfg.weights, true)
		sol, err := solveMinNorm(x, rhs, cfg.svdTol)
		if err != nil {
			return err
		}
		for i := 0; i <= n; i++ {
			draws.Set(r, i, sol.AtVec(i))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	b := make([]float64, n+1)
	for i := range b {
		var sum float64
		for r := range runs {
			sum += draws.At(r, i)
		}
		b[i] = sum / float64(runs)
	}

	ub := mat.NewSymDense(n+1, nil)
	stat.CovarianceMatrix(ub, draws, nil)
	return b, ub, nil
}

func validateFIRInputs(h []complex128, n int, f []float64, fs float64, cfg config) ([]float64, error) {
	if n < 0 {
		return nil, ErrOrder
	}
	if len(h) == 0 {
		return nil, ErrEmptyResponse
	}
	if len(f) != len(h) {
		return nil, ErrLengthMismatch
	}
	if fs <= 0 {
		return nil, ErrSampleRate
	}
	if cfg.weights != nil && len(cfg.weights) != len(f) {
		return nil, ErrWeights
	}

	w := make([]float64, len(f))
	for i, fi := range f {
		w[i] = 2 * math.Pi * fi / fs
	}
	return w, nil
}

// stackedDesign returns the real-valued design matrix: the real parts of
// exp(-j w k) stacked over the imaginary parts, row-scaled by the weights.
func stackedDesign(w []float64, order int, weights []float64) *mat.Dense {
	m := len(w)
	x := mat.NewDense(2*m, order+1, nil)
	for i, wi := range w {
		scale := 1.0
		if weights != nil {
			scale = weights[i]
		}
		for k := 0; k <= order; k++ {
			x.Set(i, k, scale*math.Cos(wi*float64(k)))
			x.Set(m+i, k, -scale*math.Sin(wi*float64(k)))
		}
	}
	return x
}

// stackedTarget returns the stacked real and imaginary parts of the delayed
// fitting target exp(-j w tau) h^(+-1), row-scaled by the weights.
func stackedTarget(h []complex128, w []float64, tau int, weights []float64, reciprocal bool) *mat.VecDense {
	m := len(h)
	rhs := mat.NewVecDense(2*m, nil)
	for i, hv := range h {
		if reciprocal {
			hv = 1 / hv
		}
		t := cmplx.Exp(complex(0, -w[i]*float64(tau))) * hv

		scale := 1.0
		if weights != nil {
			scale = weights[i]
		}
		rhs.SetVec(i, scale*real(t))
		rhs.SetVec(m+i, scale*imag(t))
	}
	return rhs
}

// monteCarloDraws draws runs joint normal samples of the response's real and
// imaginary parts and hands each draw to the callback as a complex response.
func monteCarloDraws(h []complex128, uh *mat.SymDense, cfg config, runs int, each func(r int, hk []complex128) error) error {
	m := len(h)
	mean := make([]float64, 2*m)
	for i, hv := range h {
		mean[i] = real(hv)
		mean[m+i] = imag(hv)
	}

	normal, ok := distmv.NewNormal(mean, uh, cfg.src)
	if !ok {
		return ErrCovariance
	}

	sample := make([]float64, 2*m)
	hk := make([]complex128, m)
	for r := range runs {
		normal.Rand(sample)
		for i := range m {
			hk[i] = complex(sample[i], sample[m+i])
		}
		if err := each(r, hk); err != nil {
			return err
		}
	}
	return nil
}
