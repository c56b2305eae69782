package fit

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/cwbudde/algo-unc/filtertool"
)

var (
	// ErrOrder reports a negative filter order.
	ErrOrder = errors.New("fit: filter orders must be non-negative")

	// ErrEmptyResponse reports an empty frequency response.
	ErrEmptyResponse = errors.New("fit: empty frequency response")

	// ErrLengthMismatch reports response and frequency grids of different
	// lengths.
	ErrLengthMismatch = errors.New("fit: response and frequency grid lengths differ")

	// ErrSampleRate reports a non-positive sampling frequency.
	ErrSampleRate = errors.New("fit: sample rate must be positive")

	// ErrCovarianceSize reports a response covariance whose dimension does
	// not match twice the response length.
	ErrCovarianceSize = errors.New("fit: response covariance must be 2M x 2M")

	// ErrCovariance reports a response covariance that is not positive
	// definite and therefore cannot seed the Monte Carlo draws.
	ErrCovariance = errors.New("fit: response covariance is not positive definite")
)

// IIRResult bundles the outcome of an IIR least-squares fit.
type IIRResult struct {
	// B and A hold the numerator and denominator coefficients. A[0] is
	// always 1.
	B []float64
	A []float64

	// Tau is the delay in samples introduced during stabilization.
	Tau int

	// Stable reports whether all denominator roots lie strictly inside the
	// unit circle. An unstable fit is returned nonetheless; the flag is the
	// caller's cue to retry with a different order or delay.
	Stable bool

	// Iterations counts the stabilization iterations that were run.
	Iterations int

	// RMSError is the root-mean-square residual between the delayed filter
	// response and the fitting target.
	RMSError float64

	// Uab is the covariance of [a[1:], b], evaluated by Monte Carlo when a
	// response covariance was supplied, nil otherwise.
	Uab *mat.SymDense
}

// LSIIR fits an IIR filter of numerator order nb and denominator order na to
// the frequency response h given at the frequencies f (in Hz) for a filter
// running at the sampling frequency fs, using the equation-error method.
//
// An unstable fit is stabilized by mapping its poles inside the unit circle
// and compensating with an added delay, re-fitting until stable or until the
// iteration budget is exhausted. Exhaustion is not an error; the best-effort
// filter is returned with Stable set to false.
//
// With WithReciprocal the fit targets 1/h, the usual deconvolution setting.
// With WithResponseCovariance the covariance of the fitted coefficients is
// evaluated by refitting Monte Carlo draws of the response.
func LSIIR(h []complex128, nb, na int, f []float64, fs float64, opts ...Option) (*IIRResult, error) {
	cfg := applyOptions(opts)

	if nb < 0 || na < 0 {
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
	if cfg.respCov != nil && cfg.respCov.SymmetricDim() != 2*len(h) {
		return nil, ErrCovarianceSize
	}

	if cfg.verbose != nil {
		fmt.Fprintf(cfg.verbose, "fit: least-squares fit of an order %d IIR filter to%s a response given by %d values\n",
			max(nb, na), reciprocalNote(cfg.reciprocal), len(h))
	}

	w := make([]float64, len(f))
	for i, fi := range f {
		w[i] = 2 * math.Pi * fi / fs
	}
	e := designMatrix(w, max(nb, na))

	res, err := stabilizedFit(h, w, e, nb, na, fs, cfg)
	if err != nil {
		return nil, err
	}

	res.RMSError, err = rmsError(res.B, res.A, res.Tau, h, f, fs, cfg.reciprocal)
	if err != nil {
		return nil, err
	}

	if cfg.respCov != nil {
		res.Uab, err = mcCoefficientCovariance(h, w, e, nb, na, res.Tau, cfg)
		if err != nil {
			return nil, err
		}
	}

	if cfg.verbose != nil {
		if !res.Stable {
			fmt.Fprintf(cfg.verbose, "fit: no stable filter after %d stabilization iterations (tau = %d), returning best effort\n",
				res.Iterations, res.Tau)
		}
		fmt.Fprintf(cfg.verbose, "fit: final rms error = %g\n", res.RMSError)
	}

	return res, nil
}

func reciprocalNote(reciprocal bool) string {
	if reciprocal {
		return " the reciprocal of"
	}
	return ""
}

// designMatrix returns the complex exponential matrix E with
// E[m][k] = exp(-j w[m] k) for k = 0..order.
func designMatrix(w []float64, order int) [][]complex128 {
	e := make([][]complex128, len(w))
	for m, wm := range w {
		row := make([]complex128, order+1)
		for k := range row {
			row[k] = cmplx.Exp(complex(0, -wm*float64(k)))
		}
		e[m] = row
	}
	return e
}

// fitIIR solves one equation-error least-squares problem for the joint
// coefficient vector [a[1:], b] at a fixed delay.
func fitIIR(h []complex128, tau int, w []float64, e [][]complex128, nb, na int, reciprocal bool) (b, a []float64, err error) {
	m := len(h)
	cols := na + nb + 1

	htau := make([]complex128, m)
	for i, hv := range h {
		if reciprocal {
			hv = 1 / hv
		}
		htau[i] = cmplx.Exp(complex(0, -w[i]*float64(tau))) * hv
	}

	// D = [diag(Htau) Ea, -Eb]; the normal equations are assembled in real
	// arithmetic: Re(D^H D) ab = Re(D^H (-Htau)).
	d := make([][]complex128, m)
	for i := range d {
		row := make([]complex128, cols)
		for k := range na {
			row[k] = htau[i] * e[i][k+1]
		}
		for k := range nb + 1 {
			row[na+k] = -e[i][k]
		}
		d[i] = row
	}

	lhs := mat.NewDense(cols, cols, nil)
	rhs := mat.NewVecDense(cols, nil)
	for r := range cols {
		for c := range cols {
			var sum float64
			for i := range m {
				sum += real(cmplx.Conj(d[i][r]) * d[i][c])
			}
			lhs.Set(r, c, sum)
		}

		var sum float64
		for i := range m {
			sum -= real(cmplx.Conj(d[i][r]) * htau[i])
		}
		rhs.SetVec(r, sum)
	}

	ab, err := solveMinNorm(lhs, rhs, 0)
	if err != nil {
		return nil, nil, err
	}

	a = make([]float64, na+1)
	a[0] = 1
	for i := range na {
		a[i+1] = ab.AtVec(i)
	}
	b = make([]float64, nb+1)
	for i := range b {
		b[i] = ab.AtVec(na + i)
	}
	return b, a, nil
}

// stabilizedFit runs the fit-check-stabilize loop: fit at the current delay,
// and while unstable map the poles inside the unit circle, shift the delay by
// the median group-delay difference and re-fit.
func stabilizedFit(h []complex128, w []float64, e [][]complex128, nb, na int, fs float64, cfg config) (*IIRResult, error) {
	tau := cfg.tau

	b, a, err := fitIIR(h, tau, w, e, nb, na, cfg.reciprocal)
	if err != nil {
		return nil, err
	}
	stable, err := filtertool.IsStable(a)
	if err != nil {
		return nil, err
	}

	if cfg.maxStab == 0 {
		// No stabilization requested, so the delay estimate plays no role
		// in the returned filter.
		return &IIRResult{B: b, A: a, Tau: 0, Stable: stable}, nil
	}

	iters := 0
	for !stable && iters < cfg.maxStab {
		astab, err := filtertool.MapInside(a)
		if err != nil {
			return nil, err
		}
		g1, _, err := filtertool.GroupDelay(b, a, fs)
		if err != nil {
			return nil, err
		}
		g2, _, err := filtertool.GroupDelay(b, astab, fs)
		if err != nil {
			return nil, err
		}

		diff := make([]float64, len(g1))
		for i := range diff {
			diff[i] = g2[i] - g1[i]
		}
		tau = int(math.Ceil(float64(tau) + median(diff)))
		if tau < 0 {
			tau = 0
		}

		b, a, err = fitIIR(h, tau, w, e, nb, na, cfg.reciprocal)
		if err != nil {
			return nil, err
		}
		stable, err = filtertool.IsStable(a)
		if err != nil {
			return nil, err
		}
		iters++
	}

	return &IIRResult{B: b, A: a, Tau: tau, Stable: stable, Iterations: iters}, nil
}

// rmsError evaluates the root-mean-square residual between the fitted filter
// response, compensated for the stabilization delay, and the fitting target.
func rmsError(b, a []float64, tau int, h []complex128, f []float64, fs float64, reciprocal bool) (float64, error) {
	hd, err := filtertool.FreqResp(b, a, f, fs)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := range hd {
		target := h[i]
		if reciprocal {
			target = 1 / target
		}
		d := hd[i]*cmplx.Exp(complex(0, 2*math.Pi*f[i]/fs*float64(tau))) - target
		sum += real(d)*real(d) + imag(d)*imag(d)
	}
	return math.Sqrt(sum / float64(len(f))), nil
}

// mcCoefficientCovariance refits Monte Carlo draws of the response at the
// stabilized delay and returns the sample covariance of [a[1:], b].
func mcCoefficientCovariance(h []complex128, w []float64, e [][]complex128, nb, na, tau int, cfg config) (*mat.SymDense, error) {
	m := len(h)
	mean := make([]float64, 2*m)
	for i, hv := range h {
		mean[i] = real(hv)
		mean[m+i] = imag(hv)
	}

	normal, ok := distmv.NewNormal(mean, cfg.respCov, cfg.src)
	if !ok {
		return nil, ErrCovariance
	}

	runs := cfg.mcRuns
	if runs <= 0 {
		runs = 1000
	}

	cols := na + nb + 1
	draws := mat.NewDense(runs, cols, nil)
	sample := make([]float64, 2*m)
	hk := make([]complex128, m)
	for r := range runs {
		normal.Rand(sample)
		for i := range m {
			hk[i] = complex(sample[i], sample[m+i])
		}

		bk, ak, err := fitIIR(hk, tau, w, e, nb, na, cfg.reciprocal)
		if err != nil {
			return nil, err
		}
		for i := range na {
			draws.Set(r, i, ak[i+1])
		}
		for i := range nb + 1 {
			draws.Set(r, na+i, bk[i])
		}
	}

	uab := mat.NewSymDense(cols, nil)
	stat.CovarianceMatrix(uab, draws, nil)
	return uab, nil
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return 0.5 * (s[n/2-1] + s[n/2])
}
