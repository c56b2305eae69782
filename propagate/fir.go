package propagate

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-unc/filtertool"
)

// FIRResult bundles the output of a FIR propagation call.
type FIRResult struct {
	// Y is the filtered output signal.
	Y []float64

	// Uy holds the point-wise standard uncertainties associated with Y.
	Uy []float64
}

// FIR applies the FIR filter theta to the signal x and propagates the input
// noise description and the optional coefficient covariance
// (WithCoeffCovariance, over theta) to point-wise output uncertainties.
//
// A single-element noise vector holds the standard deviation of stationary
// white noise. Otherwise the interpretation follows the noise kind: per-sample
// standard uncertainties under NoiseDiag, one-sided autocovariance under
// NoiseCorr. WithLowPass pre-filters the signal and accounts for the
// low-pass in the propagated noise covariance; WithShift compensates a known
// filter delay in both output and uncertainty.
func FIR(x, noise, theta []float64, opts ...Option) (*FIRResult, error) {
	cfg := applyOptions(opts)

	if !cfg.kind.valid() {
		return nil, ErrNoiseKind
	}
	if len(theta) == 0 {
		return nil, ErrDenominator
	}
	if len(noise) == 0 {
		return nil, ErrEmptyNoise
	}

	ntheta := len(theta)

	if cfg.coeffCov != nil && cfg.coeffCov.SymmetricDim() != ntheta {
		return nil, ErrCovarianceSize
	}

	scalarNoise := len(noise) == 1
	if !scalarNoise && cfg.kind == NoiseDiag && len(noise) != len(x) {
		return nil, ErrLengthMismatch
	}

	// Noise covariance of the (low-pass filtered) input. The diag model with
	// per-sample uncertainties needs a sliding covariance window, carried
	// here as the extended matrix v; every other combination reduces to a
	// single Toeplitz block ulow.
	var (
		ulow *mat.SymDense
		v    *mat.Dense
	)

	xlow := x

	if cfg.lowPass != nil {
		var err error
		xlow, err = filtertool.Filter(cfg.lowPass, []float64{1}, x)
		if err != nil {
			return nil, err
		}

		switch {
		case scalarNoise:
			bcorr := correlateFull(cfg.lowPass, cfg.lowPass)
			ycorr := trimOrPad(bcorr[len(cfg.lowPass)-1:], ntheta)
			for i := range ycorr {
				ycorr[i] *= noise[0] * noise[0]
			}
			ulow = toeplitz(ycorr)

		case cfg.kind == NoiseDiag:
			v = slidingNoiseCovariance(noise, cfg.lowPass, ntheta)

		default: // NoiseCorr
			bcorr := correlateFull(cfg.lowPass, cfg.lowPass)
			bcorrHalf := trimOrPad(bcorr[len(cfg.lowPass)-1:], ntheta)
			bcorrSym := reflectPadLeft(bcorrHalf, ntheta-1)

			autocov := reflectPadLeft(trimOrPad(noise, 2*ntheta), ntheta-2)
			ulow = toeplitz(correlateValid(autocov, bcorrSym))
		}
	} else {
		switch {
		case scalarNoise:
			ycorr := make([]float64, ntheta)
			ycorr[0] = noise[0] * noise[0]
			ulow = toeplitz(ycorr)

		case cfg.kind == NoiseDiag:
			v = slidingNoiseCovariance(noise, nil, ntheta)

		default: // NoiseCorr
			ulow = toeplitz(trimOrPad(noise, ntheta))
		}
	}

	y, err := filtertool.Filter(theta, []float64{1}, xlow)
	if err != nil {
		return nil, err
	}
	y = roll(y, cfg.shift)

	thetaVec := mat.NewVecDense(ntheta, theta)

	// Static part of the output variance: contribution of the input noise
	// through the filter plus the trace coupling of noise and coefficient
	// covariance.
	static := make([]float64, len(x))
	if v != nil {
		vs := denseAsSym(v)
		var window mat.SymDense
		for k := range static {
			window.SubsetSym(vs, spanIndices(k, ntheta))
			static[k] = quadForm(thetaVec, &window) + math.Abs(traceProduct(&window, cfg.coeffCov))
		}
	} else {
		s := quadForm(thetaVec, ulow) + math.Abs(traceProduct(ulow, cfg.coeffCov))
		for k := range static {
			static[k] = s
		}
	}

	// Signal-dependent part: sliding window of the filtered input through
	// the coefficient covariance.
	unc := make([]float64, len(xlow))
	if cfg.coeffCov != nil {
		window := mat.NewVecDense(ntheta, nil)
		for m := ntheta; m < len(xlow); m++ {
			for j := range ntheta {
				window.SetVec(j, xlow[m-j])
			}
			unc[m] = quadForm(window, cfg.coeffCov)
		}
	}

	uy := make([]float64, len(x))
	for i := range uy {
		uy[i] = math.Sqrt(math.Abs(static[i] + unc[i]))
	}
	uy = roll(uy, cfg.shift)

	return &FIRResult{Y: y, Uy: uy}, nil
}

// slidingNoiseCovariance builds the extended covariance matrix of
// non-stationary white noise, optionally colored by a low-pass filter, from
// which per-sample ntheta x ntheta windows are sliced. The noise variance is
// extrapolated ntheta steps beyond the signal with its last value, and
// (when a low-pass is given) ntheta steps into the past with its first value.
func slidingNoiseCovariance(noise, lowPass []float64, ntheta int) *mat.Dense {
	sigma2 := make([]float64, len(noise))
	vecmath.MulBlock(sigma2, noise, noise)

	ext := make([]float64, len(sigma2)+ntheta)
	copy(ext, sigma2)
	for i := len(sigma2); i < len(ext); i++ {
		ext[i] = sigma2[len(sigma2)-1]
	}

	length := len(ext)
	v := mat.NewDense(length, length, nil)

	if lowPass == nil {
		for i, s := range ext {
			v.Set(i, i, s)
		}
		return v
	}

	nb := len(lowPass)

	// v = n sp n^T + m s m^T with n, m banded Toeplitz operators of the
	// low-pass coefficients: n covers noise entering before the observed
	// interval (variance frozen at sigma2[0]), m the observed interval.
	n := mat.NewDense(length, nb, nil)
	for i := range length {
		for j := range nb {
			if j >= i && j-i < nb {
				n.Set(i, j, lowPass[nb-1-(j-i)])
			}
		}
	}

	mm := mat.NewDense(length, length, nil)
	padded := trimOrPad(lowPass, length)
	for i := range length {
		for j := 0; j <= i; j++ {
			mm.Set(i, j, padded[i-j])
		}
	}

	sp := mat.NewDense(nb, nb, nil)
	for i := range nb {
		sp.Set(i, i, sigma2[0])
	}

	s := mat.NewDense(length, length, nil)
	for i, val := range ext {
		s.Set(i, i, val)
	}

	var t1, t2 mat.Dense
	t1.Mul(n, sp)
	t2.Mul(&t1, n.T())
	t1.Mul(mm, s)
	v.Mul(&t1, mm.T())
	v.Add(v, &t2)

	return v
}

// quadForm returns x^T A x.
func quadForm(x *mat.VecDense, a mat.Symmetric) float64 {
	if a == nil {
		return 0
	}
	var ax mat.VecDense
	ax.MulVec(a, x)
	return mat.Dot(x, &ax)
}

// traceProduct returns tr(a b); a nil operand contributes zero.
func traceProduct(a mat.Symmetric, b mat.Symmetric) float64 {
	if a == nil || b == nil {
		return 0
	}
	n := a.SymmetricDim()
	var sum float64
	for i := range n {
		for j := range n {
			sum += a.At(i, j) * b.At(j, i)
		}
	}
	return sum
}

// toeplitz builds the symmetric Toeplitz matrix with the given first column.
func toeplitz(col []float64) *mat.SymDense {
	n := len(col)
	t := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			t.SetSym(i, j, col[j-i])
		}
	}
	return t
}

// denseAsSym wraps the leading symmetric part of a structurally symmetric
// dense matrix.
func denseAsSym(d *mat.Dense) *mat.SymDense {
	n, _ := d.Dims()
	s := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(d.At(i, j)+d.At(j, i)))
		}
	}
	return s
}

func spanIndices(start, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = start + i
	}
	return idx
}

// trimOrPad crops v to length n or zero-pads it at the end.
func trimOrPad(v []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, v)
	return out
}

// reflectPadLeft prepends m reflected samples: v[m], ..., v[1].
func reflectPadLeft(v []float64, m int) []float64 {
	if m <= 0 {
		return append([]float64(nil), v...)
	}
	out := make([]float64, m+len(v))
	for i := range m {
		out[i] = v[m-i]
	}
	copy(out[m:], v)
	return out
}

// correlateFull returns the full cross-correlation of a and b
// (length len(a)+len(b)-1).
func correlateFull(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for n := range out {
		shift := n - (len(b) - 1)
		for m := range a {
			j := m - shift
			if j >= 0 && j < len(b) {
				out[n] += a[m] * b[j]
			}
		}
	}
	return out
}

// correlateValid returns the valid cross-correlation of a against the shorter
// template v: out[k] = sum_j a[k+j] v[j].
func correlateValid(a, v []float64) []float64 {
	out := make([]float64, len(a)-len(v)+1)
	for k := range out {
		for j := range v {
			out[k] += a[k+j] * v[j]
		}
	}
	return out
}

// roll shifts v circularly left by shift samples (matching a filter-delay
// compensation of shift samples).
func roll(v []float64, shift int) []float64 {
	n := len(v)
	if n == 0 || shift%n == 0 {
		return v
	}
	out := make([]float64, n)
	for i := range v {
		out[i] = v[((i+shift)%n+n)%n]
	}
	return out
}
