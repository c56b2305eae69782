package filtertool

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by filter analysis functions.
var (
	ErrEmptyCoefficients = errors.New("filtertool: empty coefficient vector")
	ErrLeadingZero       = errors.New("filtertool: leading denominator coefficient is zero")
	ErrInvalidSampleRate = errors.New("filtertool: sample rate must be positive")
)

// Filter applies the digital filter (b, a) to the signal x and returns the
// filtered output. It implements the direct form II transposed recursion
//
//	y[n] = (b[0] x[n] + d[0]) / a[0]
//
// with the internal delay line d updated per sample. For a == [1] this is
// plain FIR convolution truncated to len(x).
func Filter(b, a, x []float64) ([]float64, error) {
	if len(b) == 0 || len(a) == 0 {
		return nil, ErrEmptyCoefficients
	}
	if a[0] == 0 {
		return nil, ErrLeadingZero
	}

	n := max(len(b), len(a))
	bn := make([]float64, n)
	an := make([]float64, n)
	for i, v := range b {
		bn[i] = v / a[0]
	}
	for i, v := range a {
		an[i] = v / a[0]
	}

	d := make([]float64, n-1)
	y := make([]float64, len(x))

	for i, v := range x {
		var out float64
		if len(d) > 0 {
			out = bn[0]*v + d[0]
		} else {
			out = bn[0] * v
		}
		for k := 0; k < len(d); k++ {
			next := 0.0
			if k+1 < len(d) {
				next = d[k+1]
			}
			d[k] = bn[k+1]*v + next - an[k+1]*out
		}
		y[i] = out
	}

	return y, nil
}

// ImpulseResponse returns the first n samples of the impulse response of the
// filter (b, a).
func ImpulseResponse(b, a []float64, n int) ([]float64, error) {
	if n <= 0 {
		return nil, nil
	}
	impulse := make([]float64, n)
	impulse[0] = 1
	return Filter(b, a, impulse)
}

// FreqResp evaluates the complex frequency response H(e^-jw) of the filter
// (b, a) at the given frequencies (Hz) for the given sample rate (Hz).
func FreqResp(b, a []float64, f []float64, sampleRate float64) ([]complex128, error) {
	if len(b) == 0 || len(a) == 0 {
		return nil, ErrEmptyCoefficients
	}
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}

	h := make([]complex128, len(f))
	for m, freq := range f {
		w := 2 * math.Pi * freq / sampleRate
		ejw := cmplx.Exp(complex(0, -w))

		var num, den complex128
		for k := len(b) - 1; k >= 0; k-- {
			num = num*ejw + complex(b[k], 0)
		}
		for k := len(a) - 1; k >= 0; k-- {
			den = den*ejw + complex(a[k], 0)
		}
		h[m] = num / den
	}

	return h, nil
}

// Magnitude returns the element-wise modulus of a complex response.
func Magnitude(h []complex128) []float64 {
	re := make([]float64, len(h))
	im := make([]float64, len(h))
	for i, v := range h {
		re[i] = real(v)
		im[i] = imag(v)
	}

	out := make([]float64, len(h))
	vecmath.Magnitude(out, re, im)
	return out
}
