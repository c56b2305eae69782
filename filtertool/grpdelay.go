package filtertool

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// groupDelayFFTSize is the default transform size for GroupDelay. It bounds
// the frequency resolution of the estimate to sampleRate/512.
const groupDelayFFTSize = 512

// GroupDelay estimates the group delay of the filter (b, a) on a uniform
// frequency grid covering [0, sampleRate/2). It returns the delay in samples
// and the corresponding frequencies in Hz.
//
// The estimate uses the ramp identity: with c the convolution of b and the
// time-reversed a, the group delay is Re(F{k c[k]} / F{c[k]}) minus the
// denominator order, evaluated by two forward FFTs. Bins where the response
// magnitude vanishes are reported as zero delay.
func GroupDelay(b, a []float64, sampleRate float64) ([]float64, []float64, error) {
	if len(b) == 0 || len(a) == 0 {
		return nil, nil, ErrEmptyCoefficients
	}
	if a[0] == 0 {
		return nil, nil, ErrLeadingZero
	}
	if sampleRate <= 0 {
		return nil, nil, ErrInvalidSampleRate
	}

	na := len(a) - 1

	// c(z) = b(z) * a~(z) where a~ is a with reversed coefficient order.
	c := make([]float64, len(b)+len(a)-1)
	for i, bv := range b {
		for j, av := range a {
			c[i+len(a)-1-j] += bv * av
		}
	}

	fftSize := groupDelayFFTSize
	for fftSize < len(c) {
		fftSize *= 2
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, nil, fmt.Errorf("filtertool: failed to create FFT plan: %w", err)
	}

	cPadded := make([]complex128, fftSize)
	crPadded := make([]complex128, fftSize)
	for k, v := range c {
		cPadded[k] = complex(v, 0)
		crPadded[k] = complex(float64(k)*v, 0)
	}

	den := make([]complex128, fftSize)
	if err := plan.Forward(den, cPadded); err != nil {
		return nil, nil, fmt.Errorf("filtertool: forward FFT failed: %w", err)
	}

	num := make([]complex128, fftSize)
	if err := plan.Forward(num, crPadded); err != nil {
		return nil, nil, fmt.Errorf("filtertool: forward FFT failed: %w", err)
	}

	const minMag = 1e-14

	half := fftSize / 2
	gd := make([]float64, half)
	freqs := make([]float64, half)

	for i := range half {
		freqs[i] = sampleRate * float64(i) / float64(fftSize)

		d := den[i]
		if real(d)*real(d)+imag(d)*imag(d) < minMag*minMag {
			gd[i] = 0
			continue
		}

		gd[i] = real(num[i]/d) - float64(na)
	}

	return gd, freqs, nil
}
