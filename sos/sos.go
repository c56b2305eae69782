// Package sos provides the frequency response of a damped second order
// measurement system, the standard simulated reference for filter design
// examples and tests.
package sos

import "math"

// PhysicalParams describes a second order system by its physical quantities.
type PhysicalParams struct {
	// Gain is the static gain S0.
	Gain float64

	// Damping is the dimensionless damping coefficient delta.
	Damping float64

	// Resonance is the resonance frequency f0 in Hz.
	Resonance float64
}

// Response evaluates the system's frequency response at the frequencies f.
func (p PhysicalParams) Response(f []float64) []complex128 {
	return FreqResp(p.Gain, p.Damping, p.Resonance, f)
}

// FreqResp returns the frequency response of a second order system with
// static gain s0, damping delta and resonance frequency f0 (in Hz) at the
// frequencies f:
//
//	H(f) = s0 w0^2 / (w0^2 - w^2 + 2j delta w0 w)
//
// with w = 2 pi f and w0 = 2 pi f0.
func FreqResp(s0, delta, f0 float64, f []float64) []complex128 {
	w0 := 2 * math.Pi * f0
	h := make([]complex128, len(f))
	for i, fi := range f {
		w := 2 * math.Pi * fi
		h[i] = complex(s0*w0*w0, 0) / complex(w0*w0-w*w, 2*delta*w0*w)
	}
	return h
}
