// Package filtertool provides analysis and application primitives for digital
// filters given as transfer-function coefficients (b, a): time-domain
// filtering, frequency and impulse response evaluation, stability testing,
// pole mapping into the unit circle, and FFT-based group-delay estimation.
//
// Coefficient vectors follow the usual transfer-function convention
//
//	H(z) = (b[0] + b[1] z^-1 + ... + b[nb] z^-nb) /
//	       (a[0] + a[1] z^-1 + ... + a[na] z^-na)
//
// with a[0] != 0. The package is consumed by the fit and propagate packages
// but is useful on its own for inspecting fitted filters.
package filtertool
