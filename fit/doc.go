// Package fit designs digital filters by least-squares fitting to a measured
// complex frequency response or its reciprocal.
//
// LSIIR fits an IIR filter with the equation-error method and stabilizes the
// result by pole mapping combined with a delay search. The FIR designs
// (LSFIR, InvLSFIR and their uncertainty-aware variants) solve a single
// weighted least-squares problem. When a covariance for the response values
// is supplied, coefficient uncertainties are evaluated with a Monte Carlo
// method.
package fit
