// Package propagate implements GUM-consistent propagation of input-signal and
// filter-coefficient uncertainties through the application of digital filters.
//
// For IIR filters the propagation runs an online state-space recursion that
// tracks, per sample, the filter output, the sensitivity of that output to
// every filter coefficient, and a running covariance of the internal state.
// For FIR filters a closed-form sliding-window covariance computation is used.
//
// Input noise is described by one of two models: NoiseDiag takes point-wise
// standard uncertainties of non-stationary white noise, NoiseCorr takes the
// one-sided autocovariance of stationary correlated noise.
//
// IIR propagation supports chunked processing: the returned state checkpoint
// of one call can seed the next, reproducing the single-call result exactly.
package propagate
