package fit

import (
	"io"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

type config struct {
	tau        int
	maxStab    int
	reciprocal bool
	verbose    io.Writer
	respCov    *mat.SymDense
	mcRuns     int
	src        rand.Source
	weights    []float64
	svdTol     float64
}

// Option configures a fitting call.
type Option func(*config)

// WithInitialDelay sets the initial delay estimate in samples for the IIR
// stabilization search (default 0).
func WithInitialDelay(tau int) Option {
	return func(cfg *config) { cfg.tau = tau }
}

// WithMaxStabIter bounds the IIR stabilization loop (default 50). Zero
// disables stabilization entirely; the one-shot fit is returned as is with a
// zero delay.
func WithMaxStabIter(n int) Option {
	return func(cfg *config) { cfg.maxStab = n }
}

// WithReciprocal fits against the reciprocal of the supplied frequency
// response, the usual setting for deconvolution filter design.
func WithReciprocal() Option {
	return func(cfg *config) { cfg.reciprocal = true }
}

// WithVerbose directs advisory fit diagnostics to w. Diagnostics never
// influence the returned results.
func WithVerbose(w io.Writer) Option {
	return func(cfg *config) { cfg.verbose = w }
}

// WithResponseCovariance supplies the covariance of the interleaved real and
// imaginary response parts (size 2M x 2M) and enables Monte Carlo propagation
// to a coefficient covariance.
func WithResponseCovariance(cov *mat.SymDense) Option {
	return func(cfg *config) { cfg.respCov = cov }
}

// WithMCRuns sets the Monte Carlo sample count. The default is 1000 for the
// IIR fit and 10000 for the FIR designs.
func WithMCRuns(n int) Option {
	return func(cfg *config) { cfg.mcRuns = n }
}

// WithRandSource fixes the random source used for Monte Carlo draws. A nil
// source falls back to the shared global source.
func WithRandSource(src rand.Source) Option {
	return func(cfg *config) { cfg.src = src }
}

// WithWeights supplies per-frequency weights for the FIR least-squares
// designs. The slice length must match the frequency grid.
func WithWeights(weights []float64) Option {
	return func(cfg *config) { cfg.weights = weights }
}

// WithSVDTolerance discards singular values below tol in the least-squares
// and pseudo-inverse solves. A non-positive tolerance selects an automatic
// machine-precision cutoff.
func WithSVDTolerance(tol float64) Option {
	return func(cfg *config) { cfg.svdTol = tol }
}

func applyOptions(opts []Option) config {
	cfg := config{maxStab: 50}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
