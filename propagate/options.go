package propagate

import "gonum.org/v1/gonum/mat"

// config holds options shared by the IIR and FIR propagators. Fields that do
// not apply to a call are ignored by it.
type config struct {
	kind     NoiseKind
	coeffCov mat.Symmetric
	state    *IIRState
	lowPass  []float64
	shift    int
}

// Option configures a propagation call.
type Option func(*config)

// WithNoiseKind selects the noise model (default NoiseDiag).
func WithNoiseKind(kind NoiseKind) Option {
	return func(cfg *config) { cfg.kind = kind }
}

// WithCoeffCovariance supplies the covariance matrix of the filter
// coefficients: for IIR over the vector [a[1:], b], for FIR over theta.
// Absent covariance means the coefficients are treated as exact.
func WithCoeffCovariance(cov mat.Symmetric) Option {
	return func(cfg *config) { cfg.coeffCov = cov }
}

// WithState resumes IIR propagation from a checkpoint exported by a previous
// call instead of starting from the stationary initial state.
func WithState(state *IIRState) Option {
	return func(cfg *config) { cfg.state = state }
}

// WithLowPass applies the given FIR low-pass filter to the input before FIR
// propagation and accounts for it in the noise covariance.
func WithLowPass(blow []float64) Option {
	return func(cfg *config) { cfg.lowPass = blow }
}

// WithShift compensates a known time delay of the FIR filter output by
// rolling output and uncertainty by the given number of samples.
func WithShift(shift int) Option {
	return func(cfg *config) { cfg.shift = shift }
}

func applyOptions(opts []Option) config {
	cfg := config{kind: NoiseDiag}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
