package propagate

// NoiseKind selects how the input noise description is interpreted.
type NoiseKind int

const (
	// NoiseDiag interprets the noise vector as point-wise standard
	// uncertainties of non-stationary white noise.
	NoiseDiag NoiseKind = iota

	// NoiseCorr interprets the noise vector as the one-sided autocovariance
	// of stationary correlated noise.
	NoiseCorr
)

// String returns the tag used in diagnostics.
func (k NoiseKind) String() string {
	switch k {
	case NoiseDiag:
		return "diag"
	case NoiseCorr:
		return "corr"
	default:
		return "unknown"
	}
}

func (k NoiseKind) valid() bool {
	return k == NoiseDiag || k == NoiseCorr
}
