package filtertool

import (
	"fmt"
	"math/cmplx"

	"github.com/cwbudde/algo-unc/internal/polyroot"
)

// IsStable reports whether all roots of the denominator polynomial a lie
// strictly inside the unit circle. A constant denominator is trivially stable.
func IsStable(a []float64) (bool, error) {
	if len(a) == 0 {
		return false, ErrEmptyCoefficients
	}
	if a[0] == 0 {
		return false, ErrLeadingZero
	}

	roots, err := polyroot.Roots(a)
	if err != nil {
		return false, fmt.Errorf("filtertool: stability check: %w", err)
	}

	for _, r := range roots {
		if cmplx.Abs(r) >= 1 {
			return false, nil
		}
	}

	return true, nil
}

// MapInside maps the roots of the polynomial a into the unit circle by
// replacing every root r with |r| > 1 by 1/conj(r), and returns the
// coefficients of the resulting polynomial scaled by a[0]. The magnitude
// response of 1/a is preserved up to a constant gain; the phase changes,
// which callers compensate with an added time delay.
func MapInside(a []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyCoefficients
	}
	if a[0] == 0 {
		return nil, ErrLeadingZero
	}

	roots, err := polyroot.Roots(a)
	if err != nil {
		return nil, fmt.Errorf("filtertool: pole mapping: %w", err)
	}

	for i, r := range roots {
		if cmplx.Abs(r) > 1 {
			roots[i] = 1 / cmplx.Conj(r)
		}
	}

	mapped := polyroot.Coefficients(roots)
	for i := range mapped {
		mapped[i] *= a[0]
	}

	return mapped, nil
}
