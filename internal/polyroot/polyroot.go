// Package polyroot provides polynomial root finding and root-to-coefficient
// expansion shared by the filter analysis packages.
package polyroot

import (
	"errors"
	"math"
	"math/cmplx"
)

// ErrDegeneratePolynomial is returned when a polynomial has degenerate
// coefficients (leading coefficient zero, convergence failure, etc.).
var ErrDegeneratePolynomial = errors.New("polyroot: degenerate polynomial")

// Roots finds all roots of a real polynomial with coefficients in descending
// power order: c[0]*z^n + c[1]*z^(n-1) + ... + c[n]. Leading zeros are
// stripped; a constant polynomial has no roots.
func Roots(c []float64) ([]complex128, error) {
	start := 0
	for start < len(c) && c[start] == 0 {
		start++
	}

	c = c[start:]
	if len(c) == 0 {
		return nil, ErrDegeneratePolynomial
	}

	if len(c) == 1 {
		return nil, nil
	}

	coeff := make([]complex128, len(c))
	for i, v := range c {
		coeff[i] = complex(v, 0)
	}

	return DurandKerner(coeff)
}

// Coefficients expands a monic polynomial from its roots and returns the real
// parts of the coefficients in descending power order. The imaginary parts
// cancel when the root set is closed under conjugation, which holds for every
// root set derived from a real polynomial.
func Coefficients(roots []complex128) []float64 {
	coeff := make([]complex128, 1, len(roots)+1)
	coeff[0] = 1

	for _, r := range roots {
		coeff = append(coeff, 0)
		for i := len(coeff) - 1; i > 0; i-- {
			coeff[i] -= r * coeff[i-1]
		}
	}

	out := make([]float64, len(coeff))
	for i, v := range coeff {
		out[i] = real(v)
	}

	return out
}

// DurandKerner finds all roots of a polynomial using the Durand-Kerner
// (Weierstrass) simultaneous iteration method. Coefficients are in descending
// power order: coeff[0]*z^n + coeff[1]*z^(n-1) + ... + coeff[n].
//
//nolint:cyclop
func DurandKerner(coeff []complex128) ([]complex128, error) {
	if len(coeff) < 2 {
		return nil, ErrDegeneratePolynomial
	}

	lead := coeff[0]
	if lead == 0 {
		return nil, ErrDegeneratePolynomial
	}

	n := len(coeff) - 1

	norm := make([]complex128, len(coeff))
	for i := range coeff {
		norm[i] = coeff[i] / lead
	}

	radius := 0.0
	for i := 1; i <= n; i++ {
		if r := cmplx.Abs(norm[i]); r > radius {
			radius = r
		}
	}

	if radius < 1 {
		radius = 1
	}

	roots := make([]complex128, n)
	for i := range n {
		angle := 2*math.Pi*float64(i)/float64(n) + 0.3
		r := radius * (1 + 0.1*float64(i)/float64(n))
		roots[i] = complex(r*math.Cos(angle), r*math.Sin(angle))
	}

	const (
		maxIter = 500
		tol     = 1e-12
	)

	for range maxIter {
		maxDelta := 0.0

		for i := range n {
			den := complex(1, 0)

			for j := range n {
				if i == j {
					continue
				}

				den *= roots[i] - roots[j]
			}

			if cmplx.Abs(den) == 0 {
				roots[i] += complex(1e-10, 1e-10)
				continue
			}

			f := PolyEval(norm, roots[i])
			delta := f / den

			roots[i] -= delta
			if d := cmplx.Abs(delta); d > maxDelta {
				maxDelta = d
			}
		}

		if maxDelta < tol {
			return roots, nil
		}
	}

	maxResidual := 0.0

	for _, r := range roots {
		res := cmplx.Abs(PolyEval(norm, r))
		if res > maxResidual {
			maxResidual = res
		}
	}

	if maxResidual < 1e-6 {
		return roots, nil
	}

	return nil, ErrDegeneratePolynomial
}

// PolyEval evaluates a polynomial at x using Horner's method. Coefficients
// are in descending power order: coeff[0]*x^n + ... + coeff[n].
func PolyEval(coeff []complex128, x complex128) complex128 {
	v := coeff[0]
	for i := 1; i < len(coeff); i++ {
		v = v*x + coeff[i]
	}

	return v
}
