package fit

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrNumerical reports a failed matrix factorization inside a solver.
var ErrNumerical = errors.New("fit: singular value decomposition failed")

const machEps = 2.220446049250313e-16

// solveMinNorm returns the minimum-norm least-squares solution of a x = rhs
// via a truncated singular value decomposition. Singular values below tol
// (or below an automatic machine-precision cutoff when tol <= 0) are treated
// as zero, so rank-deficient and under-determined systems yield the
// minimum-norm solution instead of failing.
func solveMinNorm(a *mat.Dense, rhs *mat.VecDense, tol float64) (*mat.VecDense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, ErrNumerical
	}

	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	rows, cols := a.Dims()
	if tol <= 0 {
		tol = float64(max(rows, cols)) * machEps * s[0]
	}

	var utb mat.VecDense
	utb.MulVec(u.T(), rhs)
	for i, sv := range s {
		if sv > tol {
			utb.SetVec(i, utb.AtVec(i)/sv)
		} else {
			utb.SetVec(i, 0)
		}
	}

	x := mat.NewVecDense(cols, nil)
	x.MulVec(&v, &utb)
	return x, nil
}

// pseudoInverse returns the truncated Moore-Penrose pseudo-inverse of a.
func pseudoInverse(a *mat.Dense, tol float64) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, ErrNumerical
	}

	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	rows, cols := a.Dims()
	if tol <= 0 {
		tol = float64(max(rows, cols)) * machEps * s[0]
	}

	d := mat.NewDense(len(s), len(s), nil)
	for i, sv := range s {
		if sv > tol {
			d.Set(i, i, 1/sv)
		}
	}

	var t, pinv mat.Dense
	t.Mul(&v, d)
	pinv.Mul(&t, u.T())
	return &pinv, nil
}

// symmetrize folds a structurally symmetric dense matrix into a SymDense.
func symmetrize(d *mat.Dense) *mat.SymDense {
	n, _ := d.Dims()
	s := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(d.At(i, j)+d.At(j, i)))
		}
	}
	return s
}
