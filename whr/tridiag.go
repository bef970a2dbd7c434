package whr

import (
	"errors"
	"math"
)

// ldlFactorize computes the L*D*L^T decomposition of a symmetric
// tridiagonal matrix with diagonal diag and off-diagonal off (off[i]
// links row i to row i+1), per spec 4.3's "Thomas algorithm" factor step.
// l[i] is the subdiagonal multiplier linking i+1 back to i; d[i] is the
// i-th pivot. The matrix is expected to be negative definite (it is the
// true Hessian of a strictly concave log posterior); a non-finite or
// non-negative pivot signals the instability the spec's UnstableRating
// guards against.
func ldlFactorize(diag, off []float64) (d, l []float64, err error) {
	n := len(diag)
	d = make([]float64, n)
	l = make([]float64, max0(n-1))

	d[0] = diag[0]
	if err := checkPivot(d[0]); err != nil {
		return nil, nil, err
	}
	for i := 1; i < n; i++ {
		l[i-1] = off[i-1] / d[i-1]
		d[i] = diag[i] - l[i-1]*off[i-1]
		if err := checkPivot(d[i]); err != nil {
			return nil, nil, err
		}
	}
	return d, l, nil
}

func checkPivot(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.New("non-finite pivot in tridiagonal factorization")
	}
	if v >= 0 {
		return errors.New("non-negative pivot in tridiagonal factorization")
	}
	return nil
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// ldlSolve solves H*x = rhs given the L*D*L^T factorization from
// ldlFactorize, via forward substitution, diagonal scaling, and backward
// substitution (spec 4.3's two-pass recurrence, applied here to the
// Newton right-hand side rather than the identity).
func ldlSolve(d, l, off, rhs []float64) ([]float64, error) {
	n := len(d)
	y := make([]float64, n)
	y[0] = rhs[0]
	for i := 1; i < n; i++ {
		y[i] = rhs[i] - l[i-1]*y[i-1]
	}

	x := make([]float64, n)
	x[n-1] = y[n-1] / d[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = y[i]/d[i] - l[i]*x[i+1]
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("non-finite solution in tridiagonal solve")
		}
	}
	return x, nil
}

// ldlInverseDiagonal returns the diagonal of H^-1 given H's L*D*L^T
// factorization, via the standard backward recurrence for tridiagonal
// inverses: u[n-1] = 1/d[n-1]; u[i] = 1/d[i] + l[i]^2 * u[i+1].
func ldlInverseDiagonal(d, l []float64) []float64 {
	n := len(d)
	u := make([]float64, n)
	u[n-1] = 1.0 / d[n-1]
	for i := n - 2; i >= 0; i-- {
		u[i] = 1.0/d[i] + l[i]*l[i]*u[i+1]
	}
	return u
}
