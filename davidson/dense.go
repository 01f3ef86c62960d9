package davidson

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// eighGen solves the dense symmetric-definite generalized eigenproblem
// h v = w s v by reduction to standard form with the Cholesky factor of s.
// Eigenvalues are returned in ascending order, eigenvectors as the columns
// of the returned matrix.
func eighGen(h, s *mat.SymDense) ([]float64, *mat.Dense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(s); !ok {
		return nil, nil, errors.Errorf("subspace metric not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)

	// c = inv(L) h inv(L)^T
	var lih, c mat.Dense
	if err := lih.Solve(&l, h); err != nil {
		return nil, nil, errors.Wrap(err, "")
	}
	if err := c.Solve(&l, lih.T()); err != nil {
		return nil, nil, errors.Wrap(err, "")
	}

	n, _ := h.Dims()
	cs := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cs.SetSym(i, j, 0.5*(c.At(i, j)+c.At(j, i)))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(cs, true); !ok {
		return nil, nil, errors.Errorf("eigendecomposition failed")
	}
	w := eig.Values(nil)
	var y mat.Dense
	eig.VectorsTo(&y)

	// v = inv(L)^T y
	var v mat.Dense
	if err := v.Solve(l.T(), &y); err != nil {
		return nil, nil, errors.Wrap(err, "")
	}
	return w, &v, nil
}

// eigDense returns all eigenvalues and right eigenvectors of a general
// square matrix.
func eigDense(a mat.Matrix) ([]complex128, *mat.CDense, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenRight); !ok {
		return nil, nil, errors.Errorf("eigendecomposition failed")
	}
	vals := eig.Values(nil)
	n, _ := a.Dims()
	vecs := mat.NewCDense(n, n, nil)
	eig.VectorsTo(vecs)
	return vals, vecs, nil
}

// symBlock copies the leading n by n block of a into a symmetric matrix.
func symBlock(a *mat.Dense, n int) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, a.At(i, j))
		}
	}
	return s
}
