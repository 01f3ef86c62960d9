// Package davidson implements Davidson-type subspace methods for large
// eigenvalue problems whose operator is only available as a matrix-vector
// product.
//
// References:
//   - The iterative calculation of a few of the lowest eigenvalues and
//     corresponding eigenvectors of large real-symmetric matrices,
//     Ernest R. Davidson, Journal of Computational Physics 17 (1975).
package davidson

import (
	"math"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/Justin318/pyscf/veclist"
)

// maxTrial caps the number of trial vectors added per cycle.
const maxTrial = 40

// An Operator applies a matrix to a batch of vectors.
type Operator func(xs [][]float64) ([][]float64, error)

// An ABOperator applies the two matrices of a generalized eigenproblem
// A x = e B x to a batch of vectors, returning the A and B images.
type ABOperator func(xs [][]float64) (ax, bx [][]float64, err error)

// A Preconditioner turns a residual into the next trial direction, given the
// lowest current eigenvalue and the residual's Ritz vector. It must not
// modify its inputs.
type Preconditioner func(residual []float64, e float64, x []float64) []float64

// A Picker selects which eigenpairs of the projected problem become Ritz
// pairs. It returns at most nroots indices into vals.
type Picker func(vals []complex128, vecs *mat.CDense, nroots int) []int

// Status reports how a solve terminated.
type Status int

const (
	// Converged means the eigenvalue changes or the residual norms dropped
	// below tolerance.
	Converged Status = iota
	// MaxCycleReached means the iteration limit was hit; the result holds
	// the best available approximation.
	MaxCycleReached
	// LinearDependence means all candidate trial vectors were linearly
	// dependent on the subspace; the result holds the best available
	// approximation.
	LinearDependence
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case MaxCycleReached:
		return "max cycle reached"
	case LinearDependence:
		return "linear dependence"
	default:
		return "unknown"
	}
}

// Progress is the per-cycle state passed to the progress callback.
type Progress struct {
	Cycle         int
	Space         int
	Values        []float64
	Deltas        []float64
	ResidualNorms []float64
}

// Result holds the eigenpairs of a solve. Generalized orders them by
// ascending eigenvalue, Eig in the order its Picker selected them.
type Result struct {
	Values  []float64
	Vectors [][]float64
	Cycles  int
	Status  Status
}

// Generalized solves the generalized eigenproblem A x = e B x for the lowest
// opt.nroots eigenpairs. The guess vectors seed the search subspace and need
// not be orthogonal.
func Generalized(abop ABOperator, guess [][]float64, precond Preconditioner, options ...Options) (Result, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}

	dim, err := checkGuess(guess)
	if err != nil {
		return Result{}, err
	}

	toloose := math.Sqrt(opt.tol) * 1e-2
	maxCycle := min(opt.maxCycle, dim)
	maxSpace := opt.maxSpace + 2*opt.nroots
	// maxSpace*3 for holding xs, ax, bx; nroots*3 for the Ritz vectors and
	// their images.
	incore := opt.maxMemory > int64(maxSpace*3+opt.nroots*3)*int64(dim)*8

	store, err := newStorage(3, incore)
	if err != nil {
		return Result{}, err
	}
	defer store.close()
	xs, ax, bx := store.lists[0], store.lists[1], store.lists[2]

	heff := mat.NewDense(maxSpace+maxTrial, maxSpace+maxTrial, nil)
	seff := mat.NewDense(maxSpace+maxTrial, maxSpace+maxTrial, nil)
	buf1 := make([]float64, dim)
	buf2 := make([]float64, dim)
	buf3 := make([]float64, dim)

	var (
		space int
		xt    [][]float64
		e     []float64
		x0    = guess
		ax0   [][]float64
		bx0   [][]float64
	)
	res := Result{Status: MaxCycleReached}
	freshStart := true
	for icyc := 0; icyc < maxCycle; icyc++ {
		res.Cycles = icyc + 1
		if freshStart {
			if err := store.reset(); err != nil {
				return Result{}, err
			}
			space = 0
			// The subspace basis must be orthogonal, but the guess (or the
			// Ritz vectors seeding a restart) usually is not.
			xt = orthonormalize(x0, opt.dot)
			if len(xt) == 0 {
				return Result{}, errors.Errorf("initial guess is linearly dependent")
			}
			if len(xt) > maxTrial {
				xt = xt[:maxTrial]
			}
			e = nil
			freshStart = false
		} else if len(xt) > 1 {
			xt = orthonormalize(xt, opt.dot)
			if len(xt) > maxTrial {
				xt = xt[:maxTrial]
			}
		}

		axt, bxt, err := abop(xt)
		if err != nil {
			return Result{}, err
		}
		if err := checkImages("operator A", len(xt), axt, dim); err != nil {
			return Result{}, err
		}
		if err := checkImages("operator B", len(xt), bxt, dim); err != nil {
			return Result{}, err
		}
		if opt.typ > 1 {
			if axt, _, err = abop(bxt); err != nil {
				return Result{}, err
			}
			if err := checkImages("operator A", len(bxt), axt, dim); err != nil {
				return Result{}, err
			}
		}
		for k := range xt {
			if err := xs.Append(xt[k]); err != nil {
				return Result{}, err
			}
			if err := ax.Append(axt[k]); err != nil {
				return Result{}, err
			}
			if err := bx.Append(bxt[k]); err != nil {
				return Result{}, err
			}
		}
		rnow := len(xt)
		head := space
		space += rnow

		// Extend the projected matrices with the new rows and columns. For
		// type > 1 the B-images take the place of the bare vectors on the
		// bra side of heff.
		for i := 0; i < space; i++ {
			if i >= head {
				for k := 0; k <= i-head; k++ {
					var hki float64
					if opt.typ == 1 {
						hki = opt.dot(xt[k], axt[i-head])
					} else {
						hki = opt.dot(bxt[k], axt[i-head])
					}
					ski := opt.dot(xt[k], bxt[i-head])
					heff.Set(head+k, i, hki)
					heff.Set(i, head+k, hki)
					seff.Set(head+k, i, ski)
					seff.Set(i, head+k, ski)
				}
				continue
			}
			axi, err := ax.At(i, buf1)
			if err != nil {
				return Result{}, err
			}
			bxi, err := bx.At(i, buf2)
			if err != nil {
				return Result{}, err
			}
			for k := 0; k < rnow; k++ {
				var hki float64
				if opt.typ == 1 {
					hki = opt.dot(xt[k], axi)
				} else {
					hki = opt.dot(bxt[k], axi)
				}
				ski := opt.dot(xt[k], bxi)
				heff.Set(head+k, i, hki)
				heff.Set(i, head+k, hki)
				seff.Set(head+k, i, ski)
				seff.Set(i, head+k, ski)
			}
		}

		w, v, err := eighGen(symBlock(heff, space), symBlock(seff, space))
		if err != nil {
			return Result{}, err
		}
		m := min(opt.nroots, space)
		de := make([]float64, m)
		copy(de, w[:m])
		if len(e) == m {
			for k := range de {
				de[k] -= e[k]
			}
		}
		e = append(e[:0], w[:m]...)

		// Assemble the Ritz vectors and their images over the whole basis.
		x0 = make([][]float64, m)
		for k := range x0 {
			x0[k] = make([]float64, dim)
		}
		if opt.lessIO && !incore {
			for i := space - 1; i >= 0; i-- {
				xsi, err := xs.At(i, buf1)
				if err != nil {
					return Result{}, err
				}
				for k := 0; k < m; k++ {
					floats.AddScaled(x0[k], v.At(i, k), xsi)
				}
			}
			if ax0, bx0, err = abop(x0); err != nil {
				return Result{}, err
			}
			if err := checkImages("operator A", len(x0), ax0, dim); err != nil {
				return Result{}, err
			}
			if err := checkImages("operator B", len(x0), bx0, dim); err != nil {
				return Result{}, err
			}
			if opt.typ > 1 {
				if ax0, _, err = abop(bx0); err != nil {
					return Result{}, err
				}
				if err := checkImages("operator A", len(bx0), ax0, dim); err != nil {
					return Result{}, err
				}
			}
		} else {
			ax0 = make([][]float64, m)
			bx0 = make([][]float64, m)
			for k := 0; k < m; k++ {
				ax0[k] = make([]float64, dim)
				bx0[k] = make([]float64, dim)
			}
			for i := space - 1; i >= 0; i-- {
				xsi, err := xs.At(i, buf1)
				if err != nil {
					return Result{}, err
				}
				axi, err := ax.At(i, buf2)
				if err != nil {
					return Result{}, err
				}
				bxi, err := bx.At(i, buf3)
				if err != nil {
					return Result{}, err
				}
				for k := 0; k < m; k++ {
					c := v.At(i, k)
					floats.AddScaled(x0[k], c, xsi)
					floats.AddScaled(ax0[k], c, axi)
					floats.AddScaled(bx0[k], c, bxi)
				}
			}
		}

		ide := argmaxAbs(de)
		if math.Abs(de[ide]) < opt.tol {
			opt.logf("converge %d %d  e= %v  max|de|= %4.3g", icyc, space, e, de[ide])
			res.Status = Converged
			break
		}

		// Residuals: A x - e B x for type 1, (AB) x - e x otherwise.
		dxNorm := make([]float64, m)
		rs := make([][]float64, m)
		for k := 0; k < m; k++ {
			r := make([]float64, dim)
			copy(r, ax0[k])
			if opt.typ == 1 {
				floats.AddScaled(r, -e[k], bx0[k])
			} else {
				floats.AddScaled(r, -e[k], x0[k])
			}
			rs[k] = r
			dxNorm[k] = floats.Norm(r, 2)
		}
		maxDxNorm := dxNorm[argmaxAbs(dxNorm)]
		if maxDxNorm < toloose {
			opt.logf("converge %d %d  |r|= %4.3g  e= %v  max|de|= %4.3g", icyc, space, maxDxNorm, e, de[ide])
			res.Status = Converged
			break
		}

		// Precondition the roots whose residual is still significant.
		xt = xt[:0]
		for k := 0; k < m; k++ {
			if dxNorm[k] <= toloose {
				continue
			}
			d := precond(rs[k], e[0], x0[k])
			if len(d) != dim {
				return Result{}, errors.Errorf("preconditioner output has dimension %d, expected %d", len(d), dim)
			}
			dc := make([]float64, dim)
			copy(dc, d)
			floats.Scale(1/floats.Norm(dc, 2), dc)
			xt = append(xt, dc)
		}

		// Re-orthogonalize against the whole accumulated basis, pruning
		// directions that contribute no new subspace.
		normMin, xt2, err := projectOut(xs, space, xt, toloose, opt.dot, buf1)
		if err != nil {
			return Result{}, err
		}
		xt = xt2
		if len(xt) == 0 {
			opt.logf("Linear dependency in trial subspace")
			res.Status = LinearDependence
			break
		}
		opt.logf("davidson %d %d  |r|= %4.3g  e= %v  max|de|= %4.3g  lindep= %4.3g",
			icyc, space, maxDxNorm, e, de[ide], normMin)

		freshStart = space+len(xt) > maxSpace

		if opt.callback != nil {
			p := Progress{
				Cycle:         icyc,
				Space:         space,
				Values:        slices.Clone(e),
				Deltas:        slices.Clone(de),
				ResidualNorms: slices.Clone(dxNorm),
			}
			if err := opt.callback(p); err != nil {
				return Result{}, err
			}
		}
	}

	// Type 3 computes eigenvectors of B A in the B-metric; map them back
	// through B.
	if opt.typ == 3 && len(x0) > 0 {
		_, bx0, err := abop(x0)
		if err != nil {
			return Result{}, err
		}
		if err := checkImages("operator B", len(x0), bx0, dim); err != nil {
			return Result{}, err
		}
		x0 = bx0
	}

	res.Values = e
	res.Vectors = x0
	return res, nil
}

// projectOut subtracts from every candidate in xt its projection onto the
// accumulated basis, then renormalizes, dropping candidates below tol.
// It returns the smallest surviving pre-normalization norm.
func projectOut(xs veclist.List, space int, xt [][]float64, tol float64, dot func(x, y []float64) float64, buf []float64) (float64, [][]float64, error) {
	for i := 0; i < space; i++ {
		xsi, err := xs.At(i, buf)
		if err != nil {
			return 0, nil, err
		}
		for _, xi := range xt {
			floats.AddScaled(xi, -dot(xi, xsi), xsi)
		}
	}

	normMin := 1.0
	kept := xt[:0]
	for _, xi := range xt {
		norm := floats.Norm(xi, 2)
		if norm > tol {
			floats.Scale(1/norm, xi)
			normMin = min(normMin, norm)
			kept = append(kept, xi)
		}
	}
	return normMin, kept, nil
}
