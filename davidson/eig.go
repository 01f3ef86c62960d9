package davidson

import (
	"cmp"
	"math"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PickReal selects the numerically real eigenvalues with the smallest real
// parts. It is the default Picker of Eig.
func PickReal(vals []complex128, vecs *mat.CDense, nroots int) []int {
	idx := make([]int, 0, len(vals))
	for i, v := range vals {
		if imag(v) == 0 {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(real(vals[a]), real(vals[b]))
	})
	if len(idx) > nroots {
		idx = idx[:nroots]
	}
	return idx
}

// Eig solves the standard, possibly non-Hermitian, eigenproblem A x = x w.
// Eigenvalues are selected by opt.pick, by default the lowest real ones.
func Eig(aop Operator, guess [][]float64, precond Preconditioner, options ...Options) (Result, error) {
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
	// maxSpace*2 for holding xs and ax, nroots*2 for the Ritz vectors and
	// their images.
	incore := opt.maxMemory > int64(maxSpace*2+opt.nroots*2)*int64(dim)*8

	store, err := newStorage(2, incore)
	if err != nil {
		return Result{}, err
	}
	defer store.close()
	xs, ax := store.lists[0], store.lists[1]

	heff := mat.NewDense(maxSpace+maxTrial, maxSpace+maxTrial, nil)
	buf1 := make([]float64, dim)
	buf2 := make([]float64, dim)

	var (
		space int
		xt    [][]float64
		e     []float64
		x0    = guess
		ax0   [][]float64
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
			// The subspace basis must be orthogonal, but the eigenvectors of
			// a non-Hermitian A are very likely not.
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

		axt, err := aop(xt)
		if err != nil {
			return Result{}, err
		}
		if err := checkImages("operator", len(xt), axt, dim); err != nil {
			return Result{}, err
		}
		for k := range xt {
			if err := xs.Append(xt[k]); err != nil {
				return Result{}, err
			}
			if err := ax.Append(axt[k]); err != nil {
				return Result{}, err
			}
		}
		rnow := len(xt)
		head := space
		space += rnow

		// New rows and columns of the projected matrix. A is not symmetric,
		// so both triangles are computed explicitly.
		for i := 0; i < rnow; i++ {
			for k := 0; k < rnow; k++ {
				heff.Set(head+k, head+i, opt.dot(xt[k], axt[i]))
			}
		}
		for i := 0; i < head; i++ {
			axi, err := ax.At(i, buf1)
			if err != nil {
				return Result{}, err
			}
			xsi, err := xs.At(i, buf2)
			if err != nil {
				return Result{}, err
			}
			for k := 0; k < rnow; k++ {
				heff.Set(head+k, i, opt.dot(xt[k], axi))
				heff.Set(i, head+k, opt.dot(xsi, axt[k]))
			}
		}

		w, vc, err := eigDense(heff.Slice(0, space, 0, space))
		if err != nil {
			return Result{}, err
		}
		idx := opt.pick(w, vc, opt.nroots)
		if len(idx) == 0 {
			return Result{}, errors.Errorf("picker selected no eigenvalues")
		}
		if len(idx) > opt.nroots {
			return Result{}, errors.Errorf("picker selected %d eigenvalues, at most %d allowed", len(idx), opt.nroots)
		}
		for _, i := range idx {
			if i < 0 || i >= len(w) {
				return Result{}, errors.Errorf("picker index %d out of range %d", i, len(w))
			}
		}

		m := len(idx)
		de := make([]float64, m)
		v := mat.NewDense(space, m, nil)
		for k, i := range idx {
			de[k] = real(w[i])
			for j := 0; j < space; j++ {
				v.Set(j, k, real(vc.At(j, i)))
			}
		}
		if len(e) == m {
			for k := range de {
				de[k] -= e[k]
			}
		}
		e = e[:0]
		for _, i := range idx {
			e = append(e, real(w[i]))
		}

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
			if ax0, err = aop(x0); err != nil {
				return Result{}, err
			}
			if err := checkImages("operator", len(x0), ax0, dim); err != nil {
				return Result{}, err
			}
		} else {
			ax0 = make([][]float64, m)
			for k := 0; k < m; k++ {
				ax0[k] = make([]float64, dim)
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
				for k := 0; k < m; k++ {
					c := v.At(i, k)
					floats.AddScaled(x0[k], c, xsi)
					floats.AddScaled(ax0[k], c, axi)
				}
			}
		}

		ide := argmaxAbs(de)
		if math.Abs(de[ide]) < opt.tol {
			opt.logf("converge %d %d  e= %v  max|de|= %4.3g", icyc, space, e, de[ide])
			res.Status = Converged
			break
		}

		dxNorm := make([]float64, m)
		rs := make([][]float64, m)
		for k := 0; k < m; k++ {
			r := make([]float64, dim)
			copy(r, ax0[k])
			floats.AddScaled(r, -e[k], x0[k])
			rs[k] = r
			dxNorm[k] = floats.Norm(r, 2)
		}
		maxDxNorm := dxNorm[argmaxAbs(dxNorm)]
		if maxDxNorm < toloose {
			opt.logf("converge %d %d  |r|= %4.3g  e= %v  max|de|= %4.3g", icyc, space, maxDxNorm, e, de[ide])
			res.Status = Converged
			break
		}

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

	res.Values = e
	res.Vectors = x0
	return res, nil
}
