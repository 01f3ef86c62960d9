// Command run solves a synthetic dense generalized eigenproblem with the
// Davidson solvers and prints the per-root eigenvalue error against direct
// dense diagonalization.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/Justin318/pyscf/davidson"
)

var (
	n      = flag.Int("n", 500, "problem dimension")
	nroots = flag.Int("nroots", 4, "number of roots")
	seed   = flag.Int64("seed", 12, "random seed")
)

// synthetic builds a symmetric a and a positive definite b.
func synthetic(n int, rnd *rand.Rand) (*mat.Dense, *mat.Dense) {
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, math.Sin(math.Sin(float64(i*n+j))))
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			v := a.At(i, j) + a.At(j, i)
			a.Set(i, j, v)
			a.Set(j, i, v)
		}
		a.Set(i, i, a.At(i, i)+rnd.Float64()*10)
	}

	r := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r.Set(i, j, rnd.Float64())
		}
	}
	b := mat.NewDense(n, n, nil)
	b.Mul(r, r.T())
	for i := 0; i < n; i++ {
		b.Set(i, i, b.At(i, i)+5)
	}
	return a, b
}

func matVecs(a *mat.Dense, xs [][]float64) [][]float64 {
	n, _ := a.Dims()
	ys := make([][]float64, len(xs))
	for k, x := range xs {
		y := make([]float64, n)
		for i := 0; i < n; i++ {
			y[i] = floats.Dot(a.RawRowView(i), x)
		}
		ys[k] = y
	}
	return ys
}

// denseEigh solves a v = w b v by Cholesky reduction. Ascending.
func denseEigh(a, b *mat.Dense) ([]float64, error) {
	n, _ := a.Dims()
	as := mat.NewSymDense(n, nil)
	bs := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			as.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
			bs.SetSym(i, j, 0.5*(b.At(i, j)+b.At(j, i)))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(bs); !ok {
		return nil, errors.Errorf("b not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)
	var lia, c mat.Dense
	if err := lia.Solve(&l, as); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := c.Solve(&l, lia.T()); err != nil {
		return nil, errors.Wrap(err, "")
	}
	cs := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cs.SetSym(i, j, 0.5*(c.At(i, j)+c.At(j, i)))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(cs, false); !ok {
		return nil, errors.Errorf("eigendecomposition failed")
	}
	return eig.Values(nil), nil
}

// denseEighType2 returns the ascending eigenvalues of a b x = e x for
// symmetric a and positive definite b, via the symmetric reduction
// trans(L) a L with b = L trans(L).
func denseEighType2(a, b *mat.Dense) ([]float64, error) {
	n, _ := b.Dims()
	bs := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			bs.SetSym(i, j, 0.5*(b.At(i, j)+b.At(j, i)))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(bs); !ok {
		return nil, errors.Errorf("b not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)
	var al, c mat.Dense
	al.Mul(a, &l)
	c.Mul(l.T(), &al)

	cs := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cs.SetSym(i, j, 0.5*(c.At(i, j)+c.At(j, i)))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(cs, false); !ok {
		return nil, errors.Errorf("eigendecomposition failed")
	}
	return eig.Values(nil), nil
}

func report(name string, got, want []float64) {
	for k := range got {
		fmt.Printf("%s,%d,%.12f,%.3g\n", name, k, got[k], math.Abs(got[k]-want[k]))
	}
}

func mainWithErr() error {
	rnd := rand.New(rand.NewSource(*seed))
	a, b := synthetic(*n, rnd)

	abop := func(xs [][]float64) ([][]float64, [][]float64, error) {
		return matVecs(a, xs), matVecs(b, xs), nil
	}
	precond := func(r []float64, e0 float64, x []float64) []float64 {
		d := make([]float64, len(r))
		for i := range r {
			d[i] = r[i] / (a.At(i, i) - e0)
		}
		return d
	}
	guess := make([][]float64, 2)
	for k := range guess {
		g := make([]float64, *n)
		copy(g, a.RawRowView(k))
		floats.Scale(1/floats.Norm(g, 2), g)
		guess[k] = g
	}

	ref, err := denseEigh(a, b)
	if err != nil {
		return errors.Wrap(err, "")
	}
	var ab mat.Dense
	ab.Mul(a, b)
	refAB, err := denseEighType2(a, b)
	if err != nil {
		return errors.Wrap(err, "")
	}
	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)

	fmt.Printf("solver,root,value,error\n")
	for _, typ := range []int{1, 2} {
		opt := davidson.NewOptions().Tol(1e-14).MaxCycle(100).MaxSpace(18).
			NRoots(*nroots).Type(typ).Logger(logger)
		res, err := davidson.Generalized(abop, guess, precond, opt)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("type %d", typ))
		}
		want := ref
		if typ > 1 {
			want = refAB
		}
		logger.Printf("type %d: %s in %d cycles", typ, res.Status, res.Cycles)
		report(fmt.Sprintf("dgeev%d", typ), res.Values, want)
	}

	// Standard solver on the product A*B.
	aop := func(xs [][]float64) ([][]float64, error) {
		return matVecs(&ab, xs), nil
	}
	precondAB := func(r []float64, e0 float64, x []float64) []float64 {
		d := make([]float64, len(r))
		for i := range r {
			d[i] = r[i] / (ab.At(i, i) - e0)
		}
		return d
	}
	opt := davidson.NewOptions().Tol(1e-14).MaxCycle(100).MaxSpace(30).
		NRoots(*nroots).Logger(logger)
	res, err := davidson.Eig(aop, guess, precondAB, opt)
	if err != nil {
		return errors.Wrap(err, "")
	}
	logger.Printf("eig: %s in %d cycles", res.Status, res.Cycles)
	report("eig", res.Values, refAB)

	return nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}
