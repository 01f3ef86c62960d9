package davidson

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestEig(t *testing.T) {
	t.Parallel()
	const n = 500
	const nroots = 4
	rnd := rand.New(rand.NewSource(12))
	a, b := synthetic(n, rnd)
	var ab mat.Dense
	ab.Mul(a, b)

	wref, err := eighType2(a, b)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	aop := func(xs [][]float64) ([][]float64, error) {
		return matVecs(&ab, xs), nil
	}
	precond := func(r []float64, e0 float64, x []float64) []float64 {
		d := make([]float64, len(r))
		for i := range r {
			d[i] = r[i] / (ab.At(i, i) - e0)
		}
		return d
	}

	opt := NewOptions().Tol(1e-14).MaxCycle(100).MaxSpace(30).NRoots(nroots)
	res, err := Eig(aop, rowGuess(a, 2), precond, opt)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if res.Status != Converged {
		t.Fatalf("%v after %d cycles", res.Status, res.Cycles)
	}
	if len(res.Values) != nroots {
		t.Fatalf("%d", len(res.Values))
	}
	for k, e := range res.Values {
		if math.Abs(e-wref[k]) > 1e-8 {
			t.Fatalf("%d %.12f, expected %.12f", k, e, wref[k])
		}
	}
	if !slices.IsSorted(res.Values) {
		t.Fatalf("%v", res.Values)
	}
}

func TestEigCustomPicker(t *testing.T) {
	t.Parallel()
	const n = 60
	const nroots = 2
	rnd := rand.New(rand.NewSource(8))
	a, _ := synthetic(n, rnd)

	wref, _, err := eighGen(symmetrize(a), identity(n))
	if err != nil {
		t.Fatalf("%+v", err)
	}

	// Pick the largest real eigenvalues instead of the smallest.
	pick := func(vals []complex128, vecs *mat.CDense, nroots int) []int {
		idx := PickReal(vals, vecs, len(vals))
		if len(idx) > nroots {
			idx = idx[len(idx)-nroots:]
		}
		return idx
	}
	aop := func(xs [][]float64) ([][]float64, error) {
		return matVecs(a, xs), nil
	}
	precond := func(r []float64, e0 float64, x []float64) []float64 {
		d := make([]float64, len(r))
		for i := range r {
			d[i] = r[i] / (a.At(i, i) - e0)
		}
		return d
	}

	opt := NewOptions().Tol(1e-12).MaxCycle(60).MaxSpace(20).NRoots(nroots).Pick(pick)
	res, err := Eig(aop, rowGuess(a, 2), precond, opt)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if res.Status != Converged {
		t.Fatalf("%v after %d cycles", res.Status, res.Cycles)
	}
	want := wref[len(wref)-nroots:]
	for k, e := range res.Values {
		if math.Abs(e-want[k]) > 1e-7 {
			t.Fatalf("%d %.12f, expected %.12f", k, e, want[k])
		}
	}
}

func TestPickReal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		vals   []complex128
		nroots int
		want   []int
	}{
		{
			vals:   []complex128{3, 1 + 2i, -1, 1 - 2i, 2},
			nroots: 2,
			want:   []int{2, 4},
		},
		{
			vals:   []complex128{5, -3},
			nroots: 4,
			want:   []int{1, 0},
		},
		{
			vals:   []complex128{1i, -1i},
			nroots: 1,
			want:   []int{},
		},
	}
	for _, test := range tests {
		idx := PickReal(test.vals, nil, test.nroots)
		if !slices.Equal(idx, test.want) {
			t.Fatalf("%v, expected %v", idx, test.want)
		}
	}
}

func identity(n int) *mat.SymDense {
	eye := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		eye.SetSym(i, i, 1)
	}
	return eye
}
