package davidson

import (
	"gonum.org/v1/gonum/floats"
)

// orthoTol is the norm below which a candidate vector is considered linearly
// dependent on the already accepted ones.
const orthoTol = 1e-7

// orthonormalize runs one pass of sequential Gram-Schmidt over xs, dropping
// candidates whose remainder after projecting out the accepted vectors falls
// below orthoTol. The inputs are not modified.
func orthonormalize(xs [][]float64, dot func(x, y []float64) float64) [][]float64 {
	qs := make([][]float64, 0, len(xs))
	for _, x := range xs {
		q := make([]float64, len(x))
		copy(q, x)
		for _, p := range qs {
			floats.AddScaled(q, -dot(p, q), p)
		}
		norm := floats.Norm(q, 2)
		if norm > orthoTol {
			floats.Scale(1/norm, q)
			qs = append(qs, q)
		}
	}
	return qs
}
