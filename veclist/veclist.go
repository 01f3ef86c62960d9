// Package veclist stores ordered lists of dense vectors, either fully in
// memory or spilled to a SQLite database on disk.
package veclist

import (
	"github.com/pkg/errors"
)

// A List is an append-only sequence of equally sized vectors.
// Vectors returned by At must not be modified by the caller.
type List interface {
	Append(x []float64) error
	// At reads vector i. When dst is large enough it is reused as the
	// destination, otherwise a new slice is allocated.
	At(i int, dst []float64) ([]float64, error)
	Len() int
	// Reset drops all stored vectors.
	Reset() error
}

// Memory is an in-core List.
type Memory struct {
	xs [][]float64
}

func NewMemory() *Memory {
	return &Memory{xs: make([][]float64, 0)}
}

func (l *Memory) Append(x []float64) error {
	if len(l.xs) > 0 && len(x) != len(l.xs[0]) {
		return errors.Errorf("%d %d", len(x), len(l.xs[0]))
	}
	c := make([]float64, len(x))
	copy(c, x)
	l.xs = append(l.xs, c)
	return nil
}

func (l *Memory) At(i int, dst []float64) ([]float64, error) {
	if i < 0 || i >= len(l.xs) {
		return nil, errors.Errorf("%d %d", i, len(l.xs))
	}
	return l.xs[i], nil
}

func (l *Memory) Len() int { return len(l.xs) }

func (l *Memory) Reset() error {
	l.xs = l.xs[:0]
	return nil
}
