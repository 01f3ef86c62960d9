package veclist

import (
	"flag"
	"log"
	"path/filepath"
	"slices"
	"testing"
)

func TestList(t *testing.T) {
	t.Parallel()
	mem := NewMemory()
	disk, err := NewDisk(filepath.Join(t.TempDir(), "v.db"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer disk.Close()

	tests := []struct {
		name string
		list List
	}{
		{name: "memory", list: mem},
		{name: "disk", list: disk},
	}
	xs := [][]float64{
		{1, 2, 3},
		{-4, 0, 1e-300},
		{0.5, -0.5, 12345.6789},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l := test.list
			if l.Len() != 0 {
				t.Fatalf("%d", l.Len())
			}
			for _, x := range xs {
				if err := l.Append(x); err != nil {
					t.Fatalf("%+v", err)
				}
			}
			if l.Len() != len(xs) {
				t.Fatalf("%d %d", l.Len(), len(xs))
			}

			// Read back, in reverse to exercise random access.
			buf := make([]float64, 3)
			for i := len(xs) - 1; i >= 0; i-- {
				got, err := l.At(i, buf)
				if err != nil {
					t.Fatalf("%d %+v", i, err)
				}
				if !slices.Equal(got, xs[i]) {
					t.Fatalf("%d %v, expected %v", i, got, xs[i])
				}
			}

			// Out of range reads.
			if _, err := l.At(-1, nil); err == nil {
				t.Fatalf("expected error")
			}
			if _, err := l.At(len(xs), nil); err == nil {
				t.Fatalf("expected error")
			}

			if err := l.Reset(); err != nil {
				t.Fatalf("%+v", err)
			}
			if l.Len() != 0 {
				t.Fatalf("%d", l.Len())
			}
			if _, err := l.At(0, nil); err == nil {
				t.Fatalf("expected error")
			}

			// The list is reusable after a reset.
			if err := l.Append(xs[0]); err != nil {
				t.Fatalf("%+v", err)
			}
			got, err := l.At(0, nil)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if !slices.Equal(got, xs[0]) {
				t.Fatalf("%v, expected %v", got, xs[0])
			}
		})
	}
}

func TestMemoryCopiesOnAppend(t *testing.T) {
	t.Parallel()
	l := NewMemory()
	x := []float64{1, 2}
	if err := l.Append(x); err != nil {
		t.Fatalf("%+v", err)
	}
	x[0] = 99
	got, err := l.At(0, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if got[0] != 1 {
		t.Fatalf("%g", got[0])
	}
}

func TestMemoryDimensionMismatch(t *testing.T) {
	t.Parallel()
	l := NewMemory()
	if err := l.Append([]float64{1, 2, 3}); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := l.Append([]float64{1, 2}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
