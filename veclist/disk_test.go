package veclist

import (
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestDiskAtAllocates(t *testing.T) {
	t.Parallel()
	l, err := NewDisk(filepath.Join(t.TempDir(), "v.db"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer l.Close()

	x := []float64{math.Pi, -math.MaxFloat64, math.SmallestNonzeroFloat64, 0}
	if err := l.Append(x); err != nil {
		t.Fatalf("%+v", err)
	}
	got, err := l.At(0, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !slices.Equal(got, x) {
		t.Fatalf("%v, expected %v", got, x)
	}

	// An undersized destination is replaced, an oversized one reused.
	short := make([]float64, 1)
	if got, err = l.At(0, short); err != nil {
		t.Fatalf("%+v", err)
	}
	if !slices.Equal(got, x) {
		t.Fatalf("%v, expected %v", got, x)
	}
	long := make([]float64, 8)
	got, err = l.At(0, long)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(got) != len(x) || &got[0] != &long[0] {
		t.Fatalf("destination not reused")
	}
}

func TestDiskCloseRemovesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "v.db")
	l, err := NewDisk(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := l.Append([]float64{1}); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("%v", err)
	}
}

func TestDiskReopenDropsData(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "v.db")
	l, err := NewDisk(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := l.Append([]float64{1, 2}); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := l.db.Close(); err != nil {
		t.Fatalf("%+v", err)
	}

	l, err = NewDisk(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer l.Close()
	if l.Len() != 0 {
		t.Fatalf("%d", l.Len())
	}
}
