package davidson

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/Justin318/pyscf/veclist"
)

// storage owns the basis-vector lists for the lifetime of one solve.
// Depending on the memory budget they are either in-core or backed by
// SQLite databases in a temporary directory.
type storage struct {
	lists []veclist.List

	dir   string
	disks []*veclist.Disk
}

func newStorage(count int, incore bool) (*storage, error) {
	s := &storage{}
	if incore {
		for i := 0; i < count; i++ {
			s.lists = append(s.lists, veclist.NewMemory())
		}
		return s, nil
	}

	dir, err := os.MkdirTemp("", "davidson")
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	s.dir = dir
	for i := 0; i < count; i++ {
		d, err := veclist.NewDisk(filepath.Join(dir, fmt.Sprintf("%d.db", i)))
		if err != nil {
			s.close()
			return nil, errors.Wrap(err, "")
		}
		s.lists = append(s.lists, d)
		s.disks = append(s.disks, d)
	}
	return s, nil
}

func (s *storage) reset() error {
	for _, l := range s.lists {
		if err := l.Reset(); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

func (s *storage) close() error {
	var err error
	for _, d := range s.disks {
		if err1 := d.Close(); err1 != nil && err == nil {
			err = err1
		}
	}
	if s.dir != "" {
		if err1 := os.RemoveAll(s.dir); err1 != nil && err == nil {
			err = err1
		}
	}
	return err
}

// checkGuess validates the initial guess and returns the problem dimension.
func checkGuess(x0 [][]float64) (int, error) {
	if len(x0) == 0 {
		return 0, errors.Errorf("empty initial guess")
	}
	dim := len(x0[0])
	if dim == 0 {
		return 0, errors.Errorf("zero-dimensional initial guess")
	}
	for i, x := range x0 {
		if len(x) != dim {
			return 0, errors.Errorf("guess vector %d has dimension %d, expected %d", i, len(x), dim)
		}
	}
	return dim, nil
}

// checkImages validates the shape of an operator's output batch.
func checkImages(name string, nin int, images [][]float64, dim int) error {
	if len(images) != nin {
		return errors.Errorf("%s returned %d vectors for %d inputs", name, len(images), nin)
	}
	for i, im := range images {
		if len(im) != dim {
			return errors.Errorf("%s output %d has dimension %d, expected %d", name, i, len(im), dim)
		}
	}
	return nil
}

func argmaxAbs(xs []float64) int {
	imax := 0
	for i, v := range xs {
		if math.Abs(v) > math.Abs(xs[imax]) {
			imax = i
		}
	}
	return imax
}
