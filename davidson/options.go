package davidson

import (
	"log"

	"gonum.org/v1/gonum/floats"
)

// Options configure a Davidson solve.
type Options struct {
	tol       float64
	lindep    float64
	maxCycle  int
	maxSpace  int
	maxMemory int64
	nroots    int
	lessIO    bool
	typ       int
	dot       func(x, y []float64) float64
	pick      Picker
	callback  func(Progress) error
	logger    *log.Logger
}

// NewOptions returns the default solver options.
func NewOptions() Options {
	opt := Options{}
	opt.tol = 1e-12
	opt.lindep = 1e-14
	opt.maxCycle = 50
	opt.maxSpace = 12
	opt.maxMemory = 2e9
	opt.nroots = 1
	opt.typ = 1
	opt.dot = floats.Dot
	opt.pick = PickReal
	return opt
}

// Tol sets the convergence tolerance on the eigenvalue change per cycle.
// The residual-norm tolerance is derived from it as sqrt(tol)*1e-2.
func (opt Options) Tol(tol float64) Options {
	opt.tol = tol
	return opt
}

// Lindep sets the linear dependency threshold.
// It is recognized for interface parity but the iteration is governed by the
// fixed orthogonalization thresholds.
func (opt Options) Lindep(lindep float64) Options {
	opt.lindep = lindep
	return opt
}

// MaxCycle sets the maximum number of iterations.
func (opt Options) MaxCycle(n int) Options {
	opt.maxCycle = n
	return opt
}

// MaxSpace sets the subspace size above which the basis is rebuilt from the
// current Ritz vectors. The effective limit is maxSpace + 2*nroots.
func (opt Options) MaxSpace(n int) Options {
	opt.maxSpace = n
	return opt
}

// MaxMemory sets the memory budget in bytes that decides whether basis
// vectors are held in memory or spilled to disk.
func (opt Options) MaxMemory(bytes int64) Options {
	opt.maxMemory = bytes
	return opt
}

// NRoots sets the number of eigenpairs to compute.
func (opt Options) NRoots(n int) Options {
	opt.nroots = n
	return opt
}

// LessIO trades IO for compute: with disk-backed storage, Ritz-vector images
// are recomputed by reapplying the operator instead of assembling the stored
// images.
func (opt Options) LessIO(lessIO bool) Options {
	opt.lessIO = lessIO
	return opt
}

// Type selects the generalized eigenproblem formulation, following the
// convention of LAPACK dsygv: 1 solves A x = e B x, 2 solves A B x = e x,
// and 3 solves B A x = e x.
func (opt Options) Type(typ int) Options {
	opt.typ = typ
	return opt
}

// Dot sets the inner product.
func (opt Options) Dot(dot func(x, y []float64) float64) Options {
	opt.dot = dot
	return opt
}

// Pick sets the eigenvalue selection rule of Eig.
func (opt Options) Pick(pick Picker) Options {
	opt.pick = pick
	return opt
}

// Callback registers a per-cycle progress observer.
// A non-nil error returned by the callback aborts the solve.
func (opt Options) Callback(f func(Progress) error) Options {
	opt.callback = f
	return opt
}

// Logger sets the diagnostic logger. By default nothing is logged.
func (opt Options) Logger(l *log.Logger) Options {
	opt.logger = l
	return opt
}

func (opt Options) logf(format string, args ...any) {
	if opt.logger == nil {
		return
	}
	opt.logger.Printf(format, args...)
}
