package snes

import (
	"sync"

	"go.uber.org/zap"

	"github.com/notargets/gosnes/ksp"
	"github.com/notargets/gosnes/utils"
)

// ResidualFunc evaluates f = F(x)
type ResidualFunc func(x, f utils.Vector) error

// JacobianFunc returns the Jacobian of F at x
type JacobianFunc func(x utils.Vector) (ksp.Operator, error)

// InitialGuessFunc fills x with the starting iterate
type InitialGuessFunc func(x utils.Vector) error

// LinearSolver approximately solves A x = b. *ksp.KSP is the usual choice.
type LinearSolver interface {
	Solve(A ksp.Operator, b, x utils.Vector) (its int, err error)
}

const DefaultHistoryLength = 1000

type Result struct {
	Solution            utils.Vector
	Iterations          int
	Reason              ConvergedReason
	Fnorm               float64
	History             []float64
	FunctionEvaluations int
	LinearIterations    int
}

// NewtonLS is a Newton method globalized by a line search. A solver owns its
// vectors and runs one Solve at a time.
type NewtonLS struct {
	residual   ResidualFunc
	jacobian   JacobianFunc
	linear     LinearSolver
	lineSearch LineSearch
	converged  ConvergenceTest
	monitor    Monitor
	logger     *zap.Logger
	opts       Options

	mu             sync.Mutex
	setUp          bool
	vecSol, vecRes utils.Vector
	work           []utils.Vector // direction, trial residual, scratch

	history    []float64
	historyLen int
	its        int
	reason     ConvergedReason
	fnorm      float64
	nfuncs     int
	linearIts  int
}

// NewNewtonLS uses a GMRES linear solver when linear is nil
func NewNewtonLS(residual ResidualFunc, jacobian JacobianFunc, linear LinearSolver) (n *NewtonLS) {
	if linear == nil {
		linear = ksp.NewKSP(ksp.GMRES)
	}
	n = &NewtonLS{
		residual:   residual,
		jacobian:   jacobian,
		linear:     linear,
		logger:     zap.NewNop(),
		historyLen: DefaultHistoryLength,
	}
	n.SetFromOptions(DefaultOptions())
	return
}

// SetFromOptions replaces the line search and convergence test with the ones
// described by opts.
func (n *NewtonLS) SetFromOptions(opts Options) {
	n.opts = opts
	params := opts.LineSearchParams()
	params.Logger = n.logger
	n.lineSearch = NewLineSearch(opts.LineSearch, params)
	n.converged = AbsRel{Atol: opts.Atol, Xtol: opts.Xtol, Logger: n.logger}
}

func (n *NewtonLS) SetLineSearch(ls LineSearch)          { n.lineSearch = ls }
func (n *NewtonLS) SetConvergenceTest(ct ConvergenceTest) { n.converged = ct }
func (n *NewtonLS) SetMonitor(m Monitor)                  { n.monitor = m }

// SetLogger also hands the logger to the built in line searches and tests
func (n *NewtonLS) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	n.logger = logger
	switch ls := n.lineSearch.(type) {
	case *Quadratic:
		ls.Logger = logger
	case *Cubic:
		ls.Logger = logger
	}
	if ar, ok := n.converged.(AbsRel); ok {
		ar.Logger = logger
		n.converged = ar
	}
}

// SetConvergenceHistory keeps up to length residual norms per solve, a
// length <= 0 disables the history.
func (n *NewtonLS) SetConvergenceHistory(length int) {
	n.historyLen = length
	n.history = nil
}

// Setup allocates the solution, the residual and three work vectors shaped
// like template.
func (n *NewtonLS) Setup(template utils.Vector) error {
	if !n.mu.TryLock() {
		return ErrSolveInProgress
	}
	defer n.mu.Unlock()
	n.vecSol = template.Duplicate()
	n.vecRes = template.Duplicate()
	n.work = make([]utils.Vector, 3)
	for i := range n.work {
		n.work[i] = template.Duplicate()
	}
	n.setUp = true
	return nil
}

// Destroy releases the vectors, Setup is needed before the next Solve
func (n *NewtonLS) Destroy() error {
	if !n.mu.TryLock() {
		return ErrSolveInProgress
	}
	defer n.mu.Unlock()
	n.vecSol, n.vecRes, n.work, n.history = utils.Vector{}, utils.Vector{}, nil, nil
	n.setUp = false
	return nil
}

// Solve runs at most maxIts Newton iterations, maxIts <= 0 uses
// Options.MaxIterations. A nil guess starts from the current solution.
// Numerical failure is reported through Result.Reason, an error is returned
// only when a callback or the linear solver fails.
func (n *NewtonLS) Solve(guess InitialGuessFunc, maxIts int) (res Result, err error) {
	if !n.mu.TryLock() {
		return res, ErrSolveInProgress
	}
	defer n.mu.Unlock()
	if !n.setUp {
		return res, ErrNotSetUp
	}
	if maxIts <= 0 {
		maxIts = n.opts.MaxIterations
	}
	var (
		X, F    = n.vecSol, n.vecRes
		Y, G, W = n.work[0], n.work[1], n.work[2]
		xnorm   float64
		lits    int
		A       ksp.Operator
		ls      LineSearchResult
	)
	n.its, n.reason, n.nfuncs, n.linearIts = 0, ConvergedIterating, 0, 0
	n.history = n.history[:0]
	// X and Y trade places, so the solution slot is one of them at exit
	defer func() {
		if X.V != n.vecSol.V {
			n.vecSol.CopyFrom(X)
			n.work[0] = X
		} else {
			n.work[0] = Y
		}
		n.vecRes, n.work[1], n.work[2] = F, G, W
	}()

	if guess != nil {
		if err = guess(X); err != nil {
			return res, &ComputeError{Stage: "initial guess", Err: err}
		}
	}
	xnorm = X.Norm2()
	if err = n.evaluate(X, F); err != nil {
		return
	}
	n.fnorm = F.Norm2()
	n.record(0, X, F)
	if !utils.IsFinite(n.fnorm) {
		n.reason = DivergedBreakdown
	}

	for i := 0; i < maxIts && n.reason == ConvergedIterating; i++ {
		n.its = i + 1
		if A, err = n.jacobian(X); err != nil {
			return res, &ComputeError{Stage: "jacobian", Err: err}
		}
		// J y = F, then y = -y gives the Newton direction
		if lits, err = n.linear.Solve(A, F, Y); err != nil {
			return res, &LinearSolveError{Iteration: n.its, Err: err}
		}
		n.linearIts += lits
		Y.Scale(-1)
		if ls, err = n.lineSearch.Search(n.evaluate, X, F, G, Y, W, n.fnorm); err != nil {
			return
		}
		X, Y = Y, X
		F, G = G, F
		n.fnorm = ls.Gnorm
		xnorm = X.Norm2()
		n.record(n.its, X, F)
		n.logger.Debug("newton step",
			zap.Int("its", n.its),
			zap.Float64("fnorm", n.fnorm),
			zap.Float64("ynorm", ls.Ynorm),
			zap.Float64("lambda", ls.Lambda),
			zap.Bool("lineSearchSucceeded", ls.Succeeded),
			zap.Int("linearIts", lits))
		if !utils.IsFinite(n.fnorm) {
			n.reason = DivergedBreakdown
			break
		}
		n.reason = n.converged.Converged(xnorm, ls.Ynorm, n.fnorm)
	}
	if n.reason == ConvergedIterating {
		n.reason = DivergedMaxIts
	}
	n.logger.Info("nonlinear solve done",
		zap.Stringer("reason", n.reason),
		zap.Int("its", n.its),
		zap.Float64("fnorm", n.fnorm),
		zap.Int("functionEvaluations", n.nfuncs),
		zap.Int("linearIts", n.linearIts))
	res = Result{
		Solution:            n.vecSol,
		Iterations:          n.its,
		Reason:              n.reason,
		Fnorm:               n.fnorm,
		History:             n.GetConvergenceHistory(),
		FunctionEvaluations: n.nfuncs,
		LinearIterations:    n.linearIts,
	}
	return
}

func (n *NewtonLS) evaluate(x, f utils.Vector) error {
	n.nfuncs++
	if err := n.residual(x, f); err != nil {
		return &ComputeError{Stage: "residual", Err: err}
	}
	return nil
}

func (n *NewtonLS) record(its int, x, f utils.Vector) {
	if len(n.history) < n.historyLen {
		n.history = append(n.history, n.fnorm)
	}
	if n.monitor != nil {
		n.monitor(its, x, f, n.fnorm)
	}
}

func (n *NewtonLS) Iterations() int                  { return n.its }
func (n *NewtonLS) Reason() ConvergedReason          { return n.reason }
func (n *NewtonLS) Fnorm() float64                   { return n.fnorm }
func (n *NewtonLS) FunctionEvaluations() int         { return n.nfuncs }
func (n *NewtonLS) LinearIterations() int            { return n.linearIts }
func (n *NewtonLS) Options() Options                 { return n.opts }
func (n *NewtonLS) Solution() utils.Vector           { return n.vecSol }
func (n *NewtonLS) Residual() utils.Vector           { return n.vecRes }
func (n *NewtonLS) LineSearch() LineSearch           { return n.lineSearch }
func (n *NewtonLS) ConvergenceTest() ConvergenceTest { return n.converged }

// GetConvergenceHistory returns a copy of the residual norms of the last solve
func (n *NewtonLS) GetConvergenceHistory() []float64 {
	return append([]float64(nil), n.history...)
}
