package ksp

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gosnes/utils"
)

// Operator is the linear operator handed to a solve. Both utils.Matrix and
// utils.CSR satisfy it.
type Operator interface {
	mat.Matrix
	MulVecTo(dst, x []float64)
}

type Type uint8

const (
	GMRES Type = iota
	CG
	PreOnly
)

var (
	typeNames = []string{
		"gmres",
		"cg",
		"preonly",
	}
)

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

func NewType(label string) (t Type, err error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "gmres", "":
		t = GMRES
	case "cg":
		t = CG
	case "preonly", "lu", "direct":
		t = PreOnly
	default:
		err = fmt.Errorf("unknown linear solver type: %q", label)
	}
	return
}

// DivergedError is returned when a solve stops on a diverged Reason other
// than running out of iterations.
type DivergedError struct {
	Type   Type
	Reason Reason
	Its    int
	Rnorm  float64
}

func (e *DivergedError) Error() string {
	return fmt.Sprintf("ksp %s diverged: %s after %d iterations, residual norm %g",
		e.Type, e.Reason, e.Its, e.Rnorm)
}

type KSP struct {
	Type             Type
	Rtol, Atol, Dtol float64
	MaxIts           int
	Restart          int // GMRES restart length
	// ConvergenceTest replaces the default RtolAtolDtol built from the tolerances
	ConvergenceTest  ConvergenceTest
	Monitor          Monitor
	Logger           *zap.Logger

	its    int
	rnorm  float64
	reason Reason
	work   []utils.Vector
}

func NewKSP(t Type) (k *KSP) {
	k = &KSP{
		Type:    t,
		Rtol:    1.e-5,
		Atol:    1.e-50,
		Dtol:    1.e5,
		MaxIts:  10000,
		Restart: 30,
		Logger:  zap.NewNop(),
	}
	return
}

func (k *KSP) Iterations() int      { return k.its }
func (k *KSP) ResidualNorm() float64 { return k.rnorm }
func (k *KSP) Reason() Reason        { return k.reason }

// Solve approximately solves A x = b starting from x = 0. It returns the
// number of iterations used. Running out of iterations is reported through
// Reason only, a truncated solve is still a usable correction.
func (k *KSP) Solve(A Operator, b, x utils.Vector) (its int, err error) {
	var (
		nr, nc = A.Dims()
	)
	if nr != nc || nr != b.Len() || nc != x.Len() {
		err = fmt.Errorf("ksp: operator is %dx%d, len(b) = %d, len(x) = %d", nr, nc, b.Len(), x.Len())
		panic(err)
	}
	k.its, k.rnorm, k.reason = 0, 0, ConvergedIterating
	test := k.ConvergenceTest
	if test == nil {
		test = NewRtolAtolDtol(k.Rtol, k.Atol, k.Dtol)
	}
	x.Set(0)
	switch k.Type {
	case GMRES:
		err = k.solveGMRES(A, b, x, test)
	case CG:
		err = k.solveCG(A, b, x, test)
	case PreOnly:
		err = k.solvePreOnly(A, b, x)
	default:
		panic(fmt.Errorf("ksp: unknown type %v", k.Type))
	}
	if err != nil {
		return k.its, errors.Wrapf(err, "ksp %s", k.Type)
	}
	if k.reason == ConvergedIterating {
		k.reason = DivergedIts
	}
	k.Logger.Debug("linear solve done",
		zap.Stringer("type", k.Type),
		zap.Stringer("reason", k.reason),
		zap.Int("its", k.its),
		zap.Float64("rnorm", k.rnorm))
	if k.reason.Diverged() && k.reason != DivergedIts {
		return k.its, &DivergedError{Type: k.Type, Reason: k.reason, Its: k.its, Rnorm: k.rnorm}
	}
	return k.its, nil
}

// step records an iteration and asks the convergence test about it
func (k *KSP) step(test ConvergenceTest, n int, rnorm float64) (done bool) {
	k.its, k.rnorm = n, rnorm
	if k.Monitor != nil {
		k.Monitor(n, rnorm)
	}
	k.reason = test.Converged(n, rnorm)
	return k.reason != ConvergedIterating
}

// getWork keeps the work vectors between solves of the same size
func (k *KSP) getWork(nw int, like utils.Vector) []utils.Vector {
	if len(k.work) != nw || k.work[0].Len() != like.Len() || k.work[0].Comm() != like.Comm() {
		k.work = make([]utils.Vector, nw)
		for i := range k.work {
			k.work[i] = like.Duplicate()
		}
	}
	return k.work
}

// residual computes r = b - A x
func residual(A Operator, b, x, r utils.Vector) {
	A.MulVecTo(r.Data(), x.Data())
	r.Scale(-1).AXPY(1, b)
}
