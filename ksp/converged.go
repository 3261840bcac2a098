package ksp

import (
	"fmt"
	"math"

	"github.com/notargets/gosnes/utils"
)

type Reason int8

const (
	ConvergedIterating Reason = 0
	ConvergedRtol      Reason = 2
	ConvergedAtol      Reason = 3
	ConvergedIts       Reason = 4 // single application methods like PreOnly
	ConvergedHappy     Reason = 5 // GMRES found the exact solution in its Krylov space
	DivergedIts        Reason = -3
	DivergedDtol       Reason = -4
	DivergedBreakdown  Reason = -5
)

var (
	reasonNames = map[Reason]string{
		ConvergedIterating: "ITERATING",
		ConvergedRtol:      "CONVERGED_RTOL",
		ConvergedAtol:      "CONVERGED_ATOL",
		ConvergedIts:       "CONVERGED_ITS",
		ConvergedHappy:     "CONVERGED_HAPPY_BREAKDOWN",
		DivergedIts:        "DIVERGED_ITS",
		DivergedDtol:       "DIVERGED_DTOL",
		DivergedBreakdown:  "DIVERGED_BREAKDOWN",
	}
)

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Reason(%d)", int8(r))
}

func (r Reason) Converged() bool { return r > 0 }
func (r Reason) Diverged() bool  { return r < 0 }

// ConvergenceTest is called once per iteration with the iteration number,
// starting from n = 0 for the initial residual.
type ConvergenceTest interface {
	Converged(n int, rnorm float64) Reason
}

// RtolAtolDtol converges when
//
//	rnorm <= max(Rtol*rnorm_0, Atol)
//
// and diverges when rnorm >= Dtol*rnorm_0 or rnorm is NaN. The target and
// rnorm_0 are captured on the n = 0 call, so a value is needed per solve.
type RtolAtolDtol struct {
	Rtol, Atol, Dtol float64
	ttol, rnorm0     float64
}

func NewRtolAtolDtol(rtol, atol, dtol float64) *RtolAtolDtol {
	return &RtolAtolDtol{Rtol: rtol, Atol: atol, Dtol: dtol}
}

func (t *RtolAtolDtol) Converged(n int, rnorm float64) (reason Reason) {
	reason = ConvergedIterating
	if n == 0 {
		t.ttol = math.Max(t.Rtol*rnorm, t.Atol)
		t.rnorm0 = rnorm
	}
	switch {
	case rnorm <= t.ttol:
		if rnorm < t.Atol {
			reason = ConvergedAtol
		} else {
			reason = ConvergedRtol
		}
	case rnorm >= t.Dtol*t.rnorm0 || utils.IsNan(rnorm):
		reason = DivergedDtol
	}
	return
}

// Target is the convergence threshold captured on the first call
func (t *RtolAtolDtol) Target() float64 { return t.ttol }

// Skip never converges, the solve runs until MaxIts
type Skip struct{}

func (Skip) Converged(int, float64) Reason { return ConvergedIterating }
