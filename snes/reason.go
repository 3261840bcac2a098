package snes

import "fmt"

type ConvergedReason int8

const (
	ConvergedIterating     ConvergedReason = 0
	ConvergedFnormAbs      ConvergedReason = 2 // ||F|| < atol
	ConvergedSnormRelative ConvergedReason = 3 // ||step|| < xtol*||x||
	DivergedMaxIts         ConvergedReason = -5
	DivergedBreakdown      ConvergedReason = -6 // non finite residual norm
)

var (
	reasonNames = map[ConvergedReason]string{
		ConvergedIterating:     "CONVERGED_ITERATING",
		ConvergedFnormAbs:      "CONVERGED_FNORM_ABS",
		ConvergedSnormRelative: "CONVERGED_SNORM_RELATIVE",
		DivergedMaxIts:         "DIVERGED_MAX_IT",
		DivergedBreakdown:      "DIVERGED_BREAKDOWN",
	}
)

func (r ConvergedReason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ConvergedReason(%d)", int8(r))
}

func (r ConvergedReason) Converged() bool { return r > 0 }
func (r ConvergedReason) Diverged() bool  { return r < 0 }
