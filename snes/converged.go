package snes

import (
	"go.uber.org/zap"
)

// ConvergenceTest is consulted after every accepted Newton step with the norm
// of the new iterate, the norm of the search step and the residual norm.
type ConvergenceTest interface {
	Converged(xnorm, pnorm, fnorm float64) ConvergedReason
}

// ConvergenceFunc adapts a plain function to ConvergenceTest
type ConvergenceFunc func(xnorm, pnorm, fnorm float64) ConvergedReason

func (f ConvergenceFunc) Converged(xnorm, pnorm, fnorm float64) ConvergedReason {
	return f(xnorm, pnorm, fnorm)
}

// AbsRel converges on an absolute residual norm or on a step that is small
// relative to the iterate. It holds no state between calls.
type AbsRel struct {
	Atol, Xtol float64
	Logger     *zap.Logger
}

func (c AbsRel) Converged(xnorm, pnorm, fnorm float64) (reason ConvergedReason) {
	switch {
	case fnorm < c.Atol:
		reason = ConvergedFnormAbs
		c.log("converged due to function norm",
			zap.Float64("fnorm", fnorm), zap.Float64("atol", c.Atol))
	case pnorm < c.Xtol*xnorm:
		reason = ConvergedSnormRelative
		c.log("converged due to small update length",
			zap.Float64("pnorm", pnorm), zap.Float64("xtol", c.Xtol), zap.Float64("xnorm", xnorm))
	}
	return
}

func (c AbsRel) log(msg string, fields ...zap.Field) {
	if c.Logger != nil {
		c.Logger.Info(msg, fields...)
	}
}
