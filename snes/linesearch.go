package snes

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/notargets/gosnes/utils"
)

// LineSearch picks the next iterate along the Newton direction. On entry y
// holds the direction, on return y holds the accepted iterate and g the
// residual there. w is scratch.
type LineSearch interface {
	Search(residual ResidualFunc, x, f, g, y, w utils.Vector, fnorm float64) (LineSearchResult, error)
}

type LineSearchParams struct {
	Alpha   float64 // sufficient decrease constant
	MaxStep float64
	StepTol float64
	Logger  *zap.Logger
}

type LineSearchResult struct {
	Ynorm     float64 // norm of the, possibly rescaled, direction
	Gnorm     float64 // residual norm at the accepted iterate
	Lambda    float64 // accepted step length
	InitSlope float64
	Succeeded bool      // false when the step length fell below StepTol/Ynorm
	Trials    []float64 // step lengths in the order they were evaluated
}

func NewLineSearch(kind LineSearchKind, params LineSearchParams) (ls LineSearch) {
	switch kind {
	case LineSearchFull:
		ls = &FullStep{}
	case LineSearchQuadratic:
		ls = &Quadratic{params}
	case LineSearchCubic:
		ls = &Cubic{params}
	default:
		panic(fmt.Errorf("unknown line search kind %v", kind))
	}
	return
}

// FullStep takes the Newton step unchanged
type FullStep struct{}

func (*FullStep) Search(residual ResidualFunc, x, f, g, y, w utils.Vector, fnorm float64) (res LineSearchResult, err error) {
	res.Ynorm = y.Norm2()
	y.AXPY(1, x)
	if err = residual(y, g); err != nil {
		return
	}
	res.Gnorm = g.Norm2()
	res.Lambda, res.Succeeded, res.Trials = 1, true, []float64{1}
	return
}

// Quadratic backtracks along the direction using the minimizer of the
// quadratic through (0, fnorm) with slope initslope and (lambda, gnorm).
type Quadratic struct {
	LineSearchParams
}

func (ls *Quadratic) Search(residual ResidualFunc, x, f, g, y, w utils.Vector, fnorm float64) (LineSearchResult, error) {
	return ls.backtrack(false, residual, x, f, g, y, w, fnorm)
}

// Cubic backtracks with the quadratic model once, then with the cubic
// through the two most recent trials.
type Cubic struct {
	LineSearchParams
}

func (ls *Cubic) Search(residual ResidualFunc, x, f, g, y, w utils.Vector, fnorm float64) (LineSearchResult, error) {
	return ls.backtrack(true, residual, x, f, g, y, w, fnorm)
}

func (p LineSearchParams) backtrack(cubic bool, residual ResidualFunc,
	x, f, g, y, w utils.Vector, fnorm float64) (res LineSearchResult, err error) {
	var (
		log                   = p.Logger
		lambda, lambdaPrev    float64
		gnorm, gnormPrev      float64
		minLambda, lambdaTemp float64
	)
	if log == nil {
		log = zap.NewNop()
	}
	res.Ynorm = y.Norm2()
	if res.Ynorm > p.MaxStep {
		scale := p.MaxStep / res.Ynorm
		log.Info("scaling step", zap.Float64("scale", scale))
		y.Scale(scale)
		res.Ynorm = p.MaxStep
	}
	minLambda = p.StepTol / res.Ynorm
	res.InitSlope = forceDescent(f.Dot(y))
	sufficient := func(gnorm float64) bool {
		return gnorm <= fnorm+p.Alpha*res.InitSlope
	}
	trial := func(lambda float64) (gnorm float64, err error) {
		w.WAXPY(lambda, y, x)
		if err = residual(w, g); err != nil {
			return
		}
		res.Trials = append(res.Trials, lambda)
		return g.Norm2(), nil
	}
	done := func(lambda, gnorm float64, succeeded bool) {
		y.CopyFrom(w)
		res.Lambda, res.Gnorm, res.Succeeded = lambda, gnorm, succeeded
	}

	lambda = 1
	if gnorm, err = trial(lambda); err != nil {
		return
	}
	if !utils.IsFinite(res.Ynorm) || !utils.IsFinite(res.InitSlope) {
		log.Info("search direction is not finite", zap.Float64("ynorm", res.Ynorm))
		done(lambda, gnorm, false)
		return
	}
	if sufficient(gnorm) {
		log.Info("using full step")
		done(lambda, gnorm, true)
		return
	}
	for count := 1; ; count++ {
		if !(lambda > minLambda) {
			log.Info("unable to find good step length",
				zap.Int("count", count),
				zap.Float64("fnorm", fnorm),
				zap.Float64("gnorm", gnorm),
				zap.Float64("ynorm", res.Ynorm),
				zap.Float64("lambda", lambda))
			done(lambda, gnorm, false)
			return
		}
		if !cubic || count == 1 {
			lambdaTemp = quadraticStep(res.InitSlope, fnorm, gnorm, lambda)
		} else {
			lambdaTemp = cubicStep(res.InitSlope, fnorm, gnorm, lambda, gnormPrev, lambdaPrev)
		}
		lambdaPrev, gnormPrev = lambda, gnorm
		lambda = clampLambda(lambdaTemp, lambda)
		if gnorm, err = trial(lambda); err != nil {
			return
		}
		if sufficient(gnorm) {
			if !cubic || count == 1 {
				log.Info("quadratically determined step", zap.Float64("lambda", lambda))
			} else {
				log.Info("cubically determined step", zap.Float64("lambda", lambda))
			}
			done(lambda, gnorm, true)
			return
		}
	}
}

// forceDescent makes the directional derivative negative. A non-descent
// direction has its slope reflected and a zero slope is replaced by -1.
func forceDescent(initSlope float64) float64 {
	if initSlope > 0 {
		initSlope = -initSlope
	}
	if initSlope == 0 {
		initSlope = -1
	}
	return initSlope
}

// clampLambda keeps a new step length within [0.1, 0.5] of the previous
// one. A NaN model step maps to the upper bound.
func clampLambda(lambdaTemp, lambda float64) float64 {
	if !(lambdaTemp <= .5*lambda) {
		lambdaTemp = .5 * lambda
	}
	if lambdaTemp <= .1*lambda {
		return .1 * lambda
	}
	return lambdaTemp
}

// quadraticStep minimizes the quadratic through (0, fnorm) with slope
// initSlope that passes through (lambda, gnorm).
func quadraticStep(initSlope, fnorm, gnorm, lambda float64) float64 {
	return -initSlope * lambda * lambda / (2 * (gnorm - fnorm - initSlope*lambda))
}

// cubicStep minimizes the cubic through (0, fnorm) with slope initSlope that
// passes through (lambda, gnorm) and (lambdaPrev, gnormPrev).
func cubicStep(initSlope, fnorm, gnorm, lambda, gnormPrev, lambdaPrev float64) float64 {
	var (
		t1  = gnorm - fnorm - lambda*initSlope
		t2  = gnormPrev - fnorm - lambdaPrev*initSlope
		l2  = lambda * lambda
		lp2 = lambdaPrev * lambdaPrev
		a   = (t1/l2 - t2/lp2) / (lambda - lambdaPrev)
		b   = (-lambdaPrev*t1/l2 + lambda*t2/lp2) / (lambda - lambdaPrev)
		d   = b*b - 3*a*initSlope
	)
	if d < 0 {
		d = 0
	}
	if a == 0 {
		return -initSlope / (2 * b)
	}
	return (-b + math.Sqrt(d)) / (3 * a)
}
