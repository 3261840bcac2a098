package ksp

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gosnes/utils"
)

// solvePreOnly applies a dense LU factorization once. The problems solved
// here are small enough that the factorization is cheaper than iterating.
func (k *KSP) solvePreOnly(A Operator, b, x utils.Vector) (err error) {
	var (
		lu mat.LU
		r  = k.getWork(1, b)[0]
	)
	lu.Factorize(mat.DenseCopyOf(A))
	if cond := lu.Cond(); utils.IsNan(cond) {
		k.its, k.reason = 1, DivergedBreakdown
		return errors.New("operator is not finite")
	} else if math.IsInf(cond, 1) {
		k.its, k.reason = 1, DivergedBreakdown
		return errors.New("singular operator")
	} else if cond > 1.e14 {
		k.Logger.Warn("ill conditioned operator", zap.Float64("cond", cond))
	}
	if err = lu.SolveVecTo(x.V, false, b.V); err != nil {
		var condErr mat.Condition
		if !errors.As(err, &condErr) {
			return
		}
		err = nil
	}
	residual(A, b, x, r)
	k.its, k.rnorm, k.reason = 1, r.Norm2(), ConvergedIts
	if k.Monitor != nil {
		k.Monitor(1, k.rnorm)
	}
	if !utils.IsFinite(k.rnorm) {
		k.reason = DivergedBreakdown
		return errors.New("operator or right hand side is not finite")
	}
	return
}
