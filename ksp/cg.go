package ksp

import (
	"github.com/notargets/gosnes/utils"
)

// solveCG is unpreconditioned conjugate gradients, the operator must be
// symmetric positive definite.
func (k *KSP) solveCG(A Operator, b, x utils.Vector, test ConvergenceTest) (err error) {
	var (
		work       = k.getWork(3, b)
		r, p, Ap   = work[0], work[1], work[2]
		rr, rrNew  float64
		alpha, pAp float64
	)
	// x = 0, so r = b
	r.CopyFrom(b)
	p.CopyFrom(r)
	rr = r.Dot(r)
	if k.step(test, 0, r.Norm2()) {
		return
	}
	for n := 1; n <= k.MaxIts; n++ {
		A.MulVecTo(Ap.Data(), p.Data())
		pAp = p.Dot(Ap)
		if pAp <= 0 || pAp != pAp {
			k.reason = DivergedBreakdown
			return
		}
		alpha = rr / pAp
		x.AXPY(alpha, p)
		r.AXPY(-alpha, Ap)
		rrNew = r.Dot(r)
		if k.step(test, n, r.Norm2()) {
			return
		}
		p.WAXPY(rrNew/rr, p, r)
		rr = rrNew
	}
	return
}
