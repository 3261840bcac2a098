package ksp

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/notargets/gosnes/utils"
)

// solveGMRES is restarted GMRES(m) without a preconditioner. The Arnoldi
// basis is orthogonalized with modified Gram-Schmidt and the Hessenberg
// matrix is reduced with Givens rotations as it grows, so the residual norm
// of the least squares problem is available every iteration.
func (k *KSP) solveGMRES(A Operator, b, x utils.Vector, test ConvergenceTest) (err error) {
	var (
		m    = k.Restart
		n    int
		beta float64
	)
	if m <= 0 {
		m = 30
	}
	var (
		work = k.getWork(m+3, b)
		r, w = work[0], work[1]
		V    = work[2:]
		H    = make([]float64, (m+1)*m)
		g    = make([]float64, m+1)
		cs   = make([]float64, m)
		sn   = make([]float64, m)
		y    = make([]float64, m)
	)
	h := func(i, j int) *float64 { return &H[i*m+j] }

	// x = 0, so r = b
	r.CopyFrom(b)
	beta = r.Norm2()
	if k.step(test, 0, beta) {
		return
	}
	for n < k.MaxIts {
		if beta == 0 {
			k.reason = ConvergedHappy
			return
		}
		for i := range H {
			H[i] = 0
		}
		for i := range g {
			g[i] = 0
		}
		g[0] = beta
		V[0].CopyFrom(r).Scale(1 / beta)
		var (
			kk   int
			done bool
		)
		for j := 0; j < m && n < k.MaxIts; j++ {
			n++
			A.MulVecTo(w.Data(), V[j].Data())
			for i := 0; i <= j; i++ {
				hij := w.Dot(V[i])
				*h(i, j) = hij
				w.AXPY(-hij, V[i])
			}
			hnext := w.Norm2()
			*h(j+1, j) = hnext
			for i := 0; i < j; i++ {
				a, c := *h(i, j), *h(i+1, j)
				*h(i, j) = cs[i]*a + sn[i]*c
				*h(i+1, j) = -sn[i]*a + cs[i]*c
			}
			cs[j], sn[j] = givens(*h(j, j), hnext)
			*h(j, j) = cs[j]**h(j, j) + sn[j]*hnext
			*h(j+1, j) = 0
			if *h(j, j) == 0 {
				// The new column is zero, the Krylov space stopped growing
				k.reason = DivergedBreakdown
				k.its = n
				kk = j
				done = true
				break
			}
			g[j+1] = -sn[j] * g[j]
			g[j] = cs[j] * g[j]
			kk = j + 1
			if done = k.step(test, n, math.Abs(g[j+1])); done {
				break
			}
			if hnext == 0 {
				k.reason = ConvergedHappy
				done = true
				break
			}
			V[j+1].CopyFrom(w).Scale(1 / hnext)
		}
		if kk > 0 {
			copy(y, g[:kk])
			blas64.Trsv(blas.NoTrans, blas64.Triangular{
				Uplo:   blas.Upper,
				Diag:   blas.NonUnit,
				N:      kk,
				Stride: m,
				Data:   H,
			}, blas64.Vector{N: kk, Inc: 1, Data: y})
			for i := 0; i < kk; i++ {
				x.AXPY(y[i], V[i])
			}
		}
		if done {
			return
		}
		// Restart from the true residual
		residual(A, b, x, r)
		beta = r.Norm2()
	}
	return
}

// givens returns the rotation that zeroes b in the pair (a, b)
func givens(a, b float64) (c, s float64) {
	switch {
	case b == 0:
		c, s = 1, 0
	case math.Abs(b) > math.Abs(a):
		t := a / b
		s = 1 / math.Sqrt(1+t*t)
		c = s * t
	default:
		t := b / a
		c = 1 / math.Sqrt(1+t*t)
		s = c * t
	}
	return
}
