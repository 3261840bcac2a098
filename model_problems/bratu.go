package model_problems

import (
	"fmt"
	"math"

	"github.com/notargets/gosnes/ksp"
	"github.com/notargets/gosnes/utils"
)

/*
The one dimensional Bratu (solid fuel ignition) problem:

	-u'' - λ exp(u) = 0,	0 < x < 1,	u(0) = u(1) = 0

Second order central differences on N interior points, h = 1/(N+1):

	F_i = (2u_i - u_(i-1) - u_(i+1)) / h² - λ exp(u_i)

The Jacobian is tridiagonal:

	J_ii = 2/h² - λ exp(u_i),	J_i,i±1 = -1/h²

Solutions exist for 0 <= λ < λ* ≈ 3.51383, the lower branch is found from
the initial guess below.
*/
type Bratu1D struct {
	N      int
	Lambda float64
	h      float64
}

const BratuLambdaCritical = 3.513830719

func NewBratu1D(N int, lambda float64) (b *Bratu1D) {
	b = &Bratu1D{
		N:      N,
		Lambda: lambda,
		h:      1. / float64(N+1),
	}
	return
}

func (b *Bratu1D) Name() string { return fmt.Sprintf("Bratu1D(N=%d, lambda=%g)", b.N, b.Lambda) }
func (b *Bratu1D) Size() int    { return b.N }

// X returns the location of interior point i
func (b *Bratu1D) X(i int) float64 { return float64(i+1) * b.h }

func (b *Bratu1D) InitialGuess(x utils.Vector) error {
	checkSize(b, x)
	var (
		scale = b.Lambda / (b.Lambda + 1)
		xd    = x.Data()
	)
	for i := range xd {
		xi := b.X(i)
		xd[i] = scale * math.Sqrt(math.Min(xi, 1-xi))
	}
	return nil
}

// Residual is computed partition by partition when x carries a Communicator
func (b *Bratu1D) Residual(x, f utils.Vector) error {
	checkSize(b, x, f)
	var (
		u, F   = x.Data(), f.Data()
		oohh   = 1. / (b.h * b.h)
		lam    = b.Lambda
		kernel = func(lo, hi int) {
			for i := lo; i < hi; i++ {
				var ul, ur float64
				if i > 0 {
					ul = u[i-1]
				}
				if i < b.N-1 {
					ur = u[i+1]
				}
				F[i] = (2*u[i]-ul-ur)*oohh - lam*math.Exp(u[i])
			}
		}
	)
	if b.Lambda < 0 {
		return fmt.Errorf("bratu: lambda must be non negative, have %g", b.Lambda)
	}
	if comm := x.Comm(); comm != nil {
		return comm.ForEach(b.N, func(np, lo, hi int) error {
			kernel(lo, hi)
			return nil
		})
	}
	kernel(0, b.N)
	return nil
}

func (b *Bratu1D) Jacobian(x utils.Vector) (ksp.Operator, error) {
	checkSize(b, x)
	var (
		u    = x.Data()
		oohh = 1. / (b.h * b.h)
		dok  = utils.NewDOK(b.N, b.N)
	)
	for i := 0; i < b.N; i++ {
		dok.Set(i, i, 2*oohh-b.Lambda*math.Exp(u[i]))
		if i > 0 {
			dok.Set(i, i-1, -oohh)
		}
		if i < b.N-1 {
			dok.Set(i, i+1, -oohh)
		}
	}
	dok.SetReadOnly("Bratu Jacobian")
	return dok.ToCSR(), nil
}
