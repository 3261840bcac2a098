package snes

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gosnes/ksp"
	"github.com/notargets/gosnes/utils"
)

// FDJacobian approximates the Jacobian of residual with central differences.
// It costs 2n residual evaluations per call.
func FDJacobian(residual ResidualFunc, n int) JacobianFunc {
	return func(x utils.Vector) (A ksp.Operator, err error) {
		if x.Len() != n {
			panic(fmt.Errorf("dimension mismatch: FDJacobian built for n = %d, len(x) = %d", n, x.Len()))
		}
		J := utils.NewMatrix(n, n)
		fd.Jacobian(J.M, func(f, xx []float64) {
			if err != nil {
				return
			}
			err = residual(utils.NewVector(n, xx), utils.NewVector(n, f))
		}, x.Data(), &fd.JacobianSettings{
			Formula: fd.Central,
		})
		if err != nil {
			return nil, errors.Wrap(err, "finite difference jacobian")
		}
		return J, nil
	}
}

// TestJacobian compares jacobian against central differences at x and at
// the constant vectors -1 and +1. It writes one line per point to w and
// returns the ratios ||fd - hc|| / ||hc|| in Frobenius norm. Ratios near
// 1.e-8 mean the hand coded Jacobian is probably correct.
func TestJacobian(residual ResidualFunc, jacobian JacobianFunc, x utils.Vector, w io.Writer) (ratios []float64, err error) {
	var (
		n      = x.Len()
		fdJac  = FDJacobian(residual, n)
		points = []utils.Vector{
			x,
			utils.NewVector(n).Set(-1),
			utils.NewVector(n).Set(1),
		}
	)
	if w != nil {
		fmt.Fprintf(w, "Testing hand-coded Jacobian (hc) against finite difference Jacobian (fd), if the ratio ||fd - hc|| / ||hc|| is\n")
		fmt.Fprintf(w, "O(1.e-8), the hand-coded Jacobian is probably correct.\n")
	}
	for _, p := range points {
		var hc, fdA ksp.Operator
		if hc, err = jacobian(p); err != nil {
			return nil, &ComputeError{Stage: "jacobian", Err: err}
		}
		if fdA, err = fdJac(p); err != nil {
			return nil, &ComputeError{Stage: "residual", Err: err}
		}
		hcD := mat.DenseCopyOf(hc)
		diff := mat.DenseCopyOf(fdA)
		diff.Sub(diff, hcD)
		dnorm, hcnorm := mat.Norm(diff, 2), mat.Norm(hcD, 2)
		if hcnorm == 0 {
			hcnorm = 1.e-20
		}
		ratios = append(ratios, dnorm/hcnorm)
		if w != nil {
			fmt.Fprintf(w, "ratio ||fd-hc||/||hc|| = %g, difference ||fd-hc|| = %g\n", dnorm/hcnorm, dnorm)
		}
	}
	return
}
