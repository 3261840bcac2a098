package ksp

import (
	"fmt"
	"io"
)

// Monitor is called with the iteration number and the (possibly estimated)
// residual norm, starting with n = 0.
type Monitor func(n int, rnorm float64)

func DefaultMonitor(w io.Writer) Monitor {
	return func(n int, rnorm float64) {
		fmt.Fprintf(w, "%3d KSP Residual norm %14.12e \n", n, rnorm)
	}
}

// ShortMonitor drops digits as the residual shrinks, the trailing digits
// differ between machines and make output comparisons brittle.
func ShortMonitor(w io.Writer) Monitor {
	return func(n int, rnorm float64) {
		switch {
		case rnorm > 1.e-9:
			fmt.Fprintf(w, "%3d KSP Residual norm %g \n", n, rnorm)
		case rnorm > 1.e-11:
			fmt.Fprintf(w, "%3d KSP Residual norm %5.3e \n", n, rnorm)
		default:
			fmt.Fprintf(w, "%3d KSP Residual norm < 1.e-11\n", n)
		}
	}
}
