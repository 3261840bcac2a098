package snes

import (
	"fmt"
	"io"

	"github.com/notargets/gosnes/utils"
)

// Monitor is called once per accepted iterate, starting with the initial
// guess as iteration 0. The vectors belong to the solver and must not be
// retained.
type Monitor func(its int, x, f utils.Vector, fnorm float64)

func DefaultMonitor(w io.Writer) Monitor {
	return func(its int, x, f utils.Vector, fnorm float64) {
		fmt.Fprintf(w, "iter = %d, residual norm %g \n", its, fnorm)
	}
}
