package snes

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotSetUp        = errors.New("snes: Setup must be called before Solve")
	ErrSolveInProgress = errors.New("snes: a solve is already in progress on this solver")
)

// ComputeError reports a failed user callback. Stage names the callback.
type ComputeError struct {
	Stage string // "initial guess", "residual" or "jacobian"
	Err   error
}

func (e *ComputeError) Error() string { return fmt.Sprintf("snes: %s evaluation: %v", e.Stage, e.Err) }
func (e *ComputeError) Unwrap() error { return e.Err }
func (e *ComputeError) Cause() error  { return e.Err }

// LinearSolveError reports a failed linear solve within Newton iteration
// Iteration.
type LinearSolveError struct {
	Iteration int
	Err       error
}

func (e *LinearSolveError) Error() string {
	return fmt.Sprintf("snes: linear solve in iteration %d: %v", e.Iteration, e.Err)
}
func (e *LinearSolveError) Unwrap() error { return e.Err }
func (e *LinearSolveError) Cause() error  { return e.Err }
