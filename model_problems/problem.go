package model_problems

import (
	"fmt"
	"strings"

	"github.com/notargets/gosnes/ksp"
	"github.com/notargets/gosnes/utils"
)

// Problem is a nonlinear system F(x) = 0 with a hand coded Jacobian. The
// method values Residual and Jacobian plug directly into snes.NewNewtonLS.
type Problem interface {
	Name() string
	Size() int
	InitialGuess(x utils.Vector) error
	Residual(x, f utils.Vector) error
	Jacobian(x utils.Vector) (ksp.Operator, error)
}

var (
	ProblemNames = []string{
		"bratu",
		"rosenbrock",
		"freudenstein-roth",
	}
)

// NewProblem builds a problem by name. N and lambda are only used by Bratu.
func NewProblem(name string, N int, lambda float64) (p Problem, err error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bratu", "bratu1d":
		if N < 1 {
			return nil, fmt.Errorf("bratu needs at least one interior point, have N = %d", N)
		}
		p = NewBratu1D(N, lambda)
	case "rosenbrock":
		p = NewRosenbrock()
	case "freudenstein-roth", "freudensteinroth", "fr":
		p = NewFreudensteinRoth()
	default:
		err = fmt.Errorf("unknown problem %q, expected one of %v", name, ProblemNames)
	}
	return
}

func checkSize(p Problem, vs ...utils.Vector) {
	for _, v := range vs {
		if v.Len() != p.Size() {
			panic(fmt.Errorf("dimension mismatch: %s has size %d, len(v) = %d", p.Name(), p.Size(), v.Len()))
		}
	}
}
