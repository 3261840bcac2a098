package model_problems

import (
	"github.com/notargets/gosnes/ksp"
	"github.com/notargets/gosnes/utils"
)

/*
Rosenbrock's function written as a 2x2 system:

	F_1 = 10 (x_2 - x_1²)
	F_2 = 1 - x_1

The root is (1, 1). From the classic starting point (-1.2, 1) the first full
Newton step increases ||F|| tenfold, so the line search has to backtrack.
*/
type Rosenbrock struct{}

func NewRosenbrock() *Rosenbrock { return &Rosenbrock{} }

func (*Rosenbrock) Name() string { return "Rosenbrock" }
func (*Rosenbrock) Size() int    { return 2 }

func (r *Rosenbrock) InitialGuess(x utils.Vector) error {
	checkSize(r, x)
	copy(x.Data(), []float64{-1.2, 1})
	return nil
}

func (r *Rosenbrock) Residual(x, f utils.Vector) error {
	checkSize(r, x, f)
	xd, fd := x.Data(), f.Data()
	fd[0] = 10 * (xd[1] - xd[0]*xd[0])
	fd[1] = 1 - xd[0]
	return nil
}

func (r *Rosenbrock) Jacobian(x utils.Vector) (ksp.Operator, error) {
	checkSize(r, x)
	xd := x.Data()
	return utils.NewMatrix(2, 2, []float64{
		-20 * xd[0], 10,
		-1, 0,
	}), nil
}
