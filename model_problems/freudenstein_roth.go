package model_problems

import (
	"github.com/notargets/gosnes/ksp"
	"github.com/notargets/gosnes/utils"
)

/*
Freudenstein and Roth:

	F_1 = -13 + x_1 + ((5 - x_2) x_2 - 2) x_2
	F_2 = -29 + x_1 + ((x_2 + 1) x_2 - 14) x_2

The root is (5, 4). ||F|| also has a local minimum near (11.41, -0.8968)
where the Jacobian is singular, from the starting point (0.5, -2) Newton
iterates are drawn toward it and the line search stagnates.
*/
type FreudensteinRoth struct{}

func NewFreudensteinRoth() *FreudensteinRoth { return &FreudensteinRoth{} }

func (*FreudensteinRoth) Name() string { return "FreudensteinRoth" }
func (*FreudensteinRoth) Size() int    { return 2 }

func (p *FreudensteinRoth) InitialGuess(x utils.Vector) error {
	checkSize(p, x)
	copy(x.Data(), []float64{0.5, -2})
	return nil
}

func (p *FreudensteinRoth) Residual(x, f utils.Vector) error {
	checkSize(p, x, f)
	var (
		xd, fd = x.Data(), f.Data()
		x1, x2 = xd[0], xd[1]
	)
	fd[0] = -13 + x1 + ((5-x2)*x2-2)*x2
	fd[1] = -29 + x1 + ((x2+1)*x2-14)*x2
	return nil
}

func (p *FreudensteinRoth) Jacobian(x utils.Vector) (ksp.Operator, error) {
	checkSize(p, x)
	x2 := x.Data()[1]
	return utils.NewMatrix(2, 2, []float64{
		1, (10-3*x2)*x2 - 2,
		1, (3*x2+2)*x2 - 14,
	}), nil
}
