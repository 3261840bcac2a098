package model_problems

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gosnes/ksp"
	"github.com/notargets/gosnes/snes"
	"github.com/notargets/gosnes/utils"
)

func solve(t *testing.T, p Problem, kt ksp.Type, opts snes.Options, template utils.Vector) snes.Result {
	n := snes.NewNewtonLS(p.Residual, p.Jacobian, ksp.NewKSP(kt))
	n.SetFromOptions(opts)
	require.NoError(t, n.Setup(template))
	res, err := n.Solve(p.InitialGuess, 0)
	require.NoError(t, err, p.Name())
	return res
}

func TestNewProblem(t *testing.T) {
	for _, name := range ProblemNames {
		p, err := NewProblem(name, 10, 1)
		require.NoError(t, err, name)
		assert.NotEmpty(t, p.Name())
	}
	_, err := NewProblem("bratu", 0, 1)
	assert.Error(t, err)
	_, err = NewProblem("powell", 2, 0)
	assert.Error(t, err)
	p, _ := NewProblem("Rosenbrock", 0, 0)
	assert.Equal(t, 2, p.Size())
}

func TestJacobians(t *testing.T) {
	for _, p := range []Problem{NewBratu1D(10, 2), NewRosenbrock(), NewFreudensteinRoth()} {
		x := utils.NewVector(p.Size())
		require.NoError(t, p.InitialGuess(x))
		ratios, err := snes.TestJacobian(p.Residual, p.Jacobian, x, nil)
		require.NoError(t, err)
		for _, r := range ratios {
			assert.Less(t, r, 1.e-6, p.Name())
		}
	}
}

func TestBratu1D(t *testing.T) {
	var (
		N = 99
		b = NewBratu1D(N, 1)
	)
	{ // Guess is symmetric, positive and vanishes toward the walls
		x := utils.NewVector(N)
		require.NoError(t, b.InitialGuess(x))
		assert.Greater(t, x.Min(), 0.)
		assert.InDelta(t, x.AtVec(0), x.AtVec(N-1), 1.e-14)
		assert.Panics(t, func() { _ = b.InitialGuess(utils.NewVector(N + 1)) })
	}
	{ // Jacobian is tridiagonal
		x := utils.NewVector(N)
		A, err := b.Jacobian(x)
		require.NoError(t, err)
		assert.Equal(t, 3*N-2, A.(utils.CSR).NNZ())
		assert.InDelta(t, 2./(b.h*b.h)-1, A.At(5, 5), 1.e-9)
		assert.Equal(t, -1./(b.h*b.h), A.At(5, 6))
		assert.Zero(t, A.At(5, 7))
	}
	// Exact solution u(1/2) = 2 ln cosh(θ/4), θ = sqrt(2λ) cosh(θ/4)
	theta := 1.
	for i := 0; i < 100; i++ {
		theta = math.Sqrt2 * math.Cosh(theta/4)
	}
	umid := 2 * math.Log(math.Cosh(theta/4))
	for _, kt := range []ksp.Type{ksp.CG, ksp.PreOnly} {
		res := solve(t, b, kt, snes.DefaultOptions(), utils.NewVector(N))
		require.True(t, res.Reason.Converged(), "%s: %s", kt, res.Reason)
		u := res.Solution
		assert.InDelta(t, umid, u.AtVec(N/2), 1.e-3, kt.String())
		assert.InDelta(t, u.AtVec(10), u.AtVec(N-11), 1.e-8, kt.String())
		assert.Less(t, res.Iterations, 10, kt.String())
	}
	{ // Lambda = 0 is linear, the solution is zero
		res := solve(t, NewBratu1D(20, 0), ksp.PreOnly, snes.DefaultOptions(), utils.NewVector(20))
		require.True(t, res.Reason.Converged())
		assert.InDelta(t, 0., res.Solution.Norm2(), 1.e-12)
	}
	{
		bad := NewBratu1D(4, -1)
		x := utils.NewVector(4)
		assert.Error(t, bad.Residual(x, x.Duplicate()))
	}
}

func TestBratu1DCommunicator(t *testing.T) {
	var (
		N = 64
		b = NewBratu1D(N, 2)
	)
	x := utils.NewVector(N)
	require.NoError(t, b.InitialGuess(x))
	fs, fp := x.Duplicate(), x.Duplicate()
	require.NoError(t, b.Residual(x, fs))
	require.NoError(t, b.Residual(x.WithComm(utils.NewCommunicator(3)), fp))
	assert.Equal(t, fs.Data(), fp.Data())

	serial := solve(t, b, ksp.CG, snes.DefaultOptions(), utils.NewVector(N))
	dist := solve(t, b, ksp.CG, snes.DefaultOptions(), utils.NewVector(N).WithComm(utils.NewCommunicator(4)))
	require.True(t, serial.Reason.Converged())
	require.True(t, dist.Reason.Converged())
	assert.InDeltaSlice(t, serial.Solution.Data(), dist.Solution.Data(), 1.e-7)
}

func TestRosenbrock(t *testing.T) {
	for _, kind := range []snes.LineSearchKind{snes.LineSearchCubic, snes.LineSearchQuadratic} {
		opts := snes.DefaultOptions()
		opts.LineSearch = kind
		var lambdas []float64
		p := NewRosenbrock()
		n := snes.NewNewtonLS(p.Residual, p.Jacobian, ksp.NewKSP(ksp.PreOnly))
		n.SetFromOptions(opts)
		ls := n.LineSearch()
		// Record the accepted step lengths
		n.SetLineSearch(lineSearchFunc(func(residual snes.ResidualFunc, x, f, g, y, w utils.Vector, fnorm float64) (snes.LineSearchResult, error) {
			res, err := ls.Search(residual, x, f, g, y, w, fnorm)
			lambdas = append(lambdas, res.Lambda)
			return res, err
		}))
		require.NoError(t, n.Setup(utils.NewVector(2)))
		res, err := n.Solve(p.InitialGuess, 0)
		require.NoError(t, err)
		require.Equal(t, snes.ConvergedFnormAbs, res.Reason, kind.String())
		assert.InDeltaSlice(t, []float64{1, 1}, res.Solution.Data(), 1.e-8)
		// The first full step is rejected, the last ones are not
		assert.Less(t, lambdas[0], 1., kind.String())
		assert.Equal(t, 1., lambdas[len(lambdas)-1], kind.String())
	}
}

type lineSearchFunc func(residual snes.ResidualFunc, x, f, g, y, w utils.Vector, fnorm float64) (snes.LineSearchResult, error)

func (fn lineSearchFunc) Search(residual snes.ResidualFunc, x, f, g, y, w utils.Vector, fnorm float64) (snes.LineSearchResult, error) {
	return fn(residual, x, f, g, y, w, fnorm)
}

func TestFreudensteinRoth(t *testing.T) {
	p := NewFreudensteinRoth()
	{ // Root
		x := utils.NewVector(2, []float64{5, 4})
		f := x.Duplicate()
		require.NoError(t, p.Residual(x, f))
		assert.Equal(t, []float64{0, 0}, f.Data())
	}
	{ // Newton converges from nearby
		n := snes.NewNewtonLS(p.Residual, p.Jacobian, ksp.NewKSP(ksp.PreOnly))
		require.NoError(t, n.Setup(utils.NewVector(2)))
		res, err := n.Solve(func(x utils.Vector) error {
			copy(x.Data(), []float64{5.5, 3.8})
			return nil
		}, 0)
		require.NoError(t, err)
		require.True(t, res.Reason.Converged())
		assert.InDeltaSlice(t, []float64{5, 4}, res.Solution.Data(), 1.e-8)
	}
	{ // From the classic start the solve terminates with a definite reason
		n := snes.NewNewtonLS(p.Residual, p.Jacobian, nil)
		require.NoError(t, n.Setup(utils.NewVector(2)))
		res, err := n.Solve(p.InitialGuess, 100)
		if err == nil {
			assert.NotEqual(t, snes.ConvergedIterating, res.Reason)
			assert.LessOrEqual(t, res.Iterations, 100)
		}
	}
}
