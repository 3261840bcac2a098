package snes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notargets/gosnes/utils"
)

// shifted is F(x) = x - t, with an evaluation counter
type shifted struct {
	t     utils.Vector
	evals int
}

func (s *shifted) residual(x, f utils.Vector) error {
	s.evals++
	f.WAXPY(-1, s.t, x)
	return nil
}

// arctan is F_i(x) = atan(x_i), whose Newton step overshoots far from 0
func arctan(x, f utils.Vector) error {
	for i, xi := range x.Data() {
		f.Data()[i] = math.Atan(xi)
	}
	return nil
}

type lsVectors struct {
	x, f, g, y, w utils.Vector
}

func newLSVectors(x, y []float64, residual ResidualFunc) (v lsVectors) {
	n := len(x)
	v.x, v.y = utils.NewVector(n, x), utils.NewVector(n, y)
	v.f, v.g, v.w = utils.NewVector(n), utils.NewVector(n), utils.NewVector(n)
	if err := residual(v.x, v.f); err != nil {
		panic(err)
	}
	return
}

func allSearches(logger *zap.Logger) map[string]LineSearch {
	p := DefaultOptions().LineSearchParams()
	p.Logger = logger
	return map[string]LineSearch{
		"quadratic": NewLineSearch(LineSearchQuadratic, p),
		"cubic":     NewLineSearch(LineSearchCubic, p),
	}
}

func TestFullStep(t *testing.T) {
	s := &shifted{t: utils.NewVector(2, []float64{3, 4})}
	v := newLSVectors([]float64{1, 1}, []float64{1, 1}, s.residual)
	s.evals = 0
	res, err := (&FullStep{}).Search(s.residual, v.x, v.f, v.g, v.y, v.w, v.f.Norm2())
	require.NoError(t, err)
	assert.Equal(t, 1, s.evals)
	assert.True(t, res.Succeeded)
	assert.Equal(t, 1., res.Lambda)
	assert.InDelta(t, math.Sqrt2, res.Ynorm, 1.e-15)
	assert.Equal(t, []float64{2, 2}, v.y.Data())
	assert.Equal(t, []float64{-1, -2}, v.g.Data())
	assert.InDelta(t, math.Sqrt(5), res.Gnorm, 1.e-15)
	// x is untouched
	assert.Equal(t, []float64{1, 1}, v.x.Data())
}

func TestLineSearchAcceptsNewtonStep(t *testing.T) {
	for name, ls := range allSearches(nil) {
		s := &shifted{t: utils.NewVector(2, []float64{3, 4})}
		// Exact Newton direction t - x
		v := newLSVectors([]float64{1, 1}, []float64{2, 3}, s.residual)
		s.evals = 0
		res, err := ls.Search(s.residual, v.x, v.f, v.g, v.y, v.w, v.f.Norm2())
		require.NoError(t, err, name)
		assert.Equal(t, 1, s.evals, name)
		assert.True(t, res.Succeeded, name)
		assert.Equal(t, 1., res.Lambda, name)
		assert.Equal(t, []float64{1}, res.Trials, name)
		assert.Equal(t, []float64{3, 4}, v.y.Data(), name)
		assert.Equal(t, 0., res.Gnorm, name)
	}
}

func TestLineSearchMaxStep(t *testing.T) {
	for name, ls := range allSearches(nil) {
		s := &shifted{t: utils.NewVector(2, []float64{1.e8, 0})}
		// Twice the Newton step
		v := newLSVectors([]float64{0, 0}, []float64{2.e8, 0}, s.residual)
		res, err := ls.Search(s.residual, v.x, v.f, v.g, v.y, v.w, v.f.Norm2())
		require.NoError(t, err, name)
		assert.Equal(t, 1.e8, res.Ynorm, name)
		assert.Equal(t, -1.e16, res.InitSlope, name)
		// alpha*initslope outweighs fnorm, no step length is sufficient
		assert.False(t, res.Succeeded, name)
		assert.Greater(t, len(res.Trials), 1, name)
		checkTrials(t, name, res.Trials)
		// The accepted point lies along the rescaled direction
		assert.InEpsilon(t, res.Lambda*1.e8, v.y.AtVec(0), 1.e-12, name)
		assert.Zero(t, v.y.AtVec(1), name)
	}
	{ // A short maximum step still allows the full rescaled step
		p := DefaultOptions().LineSearchParams()
		p.MaxStep = 1
		for _, kind := range []LineSearchKind{LineSearchQuadratic, LineSearchCubic} {
			s := &shifted{t: utils.NewVector(2, []float64{1, 0})}
			v := newLSVectors([]float64{0, 0}, []float64{2, 0}, s.residual)
			res, err := NewLineSearch(kind, p).Search(s.residual, v.x, v.f, v.g, v.y, v.w, v.f.Norm2())
			require.NoError(t, err, kind.String())
			assert.Equal(t, 1., res.Ynorm, kind.String())
			assert.Equal(t, -1., res.InitSlope, kind.String())
			assert.True(t, res.Succeeded, kind.String())
			assert.Equal(t, []float64{1}, res.Trials, kind.String())
			assert.Equal(t, []float64{1, 0}, v.y.Data(), kind.String())
			assert.Equal(t, 0., res.Gnorm, kind.String())
		}
	}
}

func TestLineSearchNonFiniteDirection(t *testing.T) {
	for name := range allSearches(nil) {
		core, logs := observer.New(zap.InfoLevel)
		ls := allSearches(zap.New(core))[name]
		s := &shifted{t: utils.NewVector(2, []float64{3, 4})}
		v := newLSVectors([]float64{1, 1}, []float64{math.NaN(), 1}, s.residual)
		s.evals = 0
		res, err := ls.Search(s.residual, v.x, v.f, v.g, v.y, v.w, v.f.Norm2())
		require.NoError(t, err, name)
		assert.False(t, res.Succeeded, name)
		assert.Equal(t, 1, s.evals, name)
		assert.Equal(t, []float64{1}, res.Trials, name)
		assert.True(t, math.IsNaN(res.Gnorm), name)
		assert.Equal(t, 1, logs.FilterMessage("search direction is not finite").Len(), name)
	}
}

func TestLineSearchFallback(t *testing.T) {
	for name := range allSearches(nil) {
		core, logs := observer.New(zap.InfoLevel)
		ls := allSearches(zap.New(core))[name]
		// F(x) = x at x = 1 with an uphill direction, no step length decreases ||F||
		s := &shifted{t: utils.NewVector(1)}
		v := newLSVectors([]float64{1}, []float64{0.3}, s.residual)
		fnorm := v.f.Norm2()
		res, err := ls.Search(s.residual, v.x, v.f, v.g, v.y, v.w, fnorm)
		require.NoError(t, err, name)
		assert.Equal(t, -0.3, res.InitSlope, name)
		assert.False(t, res.Succeeded, name)
		minLambda := 1.e-12 / res.Ynorm
		assert.LessOrEqual(t, res.Lambda, minLambda, name)
		assert.Equal(t, res.Lambda, res.Trials[len(res.Trials)-1], name)
		// The last trial is accepted anyway
		assert.InDelta(t, 1+0.3*res.Lambda, v.y.AtVec(0), 1.e-15, name)
		assert.Equal(t, v.g.Norm2(), res.Gnorm, name)
		assert.Greater(t, res.Gnorm, fnorm+1.e-4*res.InitSlope, name)
		assert.Equal(t, 1, logs.FilterMessage("unable to find good step length").Len(), name)
		checkTrials(t, name, res.Trials)
	}
}

func TestLineSearchBacktrack(t *testing.T) {
	for name := range allSearches(nil) {
		core, logs := observer.New(zap.InfoLevel)
		ls := allSearches(zap.New(core))[name]
		for _, x0 := range []float64{3, 4, 10, -20} {
			// Newton direction for atan
			v := newLSVectors([]float64{x0, -x0 / 2}, []float64{0, 0}, arctan)
			for i, xi := range v.x.Data() {
				v.y.Data()[i] = -math.Atan(xi) * (1 + xi*xi)
			}
			fnorm := v.f.Norm2()
			res, err := ls.Search(arctan, v.x, v.f, v.g, v.y, v.w, fnorm)
			require.NoError(t, err, name)
			require.True(t, res.Succeeded, "%s x0 = %v", name, x0)
			assert.LessOrEqual(t, res.Gnorm, fnorm+1.e-4*res.InitSlope, name)
			assert.Less(t, res.InitSlope, 0., name)
			assert.Equal(t, res.Lambda, res.Trials[len(res.Trials)-1], name)
			// g is the residual at the accepted iterate held in y
			g := utils.NewVector(2)
			require.NoError(t, arctan(v.y, g))
			assert.Equal(t, g.Data(), v.g.Data(), name)
			checkTrials(t, name, res.Trials)
		}
		// Newton overshoots for |x| > 1.4, so the full step is always rejected
		assert.Zero(t, logs.FilterMessage("using full step").Len(), name)
		determined := logs.FilterMessage("quadratically determined step").Len() +
			logs.FilterMessage("cubically determined step").Len()
		assert.Positive(t, determined, name)
	}
}

// checkTrials asserts the step lengths start at 1 and shrink by a factor
// within [0.1, 0.5] on every backtrack.
func checkTrials(t *testing.T, name string, trials []float64) {
	t.Helper()
	require.NotEmpty(t, trials, name)
	assert.Equal(t, 1., trials[0], name)
	for i := 1; i < len(trials); i++ {
		ratio := trials[i] / trials[i-1]
		assert.GreaterOrEqual(t, ratio, 0.1-1.e-15, "%s trial %d", name, i)
		assert.LessOrEqual(t, ratio, 0.5+1.e-15, "%s trial %d", name, i)
	}
}

func TestLineSearchHelpers(t *testing.T) {
	assert.Equal(t, -0.3, forceDescent(0.3))
	assert.Equal(t, -1., forceDescent(0))
	assert.Equal(t, -2., forceDescent(-2))

	assert.Equal(t, 0.5, clampLambda(0.9, 1))
	assert.Equal(t, 0.1, clampLambda(0.01, 1))
	assert.Equal(t, 0.3, clampLambda(0.3, 1))
	assert.Equal(t, 0.5, clampLambda(math.NaN(), 1))
	assert.Equal(t, 0.05, clampLambda(-1, 0.5))

	// At lambda = 1 the model step is -s/(2(g - f - s))
	assert.Equal(t, 0.25, quadraticStep(-1, 1, 2, 1))
	// A cubic through values of the quadratic q(l) = 1 - l + l^2 recovers
	// the quadratic minimizer at 1/2
	q := func(l float64) float64 { return 1 - l + l*l }
	assert.InDelta(t, 0.5, cubicStep(-1, 1, q(0.5), 0.5, q(1), 1), 1.e-12)
	// and for a true cubic c(l) = 1 - l + l^3 the minimizer is 1/sqrt(3)
	c := func(l float64) float64 { return 1 - l + l*l*l }
	assert.InDelta(t, 1/math.Sqrt(3), cubicStep(-1, 1, c(0.5), 0.5, c(1), 1), 1.e-12)
}
