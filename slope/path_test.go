package slope

import (
	"math"
	"testing"

	"github.com/kshedden/sortedl1/simulate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func pathData(t *testing.T, loss string) (*Dense, [][]float64) {

	t.Helper()

	cfg := simulate.DefaultConfig()
	cfg.Loss = loss
	cfg.Seed = 4
	d, err := simulate.Generate(cfg)
	require.NoError(t, err)

	x, err := NewDense(d.X)
	require.NoError(t, err)

	return x, [][]float64{d.Y}
}

func TestPathShapes(t *testing.T) {

	x, y := pathData(t, "quadratic")

	pa, err := FitPath(x, y, nil, nil, DefaultConfig())
	require.NoError(t, err)

	L := pa.Len()
	require.GreaterOrEqual(t, L, 1)
	require.LessOrEqual(t, L, 100)

	ca := pa.CoefArray()
	require.Len(t, ca, 30)
	for j := range ca {
		require.Len(t, ca[j], 1)
		require.Len(t, ca[j][0], L)
	}
	require.Len(t, pa.Intercepts, 1)
	require.Len(t, pa.Intercepts[0], L)

	for _, v := range [][]float64{pa.Deviances, pa.DevRatios, pa.Primals, pa.Gaps} {
		assert.Len(t, v, L)
	}
	assert.Len(t, pa.NIter, L)
	assert.Len(t, pa.Converged, L)
	assert.Len(t, pa.KKTViolation, L)

	// The first step is the null model.
	assert.Equal(t, 0.0, floats.Norm(pa.Coefs[0].RawMatrix().Data, 1))
	assert.InDelta(t, 0, pa.DevRatios[0], 1e-12)
	assert.InDelta(t, floats.Sum(y[0])/100, pa.Intercepts[0][0], 1e-12)

	for i := 1; i < L; i++ {
		assert.Less(t, pa.Alphas[i], pa.Alphas[i-1])
		// Deviance decreases along the path.
		assert.LessOrEqual(t, pa.Deviances[i], pa.Deviances[i-1]*(1+1e-3))
		assert.True(t, pa.Converged[i])
	}

	for i := 1; i < len(pa.Lambda); i++ {
		assert.LessOrEqual(t, pa.Lambda[i], pa.Lambda[i-1])
	}

	// The true nonzero columns are selected at the end of the path.
	last := pa.Coefs[L-1]
	for j := 0; j < 5; j++ {
		assert.NotEqual(t, 0.0, last.At(j, 0), "column %d", j)
	}

	st := pa.Step(L - 1)
	assert.Equal(t, pa.Alphas[L-1], st.Alpha)
	assert.Equal(t, pa.Intercepts[0][L-1], st.Intercepts[0])
}

// A geometric grid with the default ratio spans alpha max down to
// alpha max times the ratio.
func TestAlphaGrid(t *testing.T) {

	g := alphaGrid(2, 1e-2, 5)
	require.Len(t, g, 5)
	assert.Equal(t, 2.0, g[0])
	assert.InDelta(t, 0.02, g[4], 1e-14)
	for i := 1; i < 5; i++ {
		assert.InDelta(t, math.Pow(1e-2, 0.25), g[i]/g[i-1], 1e-12)
	}

	assert.Equal(t, []float64{3}, alphaGrid(3, 0.1, 1))
}

// The number of nonzero coefficients grows along the path and shrinkage
// is monotone for a single informative column.
func TestPathShrinkage(t *testing.T) {

	x, y := data1()
	cfg := tightConfig()
	cfg.PathLength = 20

	pa, err := FitPath(DenseFromMatrix(x), y, nil, nil, cfg)
	require.NoError(t, err)

	prev := -1
	var prevAbs float64
	for i := 0; i < pa.Len(); i++ {
		nz := 0
		for _, v := range pa.Coefs[i].RawMatrix().Data {
			if v != 0 {
				nz++
			}
		}
		assert.GreaterOrEqual(t, nz, prev, "step %d", i)
		prev = nz

		a := math.Abs(pa.Coefs[i].At(1, 0))
		assert.GreaterOrEqual(t, a, prevAbs-1e-8, "step %d", i)
		prevAbs = a
	}
}

func TestPathUserAlphas(t *testing.T) {

	x, y := pathData(t, "quadratic")
	cfg := DefaultConfig()
	cfg.Tol = 1e-8

	amax, err := AlphaMax(x, y, nil, cfg)
	require.NoError(t, err)

	alphas := []float64{amax, amax / 2, amax / 4, amax / 100, amax / 1000}
	pa, err := FitPath(x, y, nil, alphas, cfg)
	require.NoError(t, err)

	// A supplied sequence is fit in full.
	assert.Equal(t, alphas, pa.Alphas)

	// Each step matches a fit started from scratch.
	for i, a := range alphas {
		r, err := Fit(x, y, nil, a, cfg)
		require.NoError(t, err)
		assert.True(t, floats.EqualApprox(pa.Coefs[i].RawMatrix().Data, r.Coefs.RawMatrix().Data, 1e-3),
			"step %d", i)
	}
}

func TestPathDeterministic(t *testing.T) {

	x, y := pathData(t, "logistic")
	cfg := DefaultConfig()
	cfg.Loss = "logistic"
	cfg.HybridCDType = CDPermuted
	cfg.Seed = 11

	p1, err := FitPath(x, y, nil, nil, cfg)
	require.NoError(t, err)
	p2, err := FitPath(x, y, nil, nil, cfg)
	require.NoError(t, err)

	require.Equal(t, p1.Len(), p2.Len())
	for i := range p1.Coefs {
		assert.True(t, floats.Equal(p1.Coefs[i].RawMatrix().Data, p2.Coefs[i].RawMatrix().Data))
	}
	assert.Equal(t, p1.NIter, p2.NIter)
}

// Strong screening does not change the solutions.
func TestPathScreening(t *testing.T) {

	x, y := pathData(t, "quadratic")
	cfg := DefaultConfig()
	cfg.Tol = 1e-8
	cfg.PathLength = 20

	p1, err := FitPath(x, y, nil, nil, cfg)
	require.NoError(t, err)

	cfg.Screening = ScreenNone
	p2, err := FitPath(x, y, nil, p1.Alphas, cfg)
	require.NoError(t, err)

	for i := range p1.Coefs {
		assert.True(t, floats.EqualApprox(p1.Coefs[i].RawMatrix().Data, p2.Coefs[i].RawMatrix().Data, 1e-3),
			"step %d", i)
		assert.False(t, p1.KKTViolation[i])
	}
}

func TestPathLosses(t *testing.T) {

	for _, loss := range []string{"logistic", "poisson", "multinomial"} {

		scfg := simulate.DefaultConfig()
		scfg.Loss = loss
		scfg.Signal = 0.4
		scfg.Classes = 3
		d, err := simulate.Generate(scfg)
		require.NoError(t, err)
		x, err := NewDense(d.X)
		require.NoError(t, err)

		cfg := DefaultConfig()
		cfg.Loss = loss
		cfg.PathLength = 30

		pa, err := FitPath(x, [][]float64{d.Y}, nil, nil, cfg)
		require.NoError(t, err, loss)

		m := 1
		if loss == "multinomial" {
			m = 2
		}
		ca := pa.CoefArray()
		require.Len(t, ca, 30)
		require.Len(t, ca[0], m)
		require.Len(t, pa.Intercepts, m)

		for i := 0; i < pa.Len(); i++ {
			assert.False(t, math.IsNaN(pa.Deviances[i]), loss)
			assert.LessOrEqual(t, pa.DevRatios[i], 1.0, loss)
		}
		assert.Greater(t, pa.DevRatios[pa.Len()-1], 0.0, loss)
	}
}

// Relaxation with gamma = 1 gives the least squares fit on the cluster
// structure, which on a single cluster of nonzero coefficients is a
// regression on the signed sum of the columns.
func TestRelax(t *testing.T) {

	x, y := data1()
	cfg := DefaultConfig()
	cfg.Screening = ScreenNone
	cfg.LambdaType = LambdaLasso
	cfg.Tol = 1e-10

	pr, err := newProblem(DenseFromMatrix(x), y, []float64{1, 1, 1}, &cfg)
	require.NoError(t, err)

	beta := []float64{0.3, 0.3, -0.3}
	b0 := []float64{0.1}
	rb, rb0, err := pr.relax(beta, b0, 1)
	require.NoError(t, err)

	// All coefficients share a magnitude with their signs kept.
	assert.InDelta(t, rb[0], rb[1], 1e-12)
	assert.InDelta(t, rb[0], -rb[2], 1e-12)

	// Least squares on z = x1 + x2 - x3.
	z := make([]float64, pr.n)
	for j, s := range []float64{1, 1, -1} {
		pr.st.axpy(j, s, z)
	}
	var sz, szz, sy, szy float64
	for i, v := range z {
		sz += v
		szz += v * v
		sy += pr.y[0][i]
		szy += v * pr.y[0][i]
	}
	fn := float64(pr.n)
	slope := (szy - sz*sy/fn) / (szz - sz*sz/fn)
	icept := (sy - slope*sz) / fn

	assert.InDelta(t, slope, rb[0], 1e-6)
	assert.InDelta(t, icept, rb0[0], 1e-6)

	// Gamma = 0 returns the penalized solution.
	rb, rb0, err = pr.relax(beta, b0, 0)
	require.NoError(t, err)
	assert.Equal(t, beta, rb)
	assert.Equal(t, b0, rb0)
}

func TestPathRelaxed(t *testing.T) {

	x, y := pathData(t, "quadratic")
	cfg := DefaultConfig()
	cfg.PathLength = 20

	p0, err := FitPath(x, y, nil, nil, cfg)
	require.NoError(t, err)

	cfg.Gamma = 1
	p1, err := FitPath(x, y, nil, p0.Alphas, cfg)
	require.NoError(t, err)

	// The relaxed fits have lower deviance at the same sparsity.
	for i := range p0.Alphas {
		assert.LessOrEqual(t, p1.Deviances[i], p0.Deviances[i]*(1+1e-6), "step %d", i)
	}
}

// Each early stopping rule ends a generated path at the first step where
// it holds, with the steps before it identical to a full path.
func TestPathEarlyStop(t *testing.T) {

	x, y := pathData(t, "quadratic")
	n, p := x.Dims()

	base := DefaultConfig()
	base.PathLength = 30
	base.Centering = CenterNone
	base.Scaling = ScaleNone
	base.TolDevChange = 0
	base.TolDevRatio = 1
	base.MaxClusters = 1000

	amax, err := AlphaMax(x, y, nil, base)
	require.NoError(t, err)
	alphas := alphaGrid(amax, base.alphaMinRatio(n, p), base.PathLength)
	full, err := FitPath(x, y, nil, alphas, base)
	require.NoError(t, err)
	require.Equal(t, base.PathLength, full.Len())

	for _, tc := range []struct {
		name string
		set  func(*Config)
	}{
		{"deviance change", func(c *Config) { c.TolDevChange = 0.05 }},
		{"deviance ratio", func(c *Config) { c.TolDevRatio = 0.3 }},
		{"clusters", func(c *Config) { c.MaxClusters = 2 }},
	} {
		cfg := base
		tc.set(&cfg)

		// The rules as they apply to the full path
		want := full.Len()
		for i := 1; i < full.Len(); i++ {
			dev, prev := full.Deviances[i], full.Deviances[i-1]
			nclust := newClusters(full.Coefs[i].RawMatrix().Data).nonzero()
			if prev <= 0 || 1-dev/prev < cfg.TolDevChange || full.DevRatios[i] > cfg.TolDevRatio ||
				nclust > cfg.MaxClusters {
				want = i + 1
				break
			}
		}
		require.Less(t, want, full.Len(), tc.name)

		pa, err := FitPath(x, y, nil, nil, cfg)
		require.NoError(t, err)
		assert.Equal(t, want, pa.Len(), tc.name)
		assert.Equal(t, full.Alphas[:pa.Len()], pa.Alphas, tc.name)
		assert.Equal(t, full.Deviances[:pa.Len()], pa.Deviances, tc.name)
	}
}

// The default solver either converges on every step of a multinomial path
// or spends its whole pass budget.
func TestPathMultinomialConvergence(t *testing.T) {

	scfg := simulate.DefaultConfig()
	scfg.Loss = "multinomial"
	scfg.Signal = 0.5
	d, err := simulate.Generate(scfg)
	require.NoError(t, err)
	x, err := NewDense(d.X)
	require.NoError(t, err)
	y := [][]float64{d.Y}

	cfg := DefaultConfig()
	cfg.Loss = "multinomial"
	cfg.PathLength = 20
	cfg.MaxIt = 20000

	for _, solver := range []Solver{SolverHybrid, SolverFISTA} {
		cfg.Solver = solver
		pa, err := FitPath(x, y, nil, nil, cfg)
		require.NoError(t, err)

		nconv := 0
		for i := 0; i < pa.Len(); i++ {
			assert.True(t, pa.Converged[i] || pa.NIter[i] == cfg.MaxIt,
				"%s step %d: converged=%t passes=%d", solver, i, pa.Converged[i], pa.NIter[i])
			if pa.Converged[i] {
				nconv++
			}
		}
		assert.Equal(t, pa.Len(), nconv, solver)
	}
}
