package slope

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLinearPredictor(t *testing.T) {

	x, _ := data1()
	coefs := mat.NewDense(3, 2, []float64{
		1, 0,
		0, -1,
		2, 0.5,
	})
	icept := []float64{0.5, -1}

	for _, xd := range []Design{DenseFromMatrix(x), CSCFromMatrix(x)} {
		eta := LinearPredictor(xd, coefs, icept)
		require.Len(t, eta, 2)
		for i := 0; i < 10; i++ {
			e0 := 0.5 + x.At(i, 0) + 2*x.At(i, 2)
			e1 := -1 - x.At(i, 1) + 0.5*x.At(i, 2)
			assert.InDelta(t, e0, eta[0][i], 1e-12)
			assert.InDelta(t, e1, eta[1][i], 1e-12)
		}
	}
}

func TestPredict(t *testing.T) {

	eta := [][]float64{{0, math.Log(3)}}

	mu, err := Predict(eta, "quadratic")
	require.NoError(t, err)
	assert.Equal(t, eta, mu)

	mu, err = Predict(eta, "logistic")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mu[0][0], 1e-12)
	assert.InDelta(t, 0.75, mu[0][1], 1e-12)

	mu, err = Predict(eta, "poisson")
	require.NoError(t, err)
	assert.InDelta(t, 1, mu[0][0], 1e-12)
	assert.InDelta(t, 3, mu[0][1], 1e-12)

	// Two classes against the reference, eta = log(p_k / p_ref).
	eta = [][]float64{{0}, {math.Log(2)}}
	mu, err = Predict(eta, "multinomial")
	require.NoError(t, err)
	require.Len(t, mu, 3)
	assert.InDelta(t, 0.25, mu[0][0], 1e-12)
	assert.InDelta(t, 0.5, mu[1][0], 1e-12)
	assert.InDelta(t, 0.25, mu[2][0], 1e-12)

	_, err = Predict(eta, "gamma")
	assert.Error(t, err)
}

func TestPredictClass(t *testing.T) {

	x, y := data1()
	xd := DenseFromMatrix(x)

	yb := make([]float64, 10)
	for i, v := range y[0] {
		if v > 1 {
			yb[i] = 1
		}
	}

	cfg := DefaultConfig()
	cfg.Loss = "logistic"
	rslt, err := Fit(xd, [][]float64{yb}, nil, 0.1, cfg)
	require.NoError(t, err)

	cls, err := rslt.PredictClass(xd)
	require.NoError(t, err)
	for _, c := range cls {
		assert.True(t, c == 0 || c == 1)
	}

	cfg = DefaultConfig()
	rq, err := Fit(xd, y, nil, 0.01, cfg)
	require.NoError(t, err)
	_, err = rq.PredictClass(xd)
	assert.Error(t, err)

	// Labels need not be 0, 1, ...
	ym := make([]float64, 10)
	for i, v := range y[0] {
		switch {
		case v < 0.5:
			ym[i] = 5
		case v < 1.5:
			ym[i] = 7
		default:
			ym[i] = 9
		}
	}
	cfg.Loss = "multinomial"
	rm, err := Fit(xd, [][]float64{ym}, nil, 0.1, cfg)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 7, 9}, rm.Classes)
	cls, err = rm.PredictClass(xd)
	require.NoError(t, err)
	for _, c := range cls {
		assert.Contains(t, []float64{5, 7, 9}, c)
	}
}

func TestSummaries(t *testing.T) {

	x, y := data1()
	pa, err := FitPath(DenseFromMatrix(x), y, nil, nil, DefaultConfig())
	require.NoError(t, err)

	s := pa.Summary().String()
	assert.True(t, strings.Contains(s, "SLOPE path"))
	assert.True(t, strings.Contains(s, "Null deviance"))

	s = pa.Step(pa.Len() - 1).Summary([]string{"a", "b", "c"}).String()
	assert.True(t, strings.Contains(s, "(intercept)"))
	assert.True(t, strings.Contains(s, "b"))
}
