package glm

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// RefitProblem is an unpenalized fit of a loss on a small set of derived
// covariates.  Covariate g contributes X[g][r] to the linear predictor
// of response column r, a nil X[g][r] contributes nothing.
type RefitProblem struct {

	// The loss to minimize
	Loss Loss

	// The working response, one column per linear predictor
	Y [][]float64

	// The covariates, indexed by covariate and then response column
	X [][][]float64

	// Include one intercept per response column
	Intercept bool

	// Optimization settings, defaults are used if nil
	Settings *optimize.Settings

	// Optimization method, BFGS is used if nil
	Method optimize.Method
}

// numParams returns the number of intercepts and the total number of
// parameters.
func (rp *RefitProblem) numParams() (int, int) {
	ni := 0
	if rp.Intercept {
		ni = len(rp.Y)
	}
	return ni, ni + len(rp.X)
}

func (rp *RefitProblem) linpred(params []float64, eta [][]float64) {
	ni, _ := rp.numParams()
	for r := range eta {
		b0 := 0.0
		if rp.Intercept {
			b0 = params[r]
		}
		for i := range eta[r] {
			eta[r][i] = b0
		}
	}
	for g, xg := range rp.X {
		c := params[ni+g]
		for r, x := range xg {
			if x != nil {
				floats.AddScaled(eta[r], c, x)
			}
		}
	}
}

// Fit minimizes the loss and returns the intercepts followed by the
// covariate coefficients.
func (rp *RefitProblem) Fit(start []float64) ([]float64, error) {

	ni, np := rp.numParams()
	m := len(rp.Y)
	n := len(rp.Y[0])

	eta := make([][]float64, m)
	res := make([][]float64, m)
	for r := range eta {
		eta[r] = make([]float64, n)
		res[r] = make([]float64, n)
	}

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			rp.linpred(x, eta)
			return rp.Loss.Loss(eta, rp.Y)
		},
		Grad: func(grad, x []float64) {
			rp.linpred(x, eta)
			rp.Loss.Residual(eta, rp.Y, res)
			zero(grad)
			if rp.Intercept {
				for r := range res {
					grad[r] = -floats.Sum(res[r]) / float64(n)
				}
			}
			for g, xg := range rp.X {
				for r, x := range xg {
					if x != nil {
						grad[ni+g] -= floats.Dot(x, res[r]) / float64(n)
					}
				}
			}
		},
	}

	if start == nil {
		start = make([]float64, np)
	}
	if len(start) != np {
		return nil, errors.Newf("refit: starting value has length %d, expected %d", len(start), np)
	}

	settings := rp.Settings
	if settings == nil {
		settings = &optimize.Settings{}
		settings.GradientThreshold = 1e-8
	}

	method := rp.Method
	if method == nil {
		method = &optimize.BFGS{}
	}

	optrslt, err := optimize.Minimize(p, start, settings, method)
	if err != nil {
		return nil, errors.Wrap(err, "refit: optimization failed")
	}
	if err = optrslt.Status.Err(); err != nil {
		return nil, errors.Wrapf(err, "refit: optimization ended with status %v", optrslt.Status)
	}

	return optrslt.X, nil
}
