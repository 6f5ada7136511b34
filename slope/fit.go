package slope

import (
	"math"
	"time"
)

// Fit fits SLOPE at a single alpha.  The response has one column per
// outcome; multinomial fits take a single column of integer class labels.
// An empty lambda is generated from cfg.LambdaType, otherwise it must have
// p times the number of linear predictors elements.
//
// Failure to converge is not an error, it is reported through
// Converged and NIter.  Invalid input returns an error marked with
// ErrValidation.
func Fit(x Design, y [][]float64, lambda []float64, alpha float64, cfg Config) (*FitResult, error) {

	start := time.Now()

	if alpha < 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, invalidf("alpha = %v must be finite and non-negative", alpha)
	}

	pr, err := newProblem(x, y, lambda, &cfg)
	if err != nil {
		return nil, err
	}

	pa, err := pr.path([]float64{alpha}, false)
	if err != nil {
		return nil, err
	}

	cfg.Metrics.Since("fit", start)
	return pa.Step(0), nil
}

// FitPath fits SLOPE along a decreasing sequence of alphas, warm starting
// each fit from the previous one.  If alphas is nil a geometric sequence
// of cfg.PathLength values is generated from the smallest alpha at which
// all coefficients are zero, and the path may stop early once further
// steps no longer improve the fit.  A caller supplied sequence is fit in
// full.
func FitPath(x Design, y [][]float64, lambda, alphas []float64, cfg Config) (*PathResult, error) {

	pr, err := newProblem(x, y, lambda, &cfg)
	if err != nil {
		return nil, err
	}

	return pr.path(alphas, alphas == nil)
}

// AlphaMax returns the smallest alpha at which all coefficients of the
// fit are zero.
func AlphaMax(x Design, y [][]float64, lambda []float64, cfg Config) (float64, error) {

	pr, err := newProblem(x, y, lambda, &cfg)
	if err != nil {
		return 0, err
	}

	return pr.alphaMax(), nil
}

// Objective evaluates the penalized objective of cfg at the coefficients
// and intercepts of rslt, on the same standardized scale as
// Diagnostics.Primal.  The fit need not have come from the same data,
// which makes this useful for scoring a model on new observations.
func Objective(x Design, y [][]float64, lambda []float64, rslt *FitResult, cfg Config) (float64, error) {

	pr, err := newProblem(x, y, lambda, &cfg)
	if err != nil {
		return 0, err
	}

	if r, c := rslt.Coefs.Dims(); r != pr.p || c != pr.m || len(rslt.Intercepts) != pr.m {
		return 0, invalidf("the fit has %d x %d coefficients, the problem needs %d x %d", r, c, pr.p, pr.m)
	}

	coef := make([]float64, pr.p*pr.m)
	for r := 0; r < pr.m; r++ {
		for j := 0; j < pr.p; j++ {
			coef[j+r*pr.p] = rslt.Coefs.At(j, r)
		}
	}
	beta, b0 := pr.st.restandardize(coef, rslt.Intercepts)

	eta := alloc(pr.m, pr.n)
	for r := range eta {
		for i := range eta[r] {
			eta[r][i] = b0[r]
		}
	}
	pr.st.linpred(beta, eta)

	return pr.loss.Loss(eta, pr.y) + Norm(beta, scaledLambda(pr.lambda, rslt.Alpha)), nil
}
