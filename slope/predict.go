package slope

import (
	"github.com/kshedden/sortedl1/glm"
	"gonum.org/v1/gonum/mat"
)

// LinearPredictor returns the linear predictors of the rows of x, one
// column per linear predictor.  Coefs is p x m on the scale of x.
func LinearPredictor(x Design, coefs *mat.Dense, intercepts []float64) [][]float64 {

	n, p := x.Dims()
	_, m := coefs.Dims()

	eta := alloc(m, n)
	for r := 0; r < m; r++ {
		for i := range eta[r] {
			eta[r][i] = intercepts[r]
		}
		for j := 0; j < p; j++ {
			if c := coefs.At(j, r); c != 0 {
				x.ColAxpy(j, c, eta[r])
			}
		}
	}

	return eta
}

// Predict maps linear predictors to the response scale of the named
// loss: the identity for quadratic, the sigmoid for logistic and the
// exponential for poisson.  For multinomial the result has one more
// column than eta, the probabilities of every class with the reference
// class last.
func Predict(eta [][]float64, loss string) ([][]float64, error) {

	lo, err := glm.NewLoss(loss)
	if err != nil {
		return nil, invalid(err, "predict")
	}
	if len(eta) == 0 {
		return nil, invalidf("predict: no linear predictors")
	}

	n := len(eta[0])
	mu := alloc(len(eta), n)
	lo.InvLink(eta, mu)

	if loss != "multinomial" {
		return mu, nil
	}

	ref := make([]float64, n)
	for i := range ref {
		ref[i] = 1
		for k := range mu {
			ref[i] -= mu[k][i]
		}
	}
	return append(mu, ref), nil
}

// LinearPredictor returns the linear predictors of the rows of x.
func (rslt *FitResult) LinearPredictor(x Design) [][]float64 {
	return LinearPredictor(x, rslt.Coefs, rslt.Intercepts)
}

// Predict returns the fitted means of the rows of x, see Predict.
func (rslt *FitResult) Predict(x Design) ([][]float64, error) {
	return Predict(rslt.LinearPredictor(x), rslt.Loss)
}

// PredictClass returns the most probable class label for each row of x
// of a logistic or multinomial fit.  Logistic fits predict 0 or 1.
func (rslt *FitResult) PredictClass(x Design) ([]float64, error) {

	mu, err := rslt.Predict(x)
	if err != nil {
		return nil, err
	}

	switch rslt.Loss {
	case "logistic":
		z := make([]float64, len(mu[0]))
		for i, v := range mu[0] {
			if v > 0.5 {
				z[i] = 1
			}
		}
		return z, nil
	case "multinomial":
		z := make([]float64, len(mu[0]))
		for i := range z {
			best := 0
			for k := range mu {
				if mu[k][i] > mu[best][i] {
					best = k
				}
			}
			z[i] = rslt.Classes[best]
		}
		return z, nil
	default:
		return nil, invalidf("class prediction needs a logistic or multinomial fit, not %s", rslt.Loss)
	}
}
