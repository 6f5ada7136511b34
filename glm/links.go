package glm

import (
	"math"
)

// Link maps between the mean of a response and its linear predictor.
// The functions act on a single value; the methods apply them to slices.
type Link struct {
	Name string

	// Fwd maps a mean to the linear predictor.
	Fwd func(mu float64) float64

	// Inv maps a linear predictor to the mean.
	Inv func(eta float64) float64

	// Deriv is the derivative of Fwd with respect to the mean.
	Deriv func(mu float64) float64
}

// Invert places the means corresponding to eta into mu.
func (l *Link) Invert(eta, mu []float64) {
	for i, v := range eta {
		mu[i] = l.Inv(v)
	}
}

// Variance gives the variance of a response as a function of its mean,
// up to the dispersion.
type Variance func(mu float64) float64

// maxEta bounds linear predictors before exponentiation.
const maxEta = 300

var (
	identityLink = Link{
		Name:  "identity",
		Fwd:   func(mu float64) float64 { return mu },
		Inv:   func(eta float64) float64 { return eta },
		Deriv: func(float64) float64 { return 1 },
	}

	logitLink = Link{
		Name:  "logit",
		Fwd:   func(mu float64) float64 { return math.Log(mu / (1 - mu)) },
		Inv:   sigmoid,
		Deriv: func(mu float64) float64 { return 1 / (mu * (1 - mu)) },
	}

	logLink = Link{
		Name:  "log",
		Fwd:   math.Log,
		Inv:   clipExp,
		Deriv: func(mu float64) float64 { return 1 / mu },
	}
)

func constantVariance(float64) float64 { return 1 }

func binomialVariance(mu float64) float64 { return mu * (1 - mu) }

func poissonVariance(mu float64) float64 { return mu }

// sigmoid evaluates 1/(1+exp(-x)) without overflow.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// softplus evaluates log(1+exp(x)) without overflow.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

func clipExp(x float64) float64 {
	return math.Exp(clamp(x, -maxEta, maxEta))
}

// xlogx returns x*log(x), taken to be zero for x <= 0.
func xlogx(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return x * math.Log(x)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}
