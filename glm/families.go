package glm

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
)

// Loss is the interface satisfied by the objectives that can be
// penalized.  Linear predictors, responses and residuals are stored by
// column, one column per linear predictor.  Values are averaged over the
// observations.
type Loss interface {

	// Name returns the name of the loss, e.g. "logistic".
	Name() string

	// Response checks the raw response and returns the working
	// response used by the other methods.
	Response(y [][]float64) ([][]float64, error)

	// Loss returns the mean loss at the linear predictor.
	Loss(eta, y [][]float64) float64

	// Dual returns the Fenchel dual objective at the dual point theta.
	Dual(theta, y [][]float64) float64

	// Residual places the generalized residual y - mu into r.
	Residual(eta, y, r [][]float64)

	// Weights places the IRLS weights into w and the working
	// response into z.
	Weights(eta, y, w, z [][]float64)

	// Deviance returns the deviance at the linear predictor.
	Deviance(eta, y [][]float64) float64

	// NullEta returns the linear predictor of the intercept-only
	// model, one value per column, or zeros if intercept is false.
	NullEta(y [][]float64, intercept bool) []float64

	// InvLink maps linear predictors to the response scale.
	InvLink(eta, mu [][]float64)

	// Majorizer returns an upper bound on the curvature of the loss
	// with respect to the linear predictor.  It is +Inf when no
	// global bound exists.
	Majorizer() float64
}

// FamilyType is the type of GLM family used in a model.
type FamilyType uint8

// GaussianFamily, ... are families for a GLM.
const (
	GaussianFamily FamilyType = iota
	BinomialFamily
	PoissonFamily
	MultinomialFamily
)

// Bounds applied to fitted probabilities before forming IRLS weights.
const (
	pMin = 1e-9
	pMax = 1 - pMin
)

// DevianceFunc evaluates and returns the deviance for a GLM.  The
// arguments are the data and the mean values.
type DevianceFunc func([]float64, []float64) float64

// Family represents a single-response generalized linear model family
// with its canonical link.
type Family struct {

	// The name of the loss
	name string

	// The numeric code for the family
	TypeCode FamilyType

	// The canonical link of the family
	Link *Link

	// The variance function of the family
	Variance Variance

	// The deviance function for the family
	devFunc DevianceFunc

	// Per-observation loss given the response and linear predictor
	loss func(y, eta float64) float64

	// Per-observation dual objective given the response and dual
	// variable
	dual func(y, theta float64) float64

	// Domain check for the response
	check func(y []float64) error

	// Curvature bound
	majorizer float64

	// Fitted means are clamped to [muLo, muHi] when forming IRLS
	// weights.
	muLo, muHi float64
}

// NewFamily returns a family object corresponding to the given type.
// The multinomial family is provided by NewMultinomial.
func NewFamily(fam FamilyType) *Family {

	switch fam {
	case GaussianFamily:
		return &gaussian
	case BinomialFamily:
		return &binomial
	case PoissonFamily:
		return &poisson
	default:
		msg := fmt.Sprintf("Unknown family: %v\n", fam)
		panic(msg)
	}
}

// NewLoss returns the loss with the given name, one of quadratic,
// logistic, poisson and multinomial.
func NewLoss(name string) (Loss, error) {
	switch name {
	case "quadratic":
		return NewFamily(GaussianFamily), nil
	case "logistic":
		return NewFamily(BinomialFamily), nil
	case "poisson":
		return NewFamily(PoissonFamily), nil
	case "multinomial":
		return NewMultinomial(), nil
	default:
		return nil, errors.Newf("unknown loss %q", name)
	}
}

var gaussian = Family{
	name:      "quadratic",
	TypeCode:  GaussianFamily,
	Link:      &identityLink,
	Variance:  constantVariance,
	devFunc:   gaussianDeviance,
	loss: func(y, eta float64) float64 {
		r := y - eta
		return r * r / 2
	},
	dual: func(y, theta float64) float64 {
		r := y - theta
		return (y*y - r*r) / 2
	},
	check:     checkFinite,
	majorizer: 1,
	muLo:      math.Inf(-1),
	muHi:      math.Inf(1),
}

var binomial = Family{
	name:      "logistic",
	TypeCode:  BinomialFamily,
	Link:      &logitLink,
	Variance:  binomialVariance,
	devFunc:   binomialDeviance,
	loss: func(y, eta float64) float64 {
		return softplus(eta) - y*eta
	},
	dual: func(y, theta float64) float64 {
		t := clamp(y-theta, 0, 1)
		return -(xlogx(t) + xlogx(1-t))
	},
	check:     checkBinary,
	majorizer: 0.25,
	muLo:      pMin,
	muHi:      pMax,
}

var poisson = Family{
	name:      "poisson",
	TypeCode:  PoissonFamily,
	Link:      &logLink,
	Variance:  poissonVariance,
	devFunc:   poissonDeviance,
	loss: func(y, eta float64) float64 {
		return clipExp(eta) - y*eta
	},
	dual: func(y, theta float64) float64 {
		t := y - theta
		return -(xlogx(t) - t)
	},
	check:     checkCount,
	majorizer: math.Inf(1),
	muLo:      pMin,
	muHi:      math.Inf(1),
}

// Name returns the name of the loss.
func (fam *Family) Name() string {
	return fam.name
}

// Majorizer returns the curvature bound of the loss.
func (fam *Family) Majorizer() float64 {
	return fam.majorizer
}

// Response checks that y has a single column in the domain of the family.
func (fam *Family) Response(y [][]float64) ([][]float64, error) {
	if len(y) != 1 {
		return nil, errors.Newf("%s loss requires a single response column, got %d", fam.name, len(y))
	}
	if err := fam.check(y[0]); err != nil {
		return nil, errors.Wrapf(err, "%s response", fam.name)
	}
	return y, nil
}

// Loss returns the mean loss.
func (fam *Family) Loss(eta, y [][]float64) float64 {
	var f float64
	for i, v := range y[0] {
		f += fam.loss(v, eta[0][i])
	}
	return f / float64(len(y[0]))
}

// Dual returns the mean dual objective.
func (fam *Family) Dual(theta, y [][]float64) float64 {
	var d float64
	for i, v := range y[0] {
		d += fam.dual(v, theta[0][i])
	}
	return d / float64(len(y[0]))
}

// Residual computes y - mu.
func (fam *Family) Residual(eta, y, r [][]float64) {
	fam.Link.Invert(eta[0], r[0])
	for i, v := range y[0] {
		r[0][i] = v - r[0][i]
	}
}

// InvLink maps the linear predictor to the mean.
func (fam *Family) InvLink(eta, mu [][]float64) {
	fam.Link.Invert(eta[0], mu[0])
}

// Deviance returns the deviance at the linear predictor.
func (fam *Family) Deviance(eta, y [][]float64) float64 {
	mu := make([]float64, len(eta[0]))
	fam.Link.Invert(eta[0], mu)
	if fam.TypeCode == BinomialFamily {
		for i := range mu {
			mu[i] = clamp(mu[i], pMin, pMax)
		}
	}
	return fam.devFunc(y[0], mu)
}

// NullEta returns the linear predictor of the intercept-only fit.
func (fam *Family) NullEta(y [][]float64, intercept bool) []float64 {
	if !intercept {
		return []float64{0}
	}
	mu := clamp(floats.Sum(y[0])/float64(len(y[0])), fam.muLo, fam.muHi)
	return []float64{fam.Link.Fwd(mu)}
}

func checkFinite(y []float64) error {
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf("non-finite value at position %d", i)
		}
	}
	return nil
}

func checkBinary(y []float64) error {
	for i, v := range y {
		if v != 0 && v != 1 {
			return errors.Newf("value %v at position %d is not 0 or 1", v, i)
		}
	}
	return nil
}

func checkCount(y []float64) error {
	for i, v := range y {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf("value %v at position %d is not a non-negative number", v, i)
		}
	}
	return nil
}

func gaussianDeviance(y []float64, mn []float64) float64 {
	var dev float64
	for i := range y {
		r := y[i] - mn[i]
		dev += r * r
	}
	return dev
}

func binomialDeviance(y []float64, mn []float64) float64 {
	var dev float64
	for i := range y {
		dev -= 2 * (y[i]*math.Log(mn[i]) + (1-y[i])*math.Log(1-mn[i]))
	}
	return dev
}

func poissonDeviance(y []float64, mn []float64) float64 {
	var dev float64
	for i := range y {
		if y[i] > 0 {
			dev += 2 * y[i] * math.Log(y[i]/mn[i])
		}
		dev -= 2 * (y[i] - mn[i])
	}
	return dev
}
