package glm

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
)

// Multinomial is the multinomial logistic loss with K classes and K-1
// linear predictors.  The last class is the reference class, its linear
// predictor is fixed at zero.
type Multinomial struct {

	// Classes holds the sorted distinct labels seen by Response.
	Classes []float64
}

// NewMultinomial returns a multinomial loss.
func NewMultinomial() *Multinomial {
	return &Multinomial{}
}

// Name returns "multinomial".
func (m *Multinomial) Name() string {
	return "multinomial"
}

// Majorizer returns the curvature bound of the multinomial loss.
func (m *Multinomial) Majorizer() float64 {
	return 0.5
}

// Response encodes a single column of class labels as K-1 indicator
// columns.  Labels must be integers.
func (m *Multinomial) Response(y [][]float64) ([][]float64, error) {

	if len(y) != 1 {
		return nil, errors.Newf("multinomial loss requires a single column of class labels, got %d columns", len(y))
	}

	seen := make(map[float64]bool)
	for i, v := range y[0] {
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, errors.Newf("multinomial response: value %v at position %d is not an integer label", v, i)
		}
		seen[v] = true
	}

	var classes []float64
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Float64s(classes)
	if len(classes) < 2 {
		return nil, errors.New("multinomial response: at least two classes are required")
	}
	m.Classes = classes

	pos := make(map[float64]int)
	for k, v := range classes {
		pos[v] = k
	}

	nc := len(classes) - 1
	n := len(y[0])
	z := make([][]float64, nc)
	for k := range z {
		z[k] = make([]float64, n)
	}
	for i, v := range y[0] {
		if k := pos[v]; k < nc {
			z[k][i] = 1
		}
	}

	return z, nil
}

// logNorm returns log(1 + sum_k exp(eta_k)) for observation i.
func logNorm(eta [][]float64, i int) float64 {
	mx := 0.0
	for k := range eta {
		if eta[k][i] > mx {
			mx = eta[k][i]
		}
	}
	s := math.Exp(-mx)
	for k := range eta {
		s += math.Exp(eta[k][i] - mx)
	}
	return mx + math.Log(s)
}

// Loss returns the mean multinomial loss.
func (m *Multinomial) Loss(eta, y [][]float64) float64 {
	n := len(y[0])
	var f float64
	for i := 0; i < n; i++ {
		f += logNorm(eta, i)
		for k := range y {
			f -= y[k][i] * eta[k][i]
		}
	}
	return f / float64(n)
}

// Dual returns the mean dual objective, an entropy of the class
// probabilities y - theta.
func (m *Multinomial) Dual(theta, y [][]float64) float64 {
	n := len(y[0])
	var d float64
	for i := 0; i < n; i++ {
		t0 := 1.0
		for k := range y {
			t := y[k][i] - theta[k][i]
			t0 -= t
			d -= xlogx(t)
		}
		d -= xlogx(t0)
	}
	return d / float64(n)
}

// InvLink computes the class probabilities of the non-reference classes.
func (m *Multinomial) InvLink(eta, mu [][]float64) {
	n := len(eta[0])
	for i := 0; i < n; i++ {
		ln := logNorm(eta, i)
		for k := range eta {
			mu[k][i] = math.Exp(eta[k][i] - ln)
		}
	}
}

// Residual computes y - mu.
func (m *Multinomial) Residual(eta, y, r [][]float64) {
	m.InvLink(eta, r)
	for k := range y {
		for i, v := range y[k] {
			r[k][i] = v - r[k][i]
		}
	}
}

// Weights computes the diagonal IRLS weights mu(1-mu) and the working
// responses for each linear predictor.
func (m *Multinomial) Weights(eta, y, w, z [][]float64) {
	m.InvLink(eta, w)
	for k := range y {
		for i := range y[k] {
			p := clamp(w[k][i], pMin, pMax)
			w[k][i] = p * (1 - p)
			z[k][i] = eta[k][i] + (y[k][i]-p)/w[k][i]
		}
	}
}

// Deviance returns -2 times the log-likelihood.
func (m *Multinomial) Deviance(eta, y [][]float64) float64 {
	n := len(y[0])
	var dev float64
	for i := 0; i < n; i++ {
		ln := logNorm(eta, i)
		ll := -ln
		for k := range y {
			ll += y[k][i] * eta[k][i]
		}
		dev -= 2 * ll
	}
	return dev
}

// NullEta returns the log odds of each class against the reference class.
func (m *Multinomial) NullEta(y [][]float64, intercept bool) []float64 {
	eta := make([]float64, len(y))
	if !intercept {
		return eta
	}
	n := float64(len(y[0]))
	p0 := 1.0
	mn := make([]float64, len(y))
	for k := range y {
		for _, v := range y[k] {
			mn[k] += v
		}
		mn[k] = clamp(mn[k]/n, pMin, pMax)
		p0 -= mn[k]
	}
	p0 = clamp(p0, pMin, pMax)
	for k := range eta {
		eta[k] = math.Log(mn[k] / p0)
	}
	return eta
}
