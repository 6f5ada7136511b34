// Package simulate generates synthetic regression data for each of the
// losses supported by sortedl1.  The design columns are Gaussian with
// autoregressive correlation between neighboring columns, the leading
// coefficients are nonzero and the response is drawn from the model of
// the loss.
package simulate

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/kshedden/sortedl1/statmodel"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Config describes a simulated data set.
type Config struct {

	// Loss is one of quadratic, logistic, poisson and multinomial.
	Loss string `yaml:"loss"`

	N int `yaml:"n"`
	P int `yaml:"p"`

	// Nonzero is the number of leading columns with nonzero
	// coefficients.
	Nonzero int `yaml:"nonzero"`

	// Classes is the number of classes of a multinomial response.
	Classes int `yaml:"classes"`

	// Signal is the magnitude of the nonzero coefficients.
	Signal float64 `yaml:"signal"`

	// Noise is the standard deviation of the quadratic model errors.
	Noise float64 `yaml:"noise"`

	// Rho is the correlation between neighboring columns.
	Rho float64 `yaml:"rho"`

	Seed uint64 `yaml:"seed"`
}

// DefaultConfig returns a quadratic model with 100 observations, 30
// columns of which 5 are nonzero.
func DefaultConfig() Config {
	return Config{
		Loss:    "quadratic",
		N:       100,
		P:       30,
		Nonzero: 5,
		Classes: 3,
		Signal:  1,
		Noise:   1,
		Seed:    1,
	}
}

// Data is a simulated data set.
type Data struct {

	// X holds the design by column.
	X [][]float64

	// Y is the response, class labels 0, 1, ... for multinomial.
	Y []float64

	// Coef holds the true coefficients, p per linear predictor.
	Coef []float64
}

// Generate draws a data set.
func Generate(cfg Config) (*Data, error) {

	if cfg.N < 1 || cfg.P < 1 {
		return nil, errors.Newf("simulate: invalid dimensions %d x %d", cfg.N, cfg.P)
	}
	if cfg.Nonzero < 0 || cfg.Nonzero > cfg.P {
		return nil, errors.Newf("simulate: %d nonzero coefficients with %d columns", cfg.Nonzero, cfg.P)
	}
	if math.Abs(cfg.Rho) >= 1 {
		return nil, errors.Newf("simulate: correlation %v must lie in (-1, 1)", cfg.Rho)
	}

	rng := rand.NewSource(cfg.Seed)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}

	n, p := cfg.N, cfg.P
	x := make([][]float64, p)
	f := math.Sqrt(1 - cfg.Rho*cfg.Rho)
	for j := range x {
		x[j] = make([]float64, n)
		for i := range x[j] {
			x[j][i] = f * norm.Rand()
			if j > 0 {
				x[j][i] += cfg.Rho * x[j-1][i]
			}
		}
	}

	m := 1
	if cfg.Loss == "multinomial" {
		if cfg.Classes < 2 {
			return nil, errors.Newf("simulate: multinomial data needs at least 2 classes, got %d", cfg.Classes)
		}
		m = cfg.Classes - 1
	}

	sign := distuv.Bernoulli{P: 0.5, Src: rng}
	coef := make([]float64, p*m)
	for r := 0; r < m; r++ {
		for j := 0; j < cfg.Nonzero; j++ {
			c := cfg.Signal
			if sign.Rand() == 1 {
				c = -c
			}
			coef[j+r*p] = c
		}
	}

	eta := make([][]float64, m)
	for r := range eta {
		eta[r] = make([]float64, n)
		for j := 0; j < p; j++ {
			if c := coef[j+r*p]; c != 0 {
				for i := range eta[r] {
					eta[r][i] += c * x[j][i]
				}
			}
		}
	}

	y := make([]float64, n)
	switch cfg.Loss {
	case "quadratic":
		for i := range y {
			y[i] = eta[0][i] + cfg.Noise*norm.Rand()
		}
	case "logistic":
		for i := range y {
			y[i] = distuv.Bernoulli{P: 1 / (1 + math.Exp(-eta[0][i])), Src: rng}.Rand()
		}
	case "poisson":
		for i := range y {
			y[i] = distuv.Poisson{Lambda: math.Exp(eta[0][i]), Src: rng}.Rand()
		}
	case "multinomial":
		w := make([]float64, m+1)
		for i := range y {
			for r := 0; r < m; r++ {
				w[r] = math.Exp(eta[r][i])
			}
			w[m] = 1
			y[i] = distuv.NewCategorical(w, rng).Rand()
		}
	default:
		return nil, errors.Newf("simulate: unknown loss %q", cfg.Loss)
	}

	return &Data{X: x, Y: y, Coef: coef}, nil
}

// Dataset returns the data as a dataset with the response named "y" and
// the columns named x1, x2, ...
func (d *Data) Dataset() *statmodel.Dataset {
	data := [][]statmodel.Dtype{d.Y}
	names := []string{"y"}
	for j, col := range d.X {
		data = append(data, col)
		names = append(names, fmt.Sprintf("x%d", j+1))
	}
	return statmodel.NewDataset(data, names)
}
