package slope

import (
	"fmt"

	"github.com/kshedden/sortedl1/statmodel"
	"gonum.org/v1/gonum/mat"
)

// Diagnostics describes how a fit at one alpha terminated.
type Diagnostics struct {

	// Converged is false if the solver stopped at MaxIt.
	Converged bool

	// KKTViolation is set if screened-out columns still violated the
	// optimality conditions after the last retry.
	KKTViolation bool

	// Primal is the penalized objective and Gap the duality gap on the
	// standardized scale.  When alpha or lambda is zero there is no
	// feasible dual point and Gap is the largest absolute gradient
	// component instead.
	Primal float64
	Gap    float64
}

// FitResult is a SLOPE fit at a single alpha.  Coefficients are on the
// scale of the original design.
type FitResult struct {
	Diagnostics

	// Loss is the name of the loss that was fit.
	Loss string

	// Intercepts holds one intercept per linear predictor.
	Intercepts []float64

	// Coefs is p x m, column r holds the coefficients of linear
	// predictor r.
	Coefs *mat.Dense

	// Lambda is the penalty sequence that was used, sorted in
	// decreasing order.
	Lambda []float64

	Alpha float64

	// NIter is the number of solver passes, zero if the starting
	// point was already optimal.
	NIter int

	Deviance float64

	// Classes holds the class labels of a multinomial fit, the last
	// one is the reference class.
	Classes []float64
}

// PathResult holds the fits along a sequence of alphas.
type PathResult struct {
	Loss string

	// Intercepts[r][i] is the intercept of linear predictor r at
	// Alphas[i].
	Intercepts [][]float64

	// Coefs[i] is the p x m coefficient matrix at Alphas[i].
	Coefs []*mat.Dense

	Lambda []float64
	Alphas []float64

	Deviances    []float64
	DevRatios    []float64
	NullDeviance float64

	NIter        []int
	Primals      []float64
	Gaps         []float64
	Converged    []bool
	KKTViolation []bool

	Classes []float64

	p, m int
}

// Len returns the number of fitted alphas.
func (pa *PathResult) Len() int {
	return len(pa.Alphas)
}

// CoefArray returns the coefficients indexed by feature, linear
// predictor and path step.
func (pa *PathResult) CoefArray() [][][]float64 {
	z := make([][][]float64, pa.p)
	for j := range z {
		z[j] = make([][]float64, pa.m)
		for r := range z[j] {
			z[j][r] = make([]float64, pa.Len())
			for i, c := range pa.Coefs {
				z[j][r][i] = c.At(j, r)
			}
		}
	}
	return z
}

// Step returns the fit at path step i.
func (pa *PathResult) Step(i int) *FitResult {
	icept := make([]float64, pa.m)
	for r := range icept {
		icept[r] = pa.Intercepts[r][i]
	}
	return &FitResult{
		Diagnostics: Diagnostics{
			Converged:    pa.Converged[i],
			KKTViolation: pa.KKTViolation[i],
			Primal:       pa.Primals[i],
			Gap:          pa.Gaps[i],
		},
		Loss:       pa.Loss,
		Intercepts: icept,
		Coefs:      pa.Coefs[i],
		Lambda:     pa.Lambda,
		Alpha:      pa.Alphas[i],
		NIter:      pa.NIter[i],
		Deviance:   pa.Deviances[i],
		Classes:    pa.Classes,
	}
}

// Summary returns a table of the nonzero coefficients.  If names is nil
// the features are labeled x1, x2, ...
func (rslt *FitResult) Summary(names []string) *statmodel.SummaryTable {

	p, m := rslt.Coefs.Dims()

	var vars, resp []string
	var coefs []float64
	for r := 0; r < m; r++ {
		vars = append(vars, "(intercept)")
		resp = append(resp, fmt.Sprintf("%d", r+1))
		coefs = append(coefs, rslt.Intercepts[r])
		for j := 0; j < p; j++ {
			c := rslt.Coefs.At(j, r)
			if c == 0 {
				continue
			}
			na := fmt.Sprintf("x%d", j+1)
			if names != nil {
				na = names[j]
			}
			vars = append(vars, na)
			resp = append(resp, fmt.Sprintf("%d", r+1))
			coefs = append(coefs, c)
		}
	}

	return &statmodel.SummaryTable{
		Title:    "SLOPE fit",
		ColNames: []string{"Variable   ", "Response", "Coefficient"},
		ColFmt:   []statmodel.Fmter{statmodel.FmtStrings, statmodel.FmtStrings, statmodel.FmtFloats},
		Cols:     []interface{}{vars, resp, coefs},
		Top: []string{
			fmt.Sprintf("Loss:   %s", rslt.Loss),
			fmt.Sprintf("Alpha:  %.6g", rslt.Alpha),
			fmt.Sprintf("Passes: %d", rslt.NIter),
			fmt.Sprintf("Gap:    %.3g", rslt.Gap),
			fmt.Sprintf("Deviance: %.4f", rslt.Deviance),
			fmt.Sprintf("Converged: %t", rslt.Converged),
		},
	}
}

// Summary returns a table with one row per path step.
func (pa *PathResult) Summary() *statmodel.SummaryTable {

	var nz []int
	for _, c := range pa.Coefs {
		k := 0
		for _, v := range c.RawMatrix().Data {
			if v != 0 {
				k++
			}
		}
		nz = append(nz, k)
	}

	return &statmodel.SummaryTable{
		Title:    "SLOPE path",
		ColNames: []string{"Alpha", "Nonzero", "Deviance", "Dev. ratio", "Passes"},
		ColFmt: []statmodel.Fmter{statmodel.FmtFloats, statmodel.FmtInts, statmodel.FmtFloats,
			statmodel.FmtFloats, statmodel.FmtInts},
		Cols: []interface{}{pa.Alphas, nz, pa.Deviances, pa.DevRatios, pa.NIter},
		Top: []string{
			fmt.Sprintf("Loss:  %s", pa.Loss),
			fmt.Sprintf("Steps: %d", pa.Len()),
			fmt.Sprintf("Null deviance: %.4f", pa.NullDeviance),
		},
	}
}
