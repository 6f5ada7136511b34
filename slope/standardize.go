package slope

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// standardized presents a design with centered and scaled columns,
// x~_j = (x_j - center_j) / scale_j, without modifying or densifying the
// stored values.
type standardized struct {
	x Design

	n, p int

	center []float64
	scale  []float64
}

// standardize computes the column centers and scales of x.  Scales that
// are zero are replaced by one so that constant columns stay finite.
func standardize(x Design, cen Centering, sca Scaling) *standardized {

	n, p := x.Dims()
	st := &standardized{
		x:      x,
		n:      n,
		p:      p,
		center: make([]float64, p),
		scale:  make([]float64, p),
	}

	fn := float64(n)
	for j := 0; j < p; j++ {
		cs := x.ColStats(j)
		mean := cs.Sum / fn

		switch cen {
		case CenterMean:
			st.center[j] = mean
		case CenterMin:
			st.center[j] = cs.Min
		}

		var s float64
		switch sca {
		case ScaleSD:
			s = math.Sqrt(math.Max(cs.SumSq/fn-mean*mean, 0))
		case ScaleL1:
			s = cs.AbsSum
		case ScaleL2:
			s = math.Sqrt(cs.SumSq)
		case ScaleMaxAbs:
			s = math.Max(math.Abs(cs.Min), math.Abs(cs.Max))
		default:
			s = 1
		}
		if s == 0 {
			s = 1
		}
		st.scale[j] = s
	}

	return st
}

// dot returns x~_j' v given sv = sum(v).
func (st *standardized) dot(j int, v []float64, sv float64) float64 {
	return (st.x.ColDot(j, v) - st.center[j]*sv) / st.scale[j]
}

// axpy adds a x~_j to v.
func (st *standardized) axpy(j int, a float64, v []float64) {
	if a == 0 {
		return
	}
	s := a / st.scale[j]
	st.x.ColAxpy(j, s, v)
	if c := st.center[j]; c != 0 {
		floats.AddConst(-s*c, v)
	}
}

// column writes x~_j into v.
func (st *standardized) column(j int, v []float64) {
	zero(v)
	st.axpy(j, 1, v)
}

// sqnorm returns sum_i x~_ij^2.
func (st *standardized) sqnorm(j int) float64 {
	sxx, sx := st.x.ColMoments(j, nil)
	c, s := st.center[j], st.scale[j]
	return (sxx - 2*c*sx + c*c*float64(st.n)) / (s * s)
}

// linpred adds the linear predictor of the standardized coefficients beta
// (p x m, coordinate j + r*p) to eta.
func (st *standardized) linpred(beta []float64, eta [][]float64) {
	for r := range eta {
		for j := 0; j < st.p; j++ {
			if b := beta[j+r*st.p]; b != 0 {
				st.axpy(j, b, eta[r])
			}
		}
	}
}

// gradient places -X~' res / n into g for the columns in cols, with g laid
// out by response then position in cols.
func (st *standardized) gradient(cols []int, res [][]float64, g []float64) {
	q := len(cols)
	fn := float64(st.n)
	for r := range res {
		sr := floats.Sum(res[r])
		for k, j := range cols {
			g[k+r*q] = -st.dot(j, res[r], sr) / fn
		}
	}
}

// unstandardize maps standardized coefficients and intercepts to the
// original scale of the design.
func (st *standardized) unstandardize(beta, b0 []float64) ([]float64, []float64) {
	coef := make([]float64, len(beta))
	icept := make([]float64, len(b0))
	copy(icept, b0)
	for r := range b0 {
		for j := 0; j < st.p; j++ {
			k := j + r*st.p
			coef[k] = beta[k] / st.scale[j]
			icept[r] -= st.center[j] * coef[k]
		}
	}
	return coef, icept
}

// restandardize is the inverse of unstandardize.
func (st *standardized) restandardize(coef, icept []float64) ([]float64, []float64) {
	beta := make([]float64, len(coef))
	b0 := make([]float64, len(icept))
	copy(b0, icept)
	for r := range icept {
		for j := 0; j < st.p; j++ {
			k := j + r*st.p
			beta[k] = coef[k] * st.scale[j]
			b0[r] += st.center[j] * coef[k]
		}
	}
	return beta, b0
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

func alloc(m, n int) [][]float64 {
	x := make([][]float64, m)
	for k := range x {
		x[k] = make([]float64, n)
	}
	return x
}
