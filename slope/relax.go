package slope

import (
	"github.com/cockroachdb/errors"
	"github.com/kshedden/sortedl1/glm"
)

// relax blends a standardized solution with an unpenalized refit that
// keeps its cluster structure: each nonzero cluster becomes a single
// covariate, the sum of its members' columns with their signs.  The
// returned coefficients are (1 - gamma) beta + gamma times the refit.
func (pr *problem) relax(beta, b0 []float64, gamma float64) ([]float64, []float64, error) {

	cl := newClusters(beta)
	nc := cl.nonzero()
	if nc == 0 && !pr.cfg.FitIntercept {
		return beta, b0, nil
	}

	xg := make([][][]float64, nc)
	for g := 0; g < nc; g++ {
		xg[g] = make([][]float64, pr.m)
		for _, k := range cl.members(g) {
			j, r := k%pr.p, k/pr.p
			if xg[g][r] == nil {
				xg[g][r] = make([]float64, pr.n)
			}
			s := 1.0
			if beta[k] < 0 {
				s = -1
			}
			pr.st.axpy(j, s, xg[g][r])
		}
	}

	rp := &glm.RefitProblem{
		Loss:      pr.loss,
		Y:         pr.y,
		X:         xg,
		Intercept: pr.cfg.FitIntercept,
	}

	var start []float64
	if pr.cfg.FitIntercept {
		start = append(start, b0...)
	}
	start = append(start, cl.coeffs[:nc]...)

	par, err := rp.Fit(start)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "relaxed refit on %d clusters", nc)
	}

	ni := 0
	rb0 := make([]float64, len(b0))
	copy(rb0, b0)
	if pr.cfg.FitIntercept {
		ni = pr.m
		copy(rb0, par[:ni])
	}

	rbeta := make([]float64, len(beta))
	for g := 0; g < nc; g++ {
		for _, k := range cl.members(g) {
			if beta[k] < 0 {
				rbeta[k] = -par[ni+g]
			} else {
				rbeta[k] = par[ni+g]
			}
		}
	}

	for k := range rbeta {
		rbeta[k] = (1-gamma)*beta[k] + gamma*rbeta[k]
	}
	for r := range rb0 {
		rb0[r] = (1-gamma)*b0[r] + gamma*rb0[r]
	}

	return rbeta, rb0, nil
}
