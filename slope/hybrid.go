package slope

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// Number of times an IRLS step that increases the objective is
	// halved
	maxHalving = 20

	// Smallest step size tried by the line search
	minLearningRate = 1e-20

	// The weighted least squares subproblem is solved to this fraction
	// of the current relative gap
	innerTolFactor = 0.1

	// Passes allowed for one weighted least squares subproblem
	maxInnerPasses = 1000

	// The subproblem is abandoned after this many consecutive checks
	// at which its gap shrank by less than innerStallRatio
	maxInnerStalls  = 3
	innerStallRatio = 0.9
)

// solveResult reports on one solver call.
type solveResult struct {
	passes    int
	primal    float64
	gap       float64
	converged bool
}

// hybrid minimizes the penalized loss over the working set by iteratively
// reweighted least squares.  Each weighted least squares subproblem is
// solved by coordinate descent over the clusters, interleaved every
// PGDFreq iterations with a proximal gradient step that lets the
// clusters split.  The coefficients and intercepts are updated in place.
func (ws *workset) hybrid(beta, b0 []float64, maxPasses int) solveResult {

	pr := ws.pr
	cfg := pr.cfg
	n, m := pr.n, pr.m
	np := ws.size()

	eta := alloc(m, n)
	res := alloc(m, n)
	w := alloc(m, n)
	z := alloc(m, n)
	wres := alloc(m, n)
	g := make([]float64, np)

	cum := make([]float64, np+1)
	for i, v := range ws.lambda {
		cum[i+1] = cum[i] + v
	}

	sw := &sweep{
		ws:  ws,
		cl:  newClusters(beta),
		fc:  newFocus(ws),
		cum: cum,
	}

	betaOld := make([]float64, np)
	b0Old := make([]float64, m)
	prevPrimal := math.Inf(1)
	lr := 1.0

	var rslt solveResult

	// Every IRLS iteration takes at least one pass, so the pass budget
	// bounds the loop.
	for {

		primal, gap := ws.evaluate(beta, b0, eta, res, g)

		// An IRLS step that increases the objective is pulled back
		// towards the previous iterate.
		halved := false
		for k := 0; k < maxHalving && primal > prevPrimal+1e-10*math.Abs(prevPrimal); k++ {
			for i := range beta {
				beta[i] = (beta[i] + betaOld[i]) / 2
			}
			for r := range b0 {
				b0[r] = (b0[r] + b0Old[r]) / 2
			}
			primal, gap = ws.evaluate(beta, b0, eta, res, g)
			halved = true
		}
		if halved {
			sw.cl.rebuild(beta)
		}

		rslt.primal, rslt.gap = primal, gap
		if ws.converged(primal, gap, cfg.Tol) {
			rslt.converged = true
			return rslt
		}
		if rslt.passes >= maxPasses {
			return rslt
		}

		prevPrimal = primal
		copy(betaOld, beta)
		copy(b0Old, b0)

		pr.loss.Weights(eta, pr.y, w, z)
		for r := range wres {
			floats.SubTo(wres[r], z[r], eta[r])
		}

		// A subproblem solved only to the outer tolerance can leave
		// the iterate in place while the outer gap is still open.
		tolIn := cfg.Tol
		if ap := math.Abs(primal); ap > 0 && gap > 0 {
			tolIn = math.Min(tolIn, innerTolFactor*gap/ap)
		}

		// A subproblem that stops making progress is left to the next
		// IRLS iteration, whose weights are taken at a better point.
		prevGin := math.Inf(1)
		stalls := 0
		for it := 0; it < maxInnerPasses && rslt.passes < maxPasses; it++ {
			if it%cfg.PGDFreq == 0 {
				pin, gin := ws.innerGap(beta, b0, w, wres, g)
				if it > 0 {
					if ws.converged(pin, gin, tolIn) {
						break
					}
					if gin > innerStallRatio*prevGin {
						stalls++
					} else {
						stalls = 0
					}
					if stalls == maxInnerStalls {
						break
					}
				}
				prevGin = gin
				lr = ws.pgdStep(beta, b0, w, z, wres, g, pin-Norm(beta, ws.lambda), lr/cfg.LearningRateDecr)
				sw.cl.rebuild(beta)
			} else {
				sw.run(beta, b0, w, wres)
			}
			rslt.passes++
		}
	}
}

// innerGap returns the primal objective and duality gap of the weighted
// least squares subproblem (1/2n) sum w (z - eta)^2 + J(beta), where wres
// holds z - eta and eta = b0 + X~ beta.  The gap is expanded so that the
// working response does not enter it: where the weights are small z is
// large, and the dual objective would lose the gap to cancellation.
// Without a penalty the gap is replaced by the largest gradient
// component.  The gradient of the subproblem is left in g.
func (ws *workset) innerGap(beta, b0 []float64, w, wres [][]float64, g []float64) (float64, float64) {

	fn := float64(ws.pr.n)
	theta := alloc(ws.m, ws.pr.n)
	var f, tb float64
	for r := range theta {
		var st float64
		for i, v := range wres[r] {
			theta[r][i] = w[r][i] * v
			f += w[r][i] * v * v
			st += theta[r][i]
		}
		tb += b0[r] * st
	}
	smooth := f / (2 * fn)
	pen := Norm(beta, ws.lambda)
	primal := smooth + pen

	ws.gradient(theta, g)
	if ws.unpenalized() {
		return primal, ws.stationarity(theta, g)
	}
	s := math.Max(1, DualNorm(g, ws.lambda))

	// The dual point is theta/s.  Writing z = wres + eta the gap is
	// A (1-1/s)^2 + J(beta) - theta'eta / (n s), A the smooth part.
	u := 1 - 1/s
	gap := smooth*u*u + pen + (floats.Dot(g, beta)-tb/fn)/s

	return primal, gap
}

// pgdStep takes a proximal gradient step on the weighted least squares
// subproblem with a backtracking line search starting at lr.  The
// gradient at beta is in g and f0 is the smooth part of the objective.
// Intercepts are set to their optimal values for the new coefficients.
// It returns the accepted step size.
func (ws *workset) pgdStep(beta, b0 []float64, w, z, wres [][]float64, g []float64, f0, lr float64) float64 {

	pr := ws.pr
	fn := float64(pr.n)
	decr := pr.cfg.LearningRateDecr

	old := make([]float64, len(beta))
	copy(old, beta)
	v := make([]float64, len(beta))
	d := make([]float64, len(beta))

	for {
		for k := range v {
			v[k] = old[k] - lr*g[k]
		}
		copy(beta, Prox(v, scaledLambda(ws.lambda, lr)))

		for r := range wres {
			copy(wres[r], z[r])
		}
		for k, b := range beta {
			ws.pr.st.axpy(ws.col(k), -b, wres[ws.resp(k)])
		}
		for r := range wres {
			if pr.cfg.FitIntercept {
				b0[r] = floats.Dot(w[r], wres[r]) / floats.Sum(w[r])
			}
			floats.AddConst(-b0[r], wres[r])
		}

		var f float64
		for r := range wres {
			for i, u := range wres[r] {
				f += w[r][i] * u * u
			}
		}
		f /= 2 * fn

		floats.SubTo(d, beta, old)
		q := f0 + floats.Dot(d, g) + floats.Dot(d, d)/(2*lr)
		if sufficientDecrease(q, f) || lr < minLearningRate {
			break
		}
		lr *= decr
	}

	return lr
}

// sweep runs coordinate descent over the nonzero clusters of a
// weighted least squares subproblem.
type sweep struct {
	ws  *workset
	cl  *clusters
	fc  *focus
	cum []float64

	mags  []float64
	sizes []int
}

func (sw *sweep) run(beta, b0 []float64, w, wres [][]float64) {

	ws := sw.ws
	cfg := ws.pr.cfg
	cl := sw.cl

	nz := cl.nonzero()
	var order []int
	if cfg.HybridCDType == CDPermuted {
		order = ws.pr.rng.Perm(nz)
	} else {
		order = make([]int, nz)
		for k := range order {
			order[k] = k
		}
	}

	for _, k := range order {

		// Merges may have removed clusters.
		if k >= cl.nonzero() {
			continue
		}

		members := cl.members(k)
		cOld := cl.coeffs[k]

		sw.fc.set(members, beta)
		grad, h := sw.fc.derivs(w, wres)
		if h <= 0 {
			continue
		}

		sw.mags, sw.sizes = cl.others(k, sw.mags, sw.sizes)
		cNew := slopeThreshold(cOld-grad/h, len(members), sw.mags, sw.sizes, sw.cum, h)
		if cNew == cOld {
			continue
		}

		sw.fc.shift(cNew-cOld, wres)
		for _, j := range members {
			if beta[j] < 0 {
				beta[j] = -cNew
			} else {
				beta[j] = cNew
			}
		}
		cl.update(k, math.Abs(cNew), cfg.UpdateClusters)

		if cfg.FitIntercept {
			for r := range wres {
				d := floats.Dot(w[r], wres[r]) / floats.Sum(w[r])
				b0[r] += d
				floats.AddConst(-d, wres[r])
			}
		}
	}
}
