package slope

import (
	"math"
	"time"

	"github.com/kshedden/sortedl1/glm"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// pathState carries the warm start between alphas, on the standardized
// scale.
type pathState struct {
	beta  []float64
	b0    []float64
	grad  []float64
	alpha float64
}

// stepInfo reports on the fit at one alpha.
type stepInfo struct {
	passes       int
	primal       float64
	gap          float64
	converged    bool
	kktViolation bool
	retries      int
	active       int
}

// initState returns the intercept-only solution, which solves the
// problem at alpha max.
func (pr *problem) initState(alphaMax float64) *pathState {
	b0, res := pr.nullModel()
	return &pathState{
		beta:  make([]float64, pr.p*pr.m),
		b0:    b0,
		grad:  pr.fullGradient(res),
		alpha: alphaMax,
	}
}

func (ws *workset) solve(beta, b0 []float64, maxPasses int) solveResult {
	switch ws.pr.cfg.Solver {
	case SolverPGD:
		return ws.pgd(beta, b0, maxPasses, false)
	case SolverFISTA:
		return ws.pgd(beta, b0, maxPasses, true)
	default:
		return ws.hybrid(beta, b0, maxPasses)
	}
}

// step solves the problem at alpha starting from ps, which is updated to
// the solution.  With strong screening the solver runs on the screened
// columns and is repeated with any columns violating the KKT conditions
// added.
func (pr *problem) step(ps *pathState, alpha float64) stepInfo {

	cfg := pr.cfg

	// Without a penalty every column is active.
	screening := cfg.Screening == ScreenStrong && alpha > 0 && pr.lambda[0] > 0

	var cols []int
	if screening {
		cols = pr.screen(ps.grad, ps.beta, ps.alpha, alpha)
	} else {
		cols = pr.allCols()
	}

	var info stepInfo
	eta := alloc(pr.m, pr.n)
	res := alloc(pr.m, pr.n)

	for {
		ws := pr.newWorkset(cols, alpha)
		wb := ws.gather(ps.beta)
		rslt := ws.solve(wb, ps.b0, cfg.MaxIt-info.passes)
		ws.scatter(wb, ps.beta)

		info.passes += rslt.passes
		info.primal, info.gap, info.converged = rslt.primal, rslt.gap, rslt.converged

		ws.linpred(wb, ps.b0, eta)
		pr.loss.Residual(eta, pr.y, res)
		ps.grad = pr.fullGradient(res)

		if !screening {
			break
		}
		viol := pr.violations(ps.grad, alpha, cols)
		if len(viol) == 0 {
			break
		}
		if info.retries == maxKKTRetries {
			info.kktViolation = true
			cfg.Metrics.KKTExhausted()
			cfg.warn("KKT violations remain after screening retries",
				"alpha", alpha, "violations", len(viol))
			break
		}
		info.retries++
		cfg.Metrics.KKTRetry()
		cols = union(cols, viol)
	}

	ps.alpha = alpha
	info.active = len(cols)
	cfg.Metrics.SolverRun(cfg.Loss, string(cfg.Solver), info.passes, info.converged)
	if !info.converged {
		cfg.warn("solver reached the iteration limit", "alpha", alpha, "passes", info.passes, "gap", info.gap)
	}

	return info
}

// alphaGrid returns the default geometric sequence from alphaMax down to
// ratio * alphaMax.
func alphaGrid(alphaMax, ratio float64, length int) []float64 {
	alphas := make([]float64, length)
	if length == 1 {
		alphas[0] = alphaMax
		return alphas
	}
	for i := range alphas {
		alphas[i] = alphaMax * math.Pow(ratio, float64(i)/float64(length-1))
	}
	return alphas
}

// checkAlphas validates a caller supplied alpha sequence.
func checkAlphas(alphas []float64) error {
	for i, a := range alphas {
		if a < 0 || math.IsNaN(a) || math.IsInf(a, 0) {
			return invalidf("alpha[%d] = %v must be finite and non-negative", i, a)
		}
	}
	return nil
}

// deviance returns the deviance of a standardized solution.
func (pr *problem) deviance(beta, b0 []float64) float64 {
	eta := alloc(pr.m, pr.n)
	for r := range eta {
		floats.AddConst(b0[r], eta[r])
	}
	pr.st.linpred(beta, eta)
	return pr.loss.Deviance(eta, pr.y)
}

// nullDeviance returns the deviance of the intercept-only model.
func (pr *problem) nullDeviance() float64 {
	b0, _ := pr.nullModel()
	return pr.deviance(make([]float64, pr.p*pr.m), b0)
}

// path fits the problem over a sequence of alphas with warm starts.  If
// alphas is nil the default grid is used.  With early the path stops once
// the deviance stalls, the deviance ratio is high enough or the model has
// too many clusters.
func (pr *problem) path(alphas []float64, early bool) (*PathResult, error) {

	start := time.Now()
	cfg := pr.cfg
	alphaMax := pr.alphaMax()

	if alphas == nil {
		if math.IsInf(alphaMax, 1) {
			return nil, invalidf("the penalty sequence is zero, the alphas must be supplied")
		}
		alphas = alphaGrid(alphaMax, cfg.alphaMinRatio(pr.n, pr.p), cfg.PathLength)
	} else if err := checkAlphas(alphas); err != nil {
		return nil, err
	}

	ps := pr.initState(alphaMax)
	devNull := pr.nullDeviance()
	maxClusters := cfg.maxClusters(pr.n)

	pa := &PathResult{
		Loss:         cfg.Loss,
		Lambda:       append([]float64{}, pr.lambda...),
		NullDeviance: devNull,
		Intercepts:   make([][]float64, pr.m),
		p:            pr.p,
		m:            pr.m,
	}
	if ml, ok := pr.loss.(*glm.Multinomial); ok {
		pa.Classes = ml.Classes
	}

	for i, alpha := range alphas {

		info := pr.step(ps, alpha)

		beta, b0 := ps.beta, ps.b0
		if cfg.Gamma > 0 {
			rb, rb0, err := pr.relax(ps.beta, ps.b0, cfg.Gamma)
			if err != nil {
				cfg.warn("relaxed refit failed, keeping the penalized solution", "alpha", alpha, "error", err)
			} else {
				beta, b0 = rb, rb0
			}
		}

		dev := pr.deviance(beta, b0)
		coef, icept := pr.st.unstandardize(beta, b0)

		pa.Alphas = append(pa.Alphas, alpha)
		pa.Coefs = append(pa.Coefs, coefMatrix(coef, pr.p, pr.m))
		for r := range icept {
			pa.Intercepts[r] = append(pa.Intercepts[r], icept[r])
		}
		pa.Deviances = append(pa.Deviances, dev)
		pa.DevRatios = append(pa.DevRatios, 1-dev/devNull)
		pa.NIter = append(pa.NIter, info.passes)
		pa.Gaps = append(pa.Gaps, info.gap)
		pa.Primals = append(pa.Primals, info.primal)
		pa.Converged = append(pa.Converged, info.converged)
		pa.KKTViolation = append(pa.KKTViolation, info.kktViolation)

		nclust := newClusters(ps.beta).nonzero()
		cfg.debug("path step", "step", i, "alpha", alpha, "passes", info.passes,
			"gap", info.gap, "active", info.active, "clusters", nclust, "deviance", dev)

		if !early || i == 0 {
			continue
		}
		if prev := pa.Deviances[i-1]; prev <= 0 || 1-dev/prev < cfg.TolDevChange {
			cfg.debug("path stopped, deviance change below tolerance", "step", i)
			break
		}
		if 1-dev/devNull > cfg.TolDevRatio {
			cfg.debug("path stopped, deviance ratio above tolerance", "step", i)
			break
		}
		if nclust > maxClusters {
			cfg.debug("path stopped, too many clusters", "step", i, "clusters", nclust)
			break
		}
	}

	cfg.Metrics.PathFitted(len(pa.Alphas))
	cfg.Metrics.Since("path", start)

	return pa, nil
}

// coefMatrix arranges p*m coefficients, coordinate j + r*p, as a p x m
// matrix.
func coefMatrix(coef []float64, p, m int) *mat.Dense {
	c := mat.NewDense(p, m, nil)
	for r := 0; r < m; r++ {
		for j := 0; j < p; j++ {
			c.Set(j, r, coef[j+r*p])
		}
	}
	return c
}
