package slope

import (
	"math"

	"github.com/kshedden/sortedl1/glm"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// problem holds everything about a penalized fit that does not change
// with alpha or the working set.
type problem struct {
	cfg  *Config
	st   *standardized
	loss glm.Loss

	// The working response from the loss, one column per linear
	// predictor
	y [][]float64

	n, p, m int

	// The penalty sequence, length p*m, non-increasing
	lambda []float64

	// Drives the permuted coordinate descent order
	rng *rand.Rand
}

// newProblem validates the data and sets up the standardized design,
// loss and penalty sequence.
func newProblem(x Design, y [][]float64, lambda []float64, cfg *Config) (*problem, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n, p := x.Dims()
	if n < 2 {
		return nil, invalidf("at least two observations are required, got %d", n)
	}
	if p < 1 {
		return nil, invalidf("the design has no columns")
	}
	if len(y) == 0 {
		return nil, invalidf("the response has no columns")
	}
	for k := range y {
		if len(y[k]) != n {
			return nil, invalidf("response column %d has length %d, the design has %d rows", k, len(y[k]), n)
		}
	}
	if err := checkVariation(y); err != nil {
		return nil, err
	}

	loss, err := glm.NewLoss(cfg.Loss)
	if err != nil {
		return nil, invalid(err, "invalid loss")
	}
	wy, err := loss.Response(y)
	if err != nil {
		return nil, invalid(err, "invalid response")
	}
	m := len(wy)

	if len(lambda) == 0 {
		lambda, err = LambdaSequence(cfg.LambdaType, p*m, n, cfg.Q, cfg.Theta1, cfg.Theta2)
	} else {
		lambda, err = checkLambda(lambda, p*m)
	}
	if err != nil {
		return nil, err
	}

	return &problem{
		cfg:    cfg,
		st:     standardize(x, cfg.Centering, cfg.Scaling),
		loss:   loss,
		y:      wy,
		n:      n,
		p:      p,
		m:      m,
		lambda: lambda,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// checkVariation rejects responses whose columns are all constant.
func checkVariation(y [][]float64) error {
	for _, col := range y {
		for _, v := range col[1:] {
			if v != col[0] {
				return nil
			}
		}
	}
	return invalidf("the response takes a single value")
}

// nullModel returns the intercepts of the intercept-only model and the
// generalized residuals there.
func (pr *problem) nullModel() ([]float64, [][]float64) {
	b0 := pr.loss.NullEta(pr.y, pr.cfg.FitIntercept)
	eta := alloc(pr.m, pr.n)
	for r := range eta {
		floats.AddConst(b0[r], eta[r])
	}
	res := alloc(pr.m, pr.n)
	pr.loss.Residual(eta, pr.y, res)
	return b0, res
}

// allCols returns 0, ..., p-1.
func (pr *problem) allCols() []int {
	cols := make([]int, pr.p)
	for j := range cols {
		cols[j] = j
	}
	return cols
}

// fullGradient returns the gradient of the loss at the given residuals
// for all p*m coordinates.
func (pr *problem) fullGradient(res [][]float64) []float64 {
	g := make([]float64, pr.p*pr.m)
	pr.st.gradient(pr.allCols(), res, g)
	return g
}

// alphaMax returns the smallest alpha at which all coefficients are zero.
func (pr *problem) alphaMax() float64 {
	_, res := pr.nullModel()
	return DualNorm(pr.fullGradient(res), pr.lambda)
}

// workset is the problem restricted to a subset of the design columns.
// Working coordinate k refers to column cols[k % q] and response k / q.
type workset struct {
	pr   *problem
	cols []int
	q, m int

	alpha float64

	// alpha times the leading q*m penalty values
	lambda []float64

	// Scratch space of refitIntercept
	ires, iw, iz [][]float64
}

func (pr *problem) newWorkset(cols []int, alpha float64) *workset {
	q := len(cols)
	return &workset{
		pr:     pr,
		cols:   cols,
		q:      q,
		m:      pr.m,
		alpha:  alpha,
		lambda: scaledLambda(pr.lambda[:q*pr.m], alpha),
	}
}

func (ws *workset) size() int {
	return ws.q * ws.m
}

func (ws *workset) col(k int) int {
	return ws.cols[k%ws.q]
}

func (ws *workset) resp(k int) int {
	return k / ws.q
}

// full returns the position of working coordinate k among all p*m
// coordinates.
func (ws *workset) full(k int) int {
	return ws.col(k) + ws.resp(k)*ws.pr.p
}

// gather extracts the working coordinates from a full coefficient vector.
func (ws *workset) gather(beta []float64) []float64 {
	z := make([]float64, ws.size())
	for k := range z {
		z[k] = beta[ws.full(k)]
	}
	return z
}

// scatter writes working coordinates into a full coefficient vector,
// which is zeroed first.
func (ws *workset) scatter(z, beta []float64) {
	zero(beta)
	for k, v := range z {
		beta[ws.full(k)] = v
	}
}

// linpred places the linear predictor into eta.
func (ws *workset) linpred(beta, b0 []float64, eta [][]float64) {
	for r := range eta {
		for i := range eta[r] {
			eta[r][i] = b0[r]
		}
	}
	for k, b := range beta {
		if b != 0 {
			ws.pr.st.axpy(ws.col(k), b, eta[ws.resp(k)])
		}
	}
}

// gradient places -X~' res / n for the working coordinates into g.
func (ws *workset) gradient(res [][]float64, g []float64) {
	ws.pr.st.gradient(ws.cols, res, g)
}

// unpenalized reports whether the scaled penalty is identically zero,
// in which case no dual point is feasible and convergence is judged by
// stationarity instead of the duality gap.
func (ws *workset) unpenalized() bool {
	return len(ws.lambda) == 0 || ws.lambda[0] == 0
}

// smooth sets the intercepts to their optimal values for beta, starting
// from b0, and returns the unpenalized loss.  The linear predictor and
// the generalized residuals are left in eta and res.
func (ws *workset) smooth(beta, b0 []float64, eta, res [][]float64) float64 {
	pr := ws.pr
	ws.linpred(beta, b0, eta)
	if pr.cfg.FitIntercept {
		ws.refitIntercept(b0, eta)
	}
	pr.loss.Residual(eta, pr.y, res)
	return pr.loss.Loss(eta, pr.y)
}

const (
	// Newton iterations used to place the intercepts
	maxInterceptIter = 50

	// Largest change of an intercept in one Newton step
	maxInterceptStep = 5
)

// refitIntercept minimizes the loss over the intercepts with the other
// coefficients held fixed, by Newton steps on one intercept at a time.
// The linear predictor in eta is kept in step with b0.  At the optimum
// the residuals of each response sum to zero, which the dual point needs
// to be feasible.
func (ws *workset) refitIntercept(b0 []float64, eta [][]float64) {

	pr := ws.pr
	if ws.ires == nil {
		ws.ires = alloc(pr.m, pr.n)
		ws.iw = alloc(pr.m, pr.n)
		ws.iz = alloc(pr.m, pr.n)
	}

	for it := 0; it < maxInterceptIter; it++ {
		moved := false
		for r := range b0 {
			pr.loss.Residual(eta, pr.y, ws.ires)
			pr.loss.Weights(eta, pr.y, ws.iw, ws.iz)
			h := floats.Sum(ws.iw[r])
			if !(h > 0) {
				continue
			}
			d := clampAbs(floats.Sum(ws.ires[r])/h, maxInterceptStep)
			b0[r] += d
			floats.AddConst(d, eta[r])
			if math.Abs(d) > 1e-13*(1+math.Abs(b0[r])) {
				moved = true
			}
		}
		if !moved {
			return
		}
	}
}

func clampAbs(x, c float64) float64 {
	return math.Max(-c, math.Min(c, x))
}

// evaluate refits the intercepts for beta and returns the primal
// objective and the convergence measure at beta.  With a penalty the
// measure is the duality gap from a dual point obtained by scaling the
// generalized residuals into the dual feasible set.  Without one it is
// the largest absolute gradient component, intercepts included.  The
// residuals and gradient are left in res and g.
func (ws *workset) evaluate(beta, b0 []float64, eta, res [][]float64, g []float64) (float64, float64) {

	pr := ws.pr
	f := ws.smooth(beta, b0, eta, res)
	primal := f + Norm(beta, ws.lambda)
	ws.gradient(res, g)

	if ws.unpenalized() {
		return primal, ws.stationarity(res, g)
	}

	theta := alloc(pr.m, pr.n)
	scale := math.Max(1, DualNorm(g, ws.lambda))
	for r := range theta {
		floats.ScaleTo(theta[r], 1/scale, res[r])
	}
	dual := pr.loss.Dual(theta, pr.y)

	return primal, primal - dual
}

// stationarity returns the largest absolute gradient component of an
// unpenalized problem given its residuals (or weighted residuals) and
// the coefficient gradient g.
func (ws *workset) stationarity(res [][]float64, g []float64) float64 {
	var mx float64
	for _, v := range g {
		mx = math.Max(mx, math.Abs(v))
	}
	if ws.pr.cfg.FitIntercept {
		fn := float64(ws.pr.n)
		for r := range res {
			mx = math.Max(mx, math.Abs(floats.Sum(res[r]))/fn)
		}
	}
	return mx
}

// converged applies the stopping rule at tolerance tol to a primal value
// and the measure returned by evaluate.  A duality gap must be below tol
// relative to the objective.  A gap that is negative beyond rounding
// means the dual point was not feasible and never counts as converged.
// Without a penalty the largest gradient component must be below tol
// relative to the objective, or absolutely when the objective is below
// one.
func (ws *workset) converged(primal, gap, tol float64) bool {
	ap := math.Abs(primal)
	if ws.unpenalized() {
		return gap <= tol*math.Max(1, ap)
	}
	if gap < -(tol*ap + 1e-12*math.Max(1, ap)) {
		return false
	}
	return gap <= tol*ap
}
