package slope

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// pgd minimizes the penalized loss over the working set by proximal
// gradient descent with a backtracking line search.  With accelerate it
// uses FISTA momentum, restarted whenever the objective increases.  The
// intercepts are not part of the gradient step: they are set to their
// optimal values for every coefficient vector that is evaluated, so the
// smooth part is the loss minimized over the intercepts.
func (ws *workset) pgd(beta, b0 []float64, maxPasses int, accelerate bool) solveResult {

	pr := ws.pr
	cfg := pr.cfg
	n, m := pr.n, pr.m
	np := ws.size()

	eta := alloc(m, n)
	res := alloc(m, n)
	g := make([]float64, np)

	// The point at which gradients are taken, equal to beta without
	// acceleration
	yb := make([]float64, np)
	y0 := make([]float64, m)
	copy(yb, beta)

	prevBeta := make([]float64, np)
	v := make([]float64, np)
	d := make([]float64, np)

	lr := ws.initialStep()
	tk := 1.0

	var rslt solveResult

	for {
		primal, gap := ws.evaluate(beta, b0, eta, res, g)
		rslt.primal, rslt.gap = primal, gap
		if ws.converged(primal, gap, cfg.Tol) {
			rslt.converged = true
			return rslt
		}
		if rslt.passes >= maxPasses {
			return rslt
		}

		// Smooth part and gradient at the extrapolated point, which
		// is beta itself unless momentum moved it.
		f0 := primal - Norm(beta, ws.lambda)
		if accelerate && !floats.Equal(yb, beta) {
			copy(y0, b0)
			f0 = ws.smooth(yb, y0, eta, res)
			ws.gradient(res, g)
		}

		copy(prevBeta, beta)

		for {
			for k := range v {
				v[k] = yb[k] - lr*g[k]
			}
			copy(beta, Prox(v, scaledLambda(ws.lambda, lr)))
			f := ws.smooth(beta, b0, eta, res)

			floats.SubTo(d, beta, yb)
			q := f0 + floats.Dot(d, g) + floats.Dot(d, d)/(2*lr)
			if sufficientDecrease(q, f) || lr < minLearningRate {
				break
			}
			lr *= cfg.LearningRateDecr
		}
		rslt.passes++

		if !accelerate {
			copy(yb, beta)
			continue
		}

		// Restart the momentum if the objective went up.
		fnew := pr.loss.Loss(eta, pr.y) + Norm(beta, ws.lambda)
		if fnew > primal {
			tk = 1
			copy(yb, beta)
			continue
		}

		tnext := (1 + math.Sqrt(1+4*tk*tk)) / 2
		mom := (tk - 1) / tnext
		for k := range yb {
			yb[k] = beta[k] + mom*(beta[k]-prevBeta[k])
		}
		tk = tnext
	}
}

// sufficientDecrease reports whether the quadratic model q bounds the
// smooth objective f at a trial point, up to rounding.
func sufficientDecrease(q, f float64) bool {
	return q >= f-1e-12*math.Abs(f)
}

// initialStep returns the starting step size of the line search, the
// inverse of a bound on the curvature of the loss including the
// intercept.
func (ws *workset) initialStep() float64 {

	L := ws.pr.loss.Majorizer()
	if math.IsInf(L, 1) {
		return 1
	}

	fn := float64(ws.pr.n)
	tr := fn
	for _, j := range ws.cols {
		tr += ws.pr.st.sqnorm(j)
	}
	return fn / (L * tr)
}
