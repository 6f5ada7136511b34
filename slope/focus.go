package slope

// focus holds the design of a single cluster collapsed to one covariate
// per response, x_r = sum of sign(beta_k) x~_k over the members k of the
// cluster that belong to response r.  Coordinate descent treats the
// cluster magnitude as a scalar parameter with this covariate.
type focus struct {
	ws *workset

	// The collapsed columns, one per response
	x [][]float64

	// Whether response r has any members
	used []bool
}

func newFocus(ws *workset) *focus {
	return &focus{
		ws:   ws,
		x:    alloc(ws.m, ws.pr.n),
		used: make([]bool, ws.m),
	}
}

// set collapses the given coordinates with the signs of beta.
func (f *focus) set(members []int, beta []float64) {

	for r := range f.x {
		if f.used[r] {
			zero(f.x[r])
			f.used[r] = false
		}
	}

	for _, k := range members {
		s := 1.0
		if beta[k] < 0 {
			s = -1
		}
		r := f.ws.resp(k)
		f.ws.pr.st.axpy(f.ws.col(k), s, f.x[r])
		f.used[r] = true
	}
}

// derivs returns the gradient and curvature of the weighted least squares
// objective (1/2n) sum w (res)^2 with respect to the cluster magnitude.
func (f *focus) derivs(w, res [][]float64) (float64, float64) {
	var g, h float64
	for r, x := range f.x {
		if !f.used[r] {
			continue
		}
		for i, v := range x {
			g -= w[r][i] * v * res[r][i]
			h += w[r][i] * v * v
		}
	}
	fn := float64(f.ws.pr.n)
	return g / fn, h / fn
}

// shift subtracts d times the collapsed columns from the residuals.
func (f *focus) shift(d float64, res [][]float64) {
	for r, x := range f.x {
		if !f.used[r] {
			continue
		}
		for i, v := range x {
			res[r][i] -= d * v
		}
	}
}
