package glm

// Weights computes the IRLS weights and working response at the linear
// predictor.  The weights are 1 / (g'(mu)^2 V(mu)) and the working
// response is eta + g'(mu) (y - mu), where g is the link and V is the
// variance function.  Means are clamped away from the boundary of the
// family's domain first.
func (fam *Family) Weights(eta, y, w, z [][]float64) {
	for i, e := range eta[0] {
		mu := clamp(fam.Link.Inv(e), fam.muLo, fam.muHi)
		d := fam.Link.Deriv(mu)
		z[0][i] = e + d*(y[0][i]-mu)
		w[0][i] = 1 / (d * d * fam.Variance(mu))
	}
}
