package slope

import "math"

// slopeThreshold minimizes 0.5 (c - x)^2 + P(c) over c, where P is the
// sorted L1 penalty of a cluster of the given size placed among the other
// clusters at its magnitude.  The other nonzero magnitudes are in
// decreasing order with their sizes, cum holds the cumulative sums of the
// penalty sequence, cum[0] = 0, and the penalty is divided by the
// curvature h.
//
// The result either lies strictly between two of the other magnitudes, is
// exactly equal to one of them (the cluster merges), or is zero.
func slopeThreshold(x float64, size int, others []float64, sizes []int, cum []float64, h float64) float64 {

	a := math.Abs(x)

	// Penalty of the cluster when it is preceded by n coordinates
	pen := func(n int) float64 {
		return (cum[n+size] - cum[n]) / h
	}

	n := 0
	for k := 0; k <= len(others); k++ {
		v := a - pen(n)
		if k > 0 && v >= others[k-1] {
			return math.Copysign(others[k-1], x)
		}
		lower := 0.0
		if k < len(others) {
			lower = others[k]
		}
		if v > lower {
			return math.Copysign(v, x)
		}
		if k < len(others) {
			n += sizes[k]
		}
	}

	return 0
}
