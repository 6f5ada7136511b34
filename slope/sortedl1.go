package slope

import (
	"math"
	"sort"
)

// sortIndexDesc returns the permutation that sorts |x| in decreasing
// order.  Ties keep their original order.
func sortIndexDesc(x []float64) []int {
	ord := make([]int, len(x))
	for i := range ord {
		ord[i] = i
	}
	sort.SliceStable(ord, func(a, b int) bool {
		return math.Abs(x[ord[a]]) > math.Abs(x[ord[b]])
	})
	return ord
}

// sortedAbs returns |x| sorted in decreasing order.
func sortedAbs(x []float64) []float64 {
	z := make([]float64, len(x))
	for i, v := range x {
		z[i] = math.Abs(v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(z)))
	return z
}

// Norm returns the sorted L1 norm sum_i lambda_i |x|_(i).
func Norm(x, lambda []float64) float64 {
	var s float64
	for i, v := range sortedAbs(x) {
		s += lambda[i] * v
	}
	return s
}

// DualNorm returns the dual of the sorted L1 norm at g, the largest ratio
// of the cumulative sums of |g| in decreasing order to the cumulative
// sums of lambda.  Prefixes where lambda sums to zero are skipped unless
// g is nonzero there, in which case the result is +Inf.
func DualNorm(g, lambda []float64) float64 {
	var cg, cl, mx float64
	for i, v := range sortedAbs(g) {
		cg += v
		cl += lambda[i]
		if cl <= 0 {
			if cg > 0 {
				return math.Inf(1)
			}
			continue
		}
		if r := cg / cl; r > mx {
			mx = r
		}
	}
	return mx
}

// Prox evaluates the proximal operator of the sorted L1 norm: the
// minimizer of 0.5 ||x - v||^2 + sum_i lambda_i |x|_(i).  The lambda
// sequence must be non-increasing, non-negative and at least as long as v.
func Prox(v, lambda []float64) []float64 {

	p := len(v)
	x := make([]float64, p)
	if p == 0 {
		return x
	}

	ord := sortIndexDesc(v)

	// Stack of blocks for pool adjacent violators, block k covers
	// sorted positions start[k]..end[k] with total s[k] and mean w[k].
	start := make([]int, p)
	end := make([]int, p)
	s := make([]float64, p)
	w := make([]float64, p)

	k := 0
	for i := 0; i < p; i++ {
		start[k] = i
		end[k] = i
		s[k] = math.Abs(v[ord[i]]) - lambda[i]
		w[k] = s[k]
		for k > 0 && w[k-1] <= w[k] {
			k--
			end[k] = i
			s[k] += s[k+1]
			w[k] = s[k] / float64(i-start[k]+1)
		}
		k++
	}

	for j := 0; j < k; j++ {
		d := math.Max(w[j], 0)
		for i := start[j]; i <= end[j]; i++ {
			c := ord[i]
			if v[c] < 0 {
				x[c] = -d
			} else {
				x[c] = d
			}
		}
	}

	return x
}

// scaledLambda returns alpha * lambda.
func scaledLambda(lambda []float64, alpha float64) []float64 {
	z := make([]float64, len(lambda))
	for i, v := range lambda {
		z[i] = alpha * v
	}
	return z
}
