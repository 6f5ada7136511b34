package slope

import (
	"math"
	"sort"
)

// Number of times a fit is repeated after adding KKT violators to the
// working set
const maxKKTRetries = 10

// ruleCount runs the sequential strong rule on the sorted values c
// against the penalty lambda: it accumulates c_i - lambda_i and extends
// the kept prefix whenever the sum is non-negative.
func ruleCount(c, lambda []float64) int {
	var s float64
	k := 0
	for i := range c {
		s += c[i] - lambda[i]
		if s >= 0 {
			k = i + 1
			s = 0
		}
	}
	return k
}

// screen returns the columns of the coordinates selected by the strong
// rule from the gradient g, with c_i = |g|_(i) + lambda_i (alphaPrev -
// alpha).  The columns that are nonzero in beta are always kept.
func (pr *problem) screen(g, beta []float64, alphaPrev, alpha float64) []int {

	ord := sortIndexDesc(g)
	c := make([]float64, len(g))
	lam := make([]float64, len(g))
	for i, k := range ord {
		c[i] = math.Abs(g[k]) + (alphaPrev-alpha)*pr.lambda[i]
		lam[i] = alpha * pr.lambda[i]
	}
	kc := ruleCount(c, lam)

	keep := make([]bool, pr.p)
	for _, k := range ord[:kc] {
		keep[k%pr.p] = true
	}
	for k, b := range beta {
		if b != 0 {
			keep[k%pr.p] = true
		}
	}

	return columns(keep)
}

// violations returns the columns outside cols that the strong rule
// selects from the gradient g at the solution.
func (pr *problem) violations(g []float64, alpha float64, cols []int) []int {

	ord := sortIndexDesc(g)
	c := make([]float64, len(g))
	lam := make([]float64, len(g))
	for i, k := range ord {
		c[i] = math.Abs(g[k])
		lam[i] = alpha * pr.lambda[i]
	}
	kc := ruleCount(c, lam)

	in := make([]bool, pr.p)
	for _, j := range cols {
		in[j] = true
	}
	viol := make([]bool, pr.p)
	for _, k := range ord[:kc] {
		if j := k % pr.p; !in[j] {
			viol[j] = true
		}
	}

	return columns(viol)
}

// columns returns the positions of the true values.
func columns(mask []bool) []int {
	var cols []int
	for j, b := range mask {
		if b {
			cols = append(cols, j)
		}
	}
	return cols
}

// union merges two sorted column lists.
func union(a, b []int) []int {
	z := append(append([]int{}, a...), b...)
	sort.Ints(z)
	k := 0
	for i, v := range z {
		if i == 0 || v != z[k-1] {
			z[k] = v
			k++
		}
	}
	return z[:k]
}
