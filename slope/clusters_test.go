package slope

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// checkClusters verifies that c partitions the coordinates of beta into
// groups of equal magnitude, in decreasing order.
func checkClusters(t *testing.T, c *clusters, beta []float64) {

	t.Helper()

	ind := append([]int{}, c.ind...)
	sort.Ints(ind)
	for i, j := range ind {
		require.Equal(t, i, j, "indices are not a permutation: %v", c.ind)
	}

	require.Equal(t, len(c.coeffs)+1, len(c.ptr))
	require.Equal(t, 0, c.ptr[0])
	require.Equal(t, len(beta), c.ptr[len(c.ptr)-1])

	for k := 0; k < c.size(); k++ {
		require.Greater(t, c.clusterSize(k), 0)
		for _, j := range c.members(k) {
			require.Equal(t, c.coeffs[k], math.Abs(beta[j]), "cluster %d", k)
		}
		if k > 0 {
			require.GreaterOrEqual(t, c.coeffs[k-1], c.coeffs[k])
		}
	}
}

func TestClustersRebuild(t *testing.T) {

	beta := []float64{0, 2, -1, 1, -2, 0.5, 0}
	c := newClusters(beta)
	checkClusters(t, c, beta)

	assert.Equal(t, []float64{2, 1, 0.5, 0}, c.coeffs)
	assert.Equal(t, []int{0, 2, 4, 5, 7}, c.ptr)
	assert.Equal(t, 3, c.nonzero())

	// Stable order within a cluster
	assert.Equal(t, []int{1, 4}, c.members(0))
	assert.Equal(t, []int{2, 3}, c.members(1))

	mags, sizes := c.others(1, nil, nil)
	assert.Equal(t, []float64{2, 0.5}, mags)
	assert.Equal(t, []int{2, 1}, sizes)

	c.rebuild(make([]float64, 3))
	assert.Equal(t, 1, c.size())
	assert.Equal(t, 0, c.nonzero())
}

func TestClustersUpdate(t *testing.T) {

	beta := []float64{3, 2, 1}
	c := newClusters(beta)

	// Move the last cluster to the front
	pos := c.update(2, 4, false)
	beta[2] = 4
	assert.Equal(t, 0, pos)
	checkClusters(t, c, beta)
	assert.Equal(t, []int{2, 0, 1}, c.ind)

	// Merge with an existing magnitude
	pos = c.update(0, 2, true)
	beta[2] = 2
	assert.Equal(t, 2, c.size())
	assert.Equal(t, 1, pos)
	checkClusters(t, c, beta)
	assert.ElementsMatch(t, []int{1, 2}, c.members(1))

	// Without merging equal magnitudes stay separate
	pos = c.update(0, 2, false)
	beta[0] = 2
	checkClusters(t, c, beta)
	assert.Equal(t, 2, c.size())
	assert.Equal(t, 0, pos)
}

// Random sequences of updates preserve the partition invariants.
func TestClustersRandomUpdates(t *testing.T) {

	rng := rand.New(rand.NewSource(3))
	levels := []float64{0, 0.5, 1, 1.5, 2, 3}

	for _, merge := range []bool{true, false} {
		for trial := 0; trial < 200; trial++ {
			p := 1 + rng.Intn(8)
			beta := make([]float64, p)
			for j := range beta {
				beta[j] = levels[rng.Intn(len(levels))]
				if rng.Intn(2) == 0 {
					beta[j] = -beta[j]
				}
			}
			c := newClusters(beta)
			checkClusters(t, c, beta)

			for it := 0; it < 10; it++ {
				k := rng.Intn(c.size())
				v := levels[rng.Intn(len(levels))]
				if rng.Intn(3) == 0 {
					v += 0.25
				}
				for _, j := range c.members(k) {
					beta[j] = math.Copysign(v, beta[j])
				}
				nc := c.size()
				c.update(k, v, merge)
				if merge {
					checkClusters(t, c, beta)
				} else {
					assert.Equal(t, nc, c.size())
					for i := 1; i < c.size(); i++ {
						require.GreaterOrEqual(t, c.coeffs[i-1], c.coeffs[i])
					}
				}
			}
		}
	}
}

func TestRotate(t *testing.T) {
	x := []int{1, 2, 3, 4, 5}
	rotateLeft(x, 2)
	assert.Equal(t, []int{3, 4, 5, 1, 2}, x)
	rotateRight(x, 2)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, x)
	rotateLeft(x, 0)
	rotateLeft(x, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, x)
}

// The threshold minimizes the penalized one dimensional problem, which is
// checked against a fine grid that includes the other magnitudes.
func TestSlopeThreshold(t *testing.T) {

	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 300; trial++ {

		nk := rng.Intn(5)
		seen := make(map[float64]bool)
		var others []float64
		for len(others) < nk {
			v := math.Round(100*(0.1+2.9*rng.Float64())) / 100
			if !seen[v] {
				seen[v] = true
				others = append(others, v)
			}
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(others)))

		sizes := make([]int, nk)
		var base []float64
		for i, v := range others {
			sizes[i] = 1 + rng.Intn(3)
			for k := 0; k < sizes[i]; k++ {
				base = append(base, v)
			}
		}
		size := 1 + rng.Intn(3)

		lambda := make([]float64, len(base)+size)
		for i := range lambda {
			lambda[i] = 2 * rng.Float64()
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(lambda)))
		cum := make([]float64, len(lambda)+1)
		for i, v := range lambda {
			cum[i+1] = cum[i] + v
		}

		h := 0.5 + 1.5*rng.Float64()
		x := 12*rng.Float64() - 6

		obj := func(c float64) float64 {
			v := append([]float64{}, base...)
			for k := 0; k < size; k++ {
				v = append(v, c)
			}
			return 0.5*h*(c-x)*(c-x) + Norm(v, lambda)
		}

		c := slopeThreshold(x, size, others, sizes, cum, h)
		best := math.Inf(1)
		for i := -1400; i <= 1400; i++ {
			best = math.Min(best, obj(float64(i)/200))
		}
		for _, v := range others {
			best = math.Min(best, math.Min(obj(v), obj(-v)))
		}
		require.LessOrEqual(t, obj(c), best+1e-6, "trial %d: x=%v others=%v", trial, x, others)
	}
}
