package slope

import (
	"math"
	"sort"
)

// clusters partitions coordinates into groups of equal coefficient
// magnitude.  Cluster k has magnitude coeffs[k] and members
// ind[ptr[k]:ptr[k+1]].  Magnitudes are decreasing, so the members of
// cluster k occupy the sorted ranks ptr[k] to ptr[k+1]-1.  A cluster with
// magnitude zero, if present, is last.
type clusters struct {
	coeffs []float64
	ptr    []int
	ind    []int
}

func newClusters(beta []float64) *clusters {
	c := &clusters{}
	c.rebuild(beta)
	return c
}

// rebuild recomputes the partition from the coefficients.
func (c *clusters) rebuild(beta []float64) {

	c.ind = c.ind[:0]
	for i := range beta {
		c.ind = append(c.ind, i)
	}
	sort.SliceStable(c.ind, func(a, b int) bool {
		return math.Abs(beta[c.ind[a]]) > math.Abs(beta[c.ind[b]])
	})

	c.coeffs = c.coeffs[:0]
	c.ptr = c.ptr[:0]
	for i, j := range c.ind {
		v := math.Abs(beta[j])
		if i == 0 || v != c.coeffs[len(c.coeffs)-1] {
			c.coeffs = append(c.coeffs, v)
			c.ptr = append(c.ptr, i)
		}
	}
	c.ptr = append(c.ptr, len(c.ind))
}

func (c *clusters) size() int {
	return len(c.coeffs)
}

func (c *clusters) members(k int) []int {
	return c.ind[c.ptr[k]:c.ptr[k+1]]
}

func (c *clusters) clusterSize(k int) int {
	return c.ptr[k+1] - c.ptr[k]
}

// nonzero returns the number of clusters with a nonzero magnitude.
func (c *clusters) nonzero() int {
	k := len(c.coeffs)
	for k > 0 && c.coeffs[k-1] == 0 {
		k--
	}
	return k
}

// update sets the magnitude of cluster k to v.  If merge is true and
// another cluster already has magnitude v the two are joined, otherwise
// cluster k is moved to keep the magnitudes sorted.  It returns the new
// position of the cluster.
func (c *clusters) update(k int, v float64, merge bool) int {

	if v == c.coeffs[k] {
		return k
	}

	if merge {
		if t := c.find(v, k); t >= 0 {
			return c.merge(k, t)
		}
	}

	// Position among the other clusters
	pos := 0
	for i, u := range c.coeffs {
		if i != k && u > v {
			pos++
		}
	}
	c.coeffs[k] = v
	c.move(k, pos)
	return pos
}

// find returns the index of a cluster other than k with magnitude v, or
// -1.
func (c *clusters) find(v float64, k int) int {
	// coeffs is decreasing
	i := sort.Search(len(c.coeffs), func(i int) bool { return c.coeffs[i] <= v })
	for ; i < len(c.coeffs) && c.coeffs[i] == v; i++ {
		if i != k {
			return i
		}
	}
	return -1
}

// move relocates cluster k to position pos, shifting the clusters in
// between.
func (c *clusters) move(k, pos int) {

	if k == pos {
		return
	}

	s := c.clusterSize(k)
	v := c.coeffs[k]

	if pos < k {
		rotateRight(c.ind[c.ptr[pos]:c.ptr[k+1]], s)
		for i := k; i > pos; i-- {
			c.ptr[i] = c.ptr[i-1] + s
			c.coeffs[i] = c.coeffs[i-1]
		}
	} else {
		rotateLeft(c.ind[c.ptr[k]:c.ptr[pos+1]], s)
		for i := k; i < pos; i++ {
			c.ptr[i+1] = c.ptr[i+2] - s
			c.coeffs[i] = c.coeffs[i+1]
		}
	}
	c.coeffs[pos] = v
}

// merge joins cluster k into cluster t and returns the position of the
// joined cluster.
func (c *clusters) merge(k, t int) int {

	v := c.coeffs[t]
	if t < k {
		// Place k directly after t, then drop the boundary.
		c.move(k, t+1)
		c.remove(t + 1)
		return t
	}

	// Place k directly before t.
	c.move(k, t-1)
	c.remove(t)
	c.coeffs[t-1] = v
	return t - 1
}

// remove drops the boundary at ptr[b], joining clusters b-1 and b under
// the magnitude of cluster b-1.
func (c *clusters) remove(b int) {
	c.ptr = append(c.ptr[:b], c.ptr[b+1:]...)
	c.coeffs = append(c.coeffs[:b], c.coeffs[b+1:]...)
}

func reverse(x []int) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

// rotateLeft moves the first s elements of x to its end.
func rotateLeft(x []int, s int) {
	if s == 0 || s == len(x) {
		return
	}
	reverse(x[:s])
	reverse(x[s:])
	reverse(x)
}

// rotateRight moves the last s elements of x to its front.
func rotateRight(x []int, s int) {
	rotateLeft(x, len(x)-s)
}

// others collects the magnitudes and sizes of the nonzero clusters other
// than k, reusing the given slices.
func (c *clusters) others(k int, mags []float64, sizes []int) ([]float64, []int) {
	mags = mags[:0]
	sizes = sizes[:0]
	for i, nz := 0, c.nonzero(); i < nz; i++ {
		if i != k {
			mags = append(mags, c.coeffs[i])
			sizes = append(sizes, c.clusterSize(i))
		}
	}
	return mags, sizes
}
