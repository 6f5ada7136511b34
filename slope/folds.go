package slope

import (
	"sort"

	"golang.org/x/exp/rand"
)

// Folds assigns observations to cross-validation folds.  Folds[r][k]
// holds the sorted rows of fold k in repeat r.  Within a repeat the folds
// partition the rows.
type Folds [][][]int

// NewFolds randomly splits n rows into nfolds folds of nearly equal size,
// independently for each of nrepeats repeats.
func NewFolds(n, nfolds, nrepeats int, seed uint64) (Folds, error) {

	if nfolds < 2 || nfolds > n {
		return nil, invalidf("cannot split %d observations into %d folds", n, nfolds)
	}
	if nrepeats < 1 {
		return nil, invalidf("the number of repeats must be positive, got %d", nrepeats)
	}

	rng := rand.New(rand.NewSource(seed))

	folds := make(Folds, nrepeats)
	for r := range folds {
		perm := rng.Perm(n)
		folds[r] = make([][]int, nfolds)
		for i, v := range perm {
			k := i % nfolds
			folds[r][k] = append(folds[r][k], v)
		}
		for k := range folds[r] {
			sort.Ints(folds[r][k])
		}
	}

	return folds, nil
}

// Validate checks that each repeat partitions the rows 0, ..., n-1 into at
// least two non-empty folds.
func (f Folds) Validate(n int) error {

	if len(f) == 0 {
		return invalidf("no fold assignments")
	}

	for r, rep := range f {
		if len(rep) < 2 {
			return invalidf("repeat %d has %d folds, at least 2 are required", r, len(rep))
		}
		seen := make([]bool, n)
		cnt := 0
		for k, fold := range rep {
			if len(fold) == 0 {
				return invalidf("fold %d of repeat %d is empty", k, r)
			}
			for _, i := range fold {
				if i < 0 || i >= n {
					return invalidf("fold %d of repeat %d has row %d, outside 0..%d", k, r, i, n-1)
				}
				if seen[i] {
					return invalidf("row %d appears twice in repeat %d", i, r)
				}
				seen[i] = true
				cnt++
			}
		}
		if cnt != n {
			return invalidf("repeat %d assigns %d of %d rows", r, cnt, n)
		}
	}

	return nil
}

// Train returns the sorted rows outside fold k of repeat r.
func (f Folds) Train(r, k, n int) []int {
	out := make([]bool, n)
	for _, i := range f[r][k] {
		out[i] = true
	}
	var idx []int
	for i := 0; i < n; i++ {
		if !out[i] {
			idx = append(idx, i)
		}
	}
	return idx
}

// Test returns the sorted rows of fold k of repeat r.
func (f Folds) Test(r, k int) []int {
	idx := append([]int{}, f[r][k]...)
	sort.Ints(idx)
	return idx
}

// NumFits returns the total number of folds over all repeats.
func (f Folds) NumFits() int {
	var k int
	for _, rep := range f {
		k += len(rep)
	}
	return k
}
