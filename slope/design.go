package slope

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Design is a read-only n x p design matrix accessed by column.  The
// solvers only need the column kernels below, which lets dense and sparse
// storage, and row subsets of either, share one implementation.
type Design interface {

	// Dims returns the number of rows and columns.
	Dims() (n, p int)

	// ColDot returns the inner product of column j with v.
	ColDot(j int, v []float64) float64

	// ColAxpy adds a times column j to v.
	ColAxpy(j int, a float64, v []float64)

	// ColMoments returns sum_i w_i x_ij^2 and sum_i w_i x_ij.  A nil w
	// gives unit weights.
	ColMoments(j int, w []float64) (sxx, sx float64)

	// ColStats returns summary statistics of column j.
	ColStats(j int) ColStats

	// Rows returns a view of the design restricted to the given
	// distinct rows, in the given order.  The values are not copied.
	Rows(idx []int) (Design, error)
}

// ColStats holds summary statistics of a design column.
type ColStats struct {
	Sum    float64
	SumSq  float64
	AbsSum float64
	Min    float64
	Max    float64
}

// Dense is a design matrix stored as column slices.
type Dense struct {

	// The columns, borrowed from the caller
	cols [][]float64

	// Rows of the view, nil if all rows are used
	rows []int

	n int
}

// NewDense returns a dense design using the given columns without copying
// them.  All columns must have the same length.
func NewDense(cols [][]float64) (*Dense, error) {
	if len(cols) == 0 {
		return nil, invalidf("design has no columns")
	}
	n := len(cols[0])
	for j := range cols {
		if len(cols[j]) != n {
			return nil, invalidf("design column %d has length %d, expected %d", j, len(cols[j]), n)
		}
	}
	return &Dense{cols: cols, n: n}, nil
}

// DenseFromMatrix copies a gonum matrix into a dense design.
func DenseFromMatrix(m mat.Matrix) *Dense {
	n, p := m.Dims()
	cols := make([][]float64, p)
	for j := range cols {
		cols[j] = make([]float64, n)
		mat.Col(cols[j], j, m)
	}
	return &Dense{cols: cols, n: n}
}

// Dims returns the dimensions of the design.
func (d *Dense) Dims() (int, int) {
	return d.n, len(d.cols)
}

// At returns element (i, j), so that Dense is a mat.Matrix.
func (d *Dense) At(i, j int) float64 {
	if d.rows != nil {
		i = d.rows[i]
	}
	return d.cols[j][i]
}

// T returns the transpose of the design.
func (d *Dense) T() mat.Matrix {
	return mat.Transpose{Matrix: d}
}

func (d *Dense) ColDot(j int, v []float64) float64 {
	x := d.cols[j]
	if d.rows == nil {
		return floats.Dot(x, v)
	}
	var s float64
	for k, i := range d.rows {
		s += x[i] * v[k]
	}
	return s
}

func (d *Dense) ColAxpy(j int, a float64, v []float64) {
	x := d.cols[j]
	if d.rows == nil {
		floats.AddScaled(v, a, x)
		return
	}
	for k, i := range d.rows {
		v[k] += a * x[i]
	}
}

func (d *Dense) ColMoments(j int, w []float64) (float64, float64) {
	var sxx, sx float64
	x := d.cols[j]
	for k := 0; k < d.n; k++ {
		i := k
		if d.rows != nil {
			i = d.rows[k]
		}
		v := x[i]
		if w != nil {
			sxx += w[k] * v * v
			sx += w[k] * v
		} else {
			sxx += v * v
			sx += v
		}
	}
	return sxx, sx
}

func (d *Dense) ColStats(j int) ColStats {
	st := ColStats{Min: math.Inf(1), Max: math.Inf(-1)}
	x := d.cols[j]
	for k := 0; k < d.n; k++ {
		i := k
		if d.rows != nil {
			i = d.rows[k]
		}
		v := x[i]
		st.Sum += v
		st.SumSq += v * v
		st.AbsSum += math.Abs(v)
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	return st
}

// Rows returns a view of the given rows, which must be distinct.
func (d *Dense) Rows(idx []int) (Design, error) {
	if err := checkRows(idx, d.n); err != nil {
		return nil, err
	}
	rows := make([]int, len(idx))
	for k, i := range idx {
		if d.rows != nil {
			i = d.rows[i]
		}
		rows[k] = i
	}
	return &Dense{cols: d.cols, rows: rows, n: len(rows)}, nil
}

// checkRows validates the row indices of a view of an n-row design.
func checkRows(idx []int, n int) error {
	if len(idx) == 0 {
		return invalidf("a row view needs at least one row")
	}
	seen := make([]bool, n)
	for k, i := range idx {
		if i < 0 || i >= n {
			return invalidf("row index %d at position %d is outside 0..%d", i, k, n-1)
		}
		if seen[i] {
			return invalidf("row %d is selected twice", i)
		}
		seen[i] = true
	}
	return nil
}

// CSC is a sparse design matrix in compressed sparse column format.
// Column j holds the values data[indptr[j]:indptr[j+1]] in the rows
// ind[indptr[j]:indptr[j+1]].
type CSC struct {
	indptr []int
	ind    []int
	data   []float64

	// Number of rows of the stored matrix
	nrow int

	// For a row view, rowmap maps stored rows to view positions (-1
	// if excluded) and rows maps view positions to stored rows.
	rowmap []int
	rows   []int

	n, p int
}

// NewCSC returns a sparse design from compressed column arrays, which are
// used without copying.
func NewCSC(n, p int, indptr, ind []int, data []float64) (*CSC, error) {
	if n < 1 || p < 1 {
		return nil, invalidf("sparse design has dimensions %d x %d", n, p)
	}
	if len(indptr) != p+1 || indptr[0] != 0 {
		return nil, invalidf("sparse design: indptr must have length %d and start at 0", p+1)
	}
	if len(ind) != len(data) || indptr[p] != len(data) {
		return nil, invalidf("sparse design: %d row indices and %d values, indptr ends at %d", len(ind), len(data), indptr[p])
	}
	for j := 0; j < p; j++ {
		if indptr[j+1] < indptr[j] {
			return nil, invalidf("sparse design: indptr decreases at column %d", j)
		}
	}
	for _, i := range ind {
		if i < 0 || i >= n {
			return nil, invalidf("sparse design: row index %d out of range", i)
		}
	}
	return &CSC{indptr: indptr, ind: ind, data: data, nrow: n, n: n, p: p}, nil
}

// CSCFromMatrix stores the nonzero elements of a gonum matrix.
func CSCFromMatrix(m mat.Matrix) *CSC {
	n, p := m.Dims()
	indptr := make([]int, p+1)
	var ind []int
	var data []float64
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			if v := m.At(i, j); v != 0 {
				ind = append(ind, i)
				data = append(data, v)
			}
		}
		indptr[j+1] = len(data)
	}
	return &CSC{indptr: indptr, ind: ind, data: data, nrow: n, n: n, p: p}
}

// Dims returns the dimensions of the design.
func (c *CSC) Dims() (int, int) {
	return c.n, c.p
}

// At returns element (i, j), so that CSC is a mat.Matrix.
func (c *CSC) At(i, j int) float64 {
	if c.rows != nil {
		i = c.rows[i]
	}
	lo, hi := c.indptr[j], c.indptr[j+1]
	k := lo + sort.SearchInts(c.ind[lo:hi], i)
	if k < hi && c.ind[k] == i {
		return c.data[k]
	}
	return 0
}

// T returns the transpose of the design.
func (c *CSC) T() mat.Matrix {
	return mat.Transpose{Matrix: c}
}

// pos maps a stored row to its position in the view, or -1.
func (c *CSC) pos(i int) int {
	if c.rowmap == nil {
		return i
	}
	return c.rowmap[i]
}

func (c *CSC) ColDot(j int, v []float64) float64 {
	var s float64
	for k := c.indptr[j]; k < c.indptr[j+1]; k++ {
		if r := c.pos(c.ind[k]); r >= 0 {
			s += c.data[k] * v[r]
		}
	}
	return s
}

func (c *CSC) ColAxpy(j int, a float64, v []float64) {
	for k := c.indptr[j]; k < c.indptr[j+1]; k++ {
		if r := c.pos(c.ind[k]); r >= 0 {
			v[r] += a * c.data[k]
		}
	}
}

func (c *CSC) ColMoments(j int, w []float64) (float64, float64) {
	var sxx, sx float64
	for k := c.indptr[j]; k < c.indptr[j+1]; k++ {
		r := c.pos(c.ind[k])
		if r < 0 {
			continue
		}
		v := c.data[k]
		if w != nil {
			sxx += w[r] * v * v
			sx += w[r] * v
		} else {
			sxx += v * v
			sx += v
		}
	}
	return sxx, sx
}

func (c *CSC) ColStats(j int) ColStats {
	st := ColStats{Min: math.Inf(1), Max: math.Inf(-1)}
	nnz := 0
	for k := c.indptr[j]; k < c.indptr[j+1]; k++ {
		if c.pos(c.ind[k]) < 0 {
			continue
		}
		v := c.data[k]
		nnz++
		st.Sum += v
		st.SumSq += v * v
		st.AbsSum += math.Abs(v)
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	if nnz < c.n {
		st.Min = math.Min(st.Min, 0)
		st.Max = math.Max(st.Max, 0)
	}
	return st
}

// Rows returns a view of the given rows, which must be distinct.
func (c *CSC) Rows(idx []int) (Design, error) {
	if err := checkRows(idx, c.n); err != nil {
		return nil, err
	}
	rowmap := make([]int, c.nrow)
	for i := range rowmap {
		rowmap[i] = -1
	}
	rows := make([]int, len(idx))
	for k, i := range idx {
		if c.rows != nil {
			i = c.rows[i]
		}
		rowmap[i] = k
		rows[k] = i
	}
	return &CSC{
		indptr: c.indptr,
		ind:    c.ind,
		data:   c.data,
		nrow:   c.nrow,
		rowmap: rowmap,
		rows:   rows,
		n:      len(idx),
		p:      c.p,
	}, nil
}
