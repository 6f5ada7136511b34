package statmodel

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

type Dtype = float64

// Dataset is a collection of named variables stored by column.  Column
// storage matches the layout used by the fitting routines, so a Dataset
// can be handed to a design matrix without copying.
type Dataset struct {
	data  [][]Dtype
	names []string
}

// NewDataset returns a dataset containing the given columns.  All columns
// must have the same length.
func NewDataset(data [][]Dtype, names []string) *Dataset {

	if len(data) != len(names) {
		msg := fmt.Sprintf("NewDataset: %d columns but %d names\n", len(data), len(names))
		panic(msg)
	}

	for j := range data {
		if len(data[j]) != len(data[0]) {
			msg := fmt.Sprintf("NewDataset: column '%s' has length %d, expected %d\n",
				names[j], len(data[j]), len(data[0]))
			panic(msg)
		}
	}

	return &Dataset{
		data:  data,
		names: names,
	}
}

// Data returns the columns of the dataset.
func (ds *Dataset) Data() [][]Dtype {
	return ds.data
}

// Names returns the variable names.
func (ds *Dataset) Names() []string {
	return ds.names
}

// NumObs returns the number of observations.
func (ds *Dataset) NumObs() int {
	if len(ds.data) == 0 {
		return 0
	}
	return len(ds.data[0])
}

// NumVar returns the number of variables.
func (ds *Dataset) NumVar() int {
	return len(ds.data)
}

// Pos returns the column position of the named variable, or -1 if the
// variable is not present.
func (ds *Dataset) Pos(name string) int {
	for j, na := range ds.names {
		if na == name {
			return j
		}
	}
	return -1
}

// Split separates the named variable from the others, returning the
// named column and the remaining columns with their names.
func (ds *Dataset) Split(name string) ([]Dtype, [][]Dtype, []string, error) {

	pos := ds.Pos(name)
	if pos == -1 {
		return nil, nil, nil, errors.Newf("variable %q not found in dataset", name)
	}

	var x [][]Dtype
	var xnames []string
	for j := range ds.data {
		if j != pos {
			x = append(x, ds.data[j])
			xnames = append(xnames, ds.names[j])
		}
	}

	return ds.data[pos], x, xnames, nil
}

// SummaryTable is a plain text report of a fitted model: a centered
// title, a block of summary values laid out two per line, and a table
// with one formatted column per entry of Cols.
type SummaryTable struct {
	Title string

	// Summary values shown above the table
	Top []string

	ColNames []string

	// ColFmt[j] renders Cols[j], whose concrete type is a slice such
	// as []float64 or []string.
	ColFmt []Fmter
	Cols   []interface{}

	// Messages shown below the table
	Msg []string
}

// Fmter renders a column of values given the column heading.
type Fmter func(interface{}, string) []string

// FmtStrings left-justifies a []string column to a common width.
func FmtStrings(x interface{}, h string) []string {
	y := x.([]string)
	w := len(h)
	for _, v := range y {
		w = max(w, len(v))
	}
	z := make([]string, len(y))
	for i, v := range y {
		z[i] = v + strings.Repeat(" ", w-len(v))
	}
	return z
}

// FmtFloats formats a []float64 column with four decimals.
func FmtFloats(x interface{}, h string) []string {
	return fmtEach(x.([]float64), "%12.4f")
}

// FmtInts formats an []int column.
func FmtInts(x interface{}, h string) []string {
	return fmtEach(x.([]int), "%8d")
}

func fmtEach[T any](x []T, verb string) []string {
	z := make([]string, len(x))
	for i, v := range x {
		z[i] = fmt.Sprintf(verb, v)
	}
	return z
}

// topGap separates the two summary values on a line.
const topGap = 10

// String returns the table as a string.
func (s *SummaryTable) String() string {

	cells := make([][]string, len(s.Cols))
	widths := make([]int, len(s.Cols))
	nrow := 0
	for j, c := range s.Cols {
		cells[j] = s.ColFmt[j](c, s.ColNames[j])
		widths[j] = len(s.ColNames[j])
		for _, v := range cells[j] {
			widths[j] = max(widths[j], len(v))
		}
		nrow = max(nrow, len(cells[j]))
	}

	// The summary values are padded to a common width and placed in
	// two columns.
	tw := len(s.Title)
	sum := 0
	for _, w := range widths {
		sum += w
	}
	tw = max(tw, sum)
	vw := 0
	for _, v := range s.Top {
		vw = max(vw, len(v))
	}
	if len(s.Top) > 0 {
		tw = max(tw, topGap+2*vw)
	}

	var b strings.Builder
	rule := func(c string) {
		b.WriteString(strings.Repeat(c, tw) + "\n")
	}

	b.WriteString(strings.Repeat(" ", max(0, (tw-len(s.Title))/2)) + s.Title + "\n")
	rule("=")
	for i := 0; i < len(s.Top); i += 2 {
		if i+1 < len(s.Top) {
			fmt.Fprintf(&b, "%-*s%s%s\n", vw, s.Top[i], strings.Repeat(" ", topGap), s.Top[i+1])
		} else {
			b.WriteString(s.Top[i] + "\n")
		}
	}
	rule("-")

	for j, na := range s.ColNames {
		fmt.Fprintf(&b, "%*s", widths[j], na)
	}
	b.WriteString("\n")
	rule("-")
	for i := 0; i < nrow; i++ {
		for j := range cells {
			v := ""
			if i < len(cells[j]) {
				v = cells[j][i]
			}
			fmt.Fprintf(&b, "%*s", widths[j], v)
		}
		b.WriteString("\n")
	}
	rule("-")

	for _, m := range s.Msg {
		b.WriteString(m + "\n")
	}

	return b.String()
}
