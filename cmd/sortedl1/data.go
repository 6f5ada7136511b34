package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/kshedden/sortedl1/simulate"
	"github.com/kshedden/sortedl1/slope"
	"github.com/kshedden/sortedl1/statmodel"
)

// readCSV reads a numeric CSV file with a header row of variable names.
func readCSV(r io.Reader) (*statmodel.Dataset, error) {

	rdr := csv.NewReader(r)
	rdr.TrimLeadingSpace = true

	names, err := rdr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV header")
	}

	data := make([][]statmodel.Dtype, len(names))
	for line := 2; ; line++ {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading CSV line %d", line)
		}
		for j, s := range rec {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "CSV line %d, column %s", line, names[j])
			}
			data[j] = append(data[j], v)
		}
	}

	if len(data) == 0 || len(data[0]) == 0 {
		return nil, errors.New("the CSV file has no data")
	}

	return statmodel.NewDataset(data, names), nil
}

func readCSVFile(path string) (*statmodel.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening data")
	}
	defer f.Close()
	return readCSV(f)
}

// writeFile creates path and fills it with write.  An error from closing
// the file is returned like a write error.
func writeFile(path string, write func(io.Writer) error) error {

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", path)
	}
	return nil
}

// modelData is a design and response extracted from a dataset.
type modelData struct {
	x     slope.Design
	y     [][]float64
	names []string
}

// splitData separates the response from the covariates.  With sparse the
// covariates are stored in compressed column form.
func splitData(ds *statmodel.Dataset, response string, sparse bool) (*modelData, error) {

	y, xcols, names, err := ds.Split(response)
	if err != nil {
		return nil, err
	}
	if len(xcols) == 0 {
		return nil, errors.New("the data have no covariates")
	}

	md := &modelData{y: [][]float64{y}, names: names}
	if sparse {
		md.x = cscFromColumns(xcols)
	} else {
		md.x, err = slope.NewDense(xcols)
		if err != nil {
			return nil, err
		}
	}

	return md, nil
}

// cscFromColumns stores the nonzero values of the columns.
func cscFromColumns(cols [][]float64) *slope.CSC {

	n, p := len(cols[0]), len(cols)
	indptr := make([]int, p+1)
	var ind []int
	var data []float64
	for j, col := range cols {
		for i, v := range col {
			if v != 0 {
				ind = append(ind, i)
				data = append(data, v)
			}
		}
		indptr[j+1] = len(data)
	}

	// The arrays are consistent by construction.
	c, err := slope.NewCSC(n, p, indptr, ind, data)
	if err != nil {
		panic(err)
	}
	return c
}

// writeDataCSV writes simulated data with a header row.
func writeDataCSV(w io.Writer, d *simulate.Data) error {

	ds := d.Dataset()
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Names()); err != nil {
		return err
	}

	cols := ds.Data()
	rec := make([]string, len(cols))
	for i := 0; i < ds.NumObs(); i++ {
		for j := range cols {
			rec[j] = strconv.FormatFloat(cols[j][i], 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// writePathCSV writes one row per path step with the alpha, deviance
// ratio, intercepts and coefficients.
func writePathCSV(w io.Writer, pa *slope.PathResult, names []string) error {

	m := len(pa.Intercepts)
	cw := csv.NewWriter(w)

	head := []string{"alpha", "dev_ratio"}
	for r := 0; r < m; r++ {
		head = append(head, label("(intercept)", r, m))
		for _, na := range names {
			head = append(head, label(na, r, m))
		}
	}
	if err := cw.Write(head); err != nil {
		return err
	}

	f := func(v float64) string {
		return strconv.FormatFloat(v, 'g', 8, 64)
	}
	for i := 0; i < pa.Len(); i++ {
		rec := []string{f(pa.Alphas[i]), f(pa.DevRatios[i])}
		for r := 0; r < m; r++ {
			rec = append(rec, f(pa.Intercepts[r][i]))
			for j := range names {
				rec = append(rec, f(pa.Coefs[i].At(j, r)))
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func label(name string, r, m int) string {
	if m == 1 {
		return name
	}
	return fmt.Sprintf("%s:%d", name, r+1)
}
