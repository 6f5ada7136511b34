package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/kshedden/sortedl1/simulate"
	"github.com/kshedden/sortedl1/slope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errb bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errb)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReadCSV(t *testing.T) {

	ds, err := readCSV(strings.NewReader("y,a,b\n1,2,3\n4, 5,6\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "a", "b"}, ds.Names())
	assert.Equal(t, 2, ds.NumObs())

	md, err := splitData(ds, "y", true)
	require.NoError(t, err)
	n, p := md.x.Dims()
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, p)
	assert.Equal(t, []string{"a", "b"}, md.names)
	assert.Equal(t, []float64{1, 4}, md.y[0])

	for _, bad := range []string{"", "y,a\n", "y,a\n1,x\n", "y,a\n1,2,3\n"} {
		_, err := readCSV(strings.NewReader(bad))
		assert.Error(t, err, bad)
	}

	_, err = splitData(ds, "z", false)
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {

	fc, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, slope.DefaultConfig().Loss, fc.Fit.Loss)

	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	yml := `
fit:
  loss: logistic
  q: 0.2
  solver: fista
cv:
  n_folds: 5
  gamma: [0, 1]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	fc, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "logistic", fc.Fit.Loss)
	assert.Equal(t, 0.2, fc.Fit.Q)
	assert.Equal(t, slope.SolverFISTA, fc.Fit.Solver)
	assert.Equal(t, 5, fc.CV.NFolds)
	assert.Equal(t, []float64{0, 1}, fc.CV.Gamma)

	// Unchanged settings keep their defaults.
	assert.Equal(t, slope.DefaultConfig().Tol, fc.Fit.Tol)
	assert.True(t, fc.Fit.FitIntercept)

	require.NoError(t, os.WriteFile(path, []byte("fit:\n  q: 2\n"), 0o644))
	_, err = loadConfig(path)
	assert.Error(t, err)

	_, err = loadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestCommands(t *testing.T) {

	dir := t.TempDir()
	data := filepath.Join(dir, "data.csv")
	metricsFile := filepath.Join(dir, "metrics.prom")

	_, err := run(t, "simulate", "--loss", "logistic", "--n", "80", "--p", "8",
		"--nonzero", "3", "--seed", "2", "--out", data)
	require.NoError(t, err)

	ds, err := readCSVFile(data)
	require.NoError(t, err)
	assert.Equal(t, 80, ds.NumObs())
	assert.Equal(t, 9, ds.NumVar())

	cfgFile := filepath.Join(dir, "cfg.yaml")
	yml := "fit:\n  loss: logistic\n  path_length: 10\ncv:\n  n_folds: 4\n  metric: misclass\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(yml), 0o644))

	out, err := run(t, "fit", "--config", cfgFile, "--data", data, "--alpha", "0.01", "--sparse")
	require.NoError(t, err)
	assert.Contains(t, out, "SLOPE fit")
	assert.Contains(t, out, "logistic")

	pathCSV := filepath.Join(dir, "path.csv")
	pathPNG := filepath.Join(dir, "path.png")
	out, err = run(t, "path", "--config", cfgFile, "--data", data, "--out", pathCSV, "--plot", pathPNG,
		"--metrics-file", metricsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "SLOPE path")
	assert.FileExists(t, pathPNG)

	pc, err := readCSVFile(pathCSV)
	require.NoError(t, err)
	assert.Equal(t, 11, pc.NumVar())
	assert.LessOrEqual(t, pc.NumObs(), 10)

	b, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), "sortedl1_solver_runs_total")
	assert.Contains(t, string(b), "sortedl1_path_steps")

	cvPNG := filepath.Join(dir, "cv.png")
	out, err = run(t, "cv", "--config", cfgFile, "--data", data, "--plot", cvPNG, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "SLOPE cross-validation")
	assert.Contains(t, out, "misclass")
	assert.FileExists(t, cvPNG)

	_, err = run(t, "fit", "--data", data)
	assert.Error(t, err)

	_, err = run(t, "fit", "--data", filepath.Join(dir, "missing.csv"), "--alpha", "1")
	assert.Error(t, err)
}

func TestWriteDataCSV(t *testing.T) {

	cfg := simulate.DefaultConfig()
	cfg.N = 5
	cfg.P = 2
	cfg.Nonzero = 1
	d, err := simulate.Generate(cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeDataCSV(&buf, d))

	ds, err := readCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x1", "x2"}, ds.Names())
	assert.Equal(t, d.Y, ds.Data()[0])
	assert.Equal(t, d.X[1], ds.Data()[2])
}

func TestWriteFile(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	err := writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "a,b\n")
		return err
	})
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(b))

	err = writeFile(path, func(w io.Writer) error {
		return errors.New("no space")
	})
	assert.ErrorContains(t, err, "no space")

	err = writeFile(filepath.Join(dir, "missing", "out.txt"), func(io.Writer) error { return nil })
	assert.Error(t, err)
}
