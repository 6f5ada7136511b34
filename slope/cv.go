package slope

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/kshedden/sortedl1/glm"
	"github.com/kshedden/sortedl1/statmodel"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CVGridPoint holds the cross-validation scores of one hyperparameter
// combination.
type CVGridPoint struct {
	Q     float64
	Gamma float64

	// Alphas is the path of the full data fit, shared by all folds.
	Alphas []float64

	// Scores[f][i] is the score of fold f at Alphas[i], with the folds
	// of all repeats in order.
	Scores [][]float64

	// Means and Errors are the mean score at each alpha and its
	// standard error.
	Means  []float64
	Errors []float64
}

// CVResult is the outcome of a cross-validation run.
type CVResult struct {
	Metric Metric

	Grid []CVGridPoint

	// The best grid point, the best alpha within it and its mean score
	BestIndex      int
	BestAlphaIndex int
	BestScore      float64

	Folds Folds
}

// Best returns the selected grid point.
func (cv *CVResult) Best() CVGridPoint {
	return cv.Grid[cv.BestIndex]
}

// BestAlpha returns the selected alpha.
func (cv *CVResult) BestAlpha() float64 {
	return cv.Grid[cv.BestIndex].Alphas[cv.BestAlphaIndex]
}

// CrossValidate selects q, gamma and alpha by repeated k-fold
// cross-validation.  For every combination of cvcfg.Q and cvcfg.Gamma the
// full data path fixes the alpha sequence, which is then fit on the
// training rows of each fold and scored on the held-out rows.  Fold fits
// run concurrently on at most cvcfg.Workers goroutines and share the
// design, which is only read.
func CrossValidate(x Design, y [][]float64, lambda, alphas []float64, cfg Config, cvcfg CVConfig) (*CVResult, error) {

	start := time.Now()

	if err := cvcfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkMetric(cvcfg.Metric, cfg.Loss); err != nil {
		return nil, err
	}

	full, err := newProblem(x, y, lambda, &cfg)
	if err != nil {
		return nil, err
	}
	n := full.n

	var folds Folds
	if len(cvcfg.PredefinedFolds) > 0 {
		folds = Folds(cvcfg.PredefinedFolds)
		if err := folds.Validate(n); err != nil {
			return nil, err
		}
	} else {
		folds, err = NewFolds(n, cvcfg.NFolds, cvcfg.NRepeats, cvcfg.Seed)
		if err != nil {
			return nil, err
		}
	}

	var grid []CVGridPoint
	var cfgs []Config
	for _, q := range cvcfg.Q {
		for _, gamma := range cvcfg.Gamma {
			c := cfg
			c.Q = q
			c.Gamma = gamma
			cfgs = append(cfgs, c)
			grid = append(grid, CVGridPoint{Q: q, Gamma: gamma})
		}
	}

	workers := cvcfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	// The alpha sequence of each grid point comes from the full data.
	var eg errgroup.Group
	eg.SetLimit(workers)
	for gi := range grid {
		gi := gi
		eg.Go(func() error {
			pr, err := newProblem(x, y, lambda, &cfgs[gi])
			if err != nil {
				return err
			}
			pa, err := pr.path(alphas, alphas == nil)
			if err != nil {
				return err
			}
			grid[gi].Alphas = pa.Alphas
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	nf := folds.NumFits()
	for gi := range grid {
		grid[gi].Scores = make([][]float64, nf)
	}

	eg = errgroup.Group{}
	eg.SetLimit(workers)
	for gi := range grid {
		gi := gi
		fi := 0
		for r := range folds {
			r := r
			for k := range folds[r] {
				k := k
				slot := fi
				eg.Go(func() error {
					sc, err := foldScores(x, y, full, lambda, &cfgs[gi], grid[gi].Alphas,
						folds.Train(r, k, n), folds.Test(r, k), cvcfg.Metric)
					if err != nil {
						return err
					}
					grid[gi].Scores[slot] = sc
					cfg.Metrics.FoldFitted()
					return nil
				})
				fi++
			}
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for gi := range grid {
		grid[gi].Means, grid[gi].Errors = aggregate(grid[gi].Scores, len(grid[gi].Alphas))
	}

	cv := &CVResult{
		Metric: cvcfg.Metric,
		Grid:   grid,
		Folds:  folds,
	}
	cv.BestIndex, cv.BestAlphaIndex, cv.BestScore = selectBest(grid, cvcfg.Metric == MetricAccuracy)

	cfg.Metrics.Since("cv", start)
	cfg.debug("cross-validation done", "grid", len(grid), "folds", nf,
		"best", cv.BestIndex, "alpha_index", cv.BestAlphaIndex, "score", cv.BestScore)

	return cv, nil
}

// checkMetric rejects classification metrics for losses that do not
// predict classes.
func checkMetric(metric Metric, loss string) error {
	switch metric {
	case MetricMisclass, MetricAccuracy:
		if loss != "logistic" && loss != "multinomial" {
			return invalidf("metric %s requires a logistic or multinomial loss, not %s", metric, loss)
		}
	}
	return nil
}

// foldScores fits the path on the training rows and scores each alpha on
// the test rows.
func foldScores(x Design, y [][]float64, full *problem, lambda []float64, cfg *Config, alphas []float64,
	train, test []int, metric Metric) ([]float64, error) {

	xtr, err := x.Rows(train)
	if err != nil {
		return nil, err
	}
	xte, err := x.Rows(test)
	if err != nil {
		return nil, err
	}

	pr, err := newProblem(xtr, subRows(y, train), lambda, cfg)
	if err != nil {
		return nil, err
	}
	if ml, ok := pr.loss.(*glm.Multinomial); ok && pr.m != full.m {
		return nil, invalidf("a training fold has %d of the %d classes", len(ml.Classes), full.m+1)
	}

	// The alphas past an early stop are scored at the last fit.
	pa, err := pr.path(alphas, true)
	if err != nil {
		return nil, err
	}

	yte := subRows(full.y, test)

	sc := make([]float64, len(alphas))
	for i := range sc {
		fr := pa.Step(min(i, pa.Len()-1))
		eta := fr.LinearPredictor(xte)
		sc[i] = score(metric, full.loss, eta, yte)
	}

	return sc, nil
}

// score evaluates a metric at held-out linear predictors eta and working
// responses y.
func score(metric Metric, loss glm.Loss, eta, y [][]float64) float64 {

	n := len(y[0])

	if metric == MetricDeviance {
		return loss.Deviance(eta, y) / float64(n)
	}

	mu := alloc(len(eta), n)
	loss.InvLink(eta, mu)

	switch metric {
	case MetricMSE, MetricMAE:
		var s float64
		for k := range y {
			for i, v := range y[k] {
				d := v - mu[k][i]
				if metric == MetricMSE {
					s += d * d
				} else {
					s += math.Abs(d)
				}
			}
		}
		return s / float64(n*len(y))
	default:
		binary := loss.Name() == "logistic"
		var miss float64
		for i := 0; i < n; i++ {
			if predictedClass(mu, i, binary) != observedClass(y, i, binary) {
				miss++
			}
		}
		miss /= float64(n)
		if metric == MetricAccuracy {
			return 1 - miss
		}
		return miss
	}
}

// predictedClass returns the most probable class of observation i given
// the probabilities of the non-reference classes.  The reference class
// has index len(mu).  A binary outcome has the classes 0 and 1.
func predictedClass(mu [][]float64, i int, binary bool) int {
	if binary {
		if mu[0][i] > 0.5 {
			return 1
		}
		return 0
	}
	best := len(mu)
	pb := 1.0
	for k := range mu {
		pb -= mu[k][i]
	}
	for k := range mu {
		if mu[k][i] > pb {
			best, pb = k, mu[k][i]
		}
	}
	return best
}

// observedClass is the class of observation i encoded in y, matching
// predictedClass.
func observedClass(y [][]float64, i int, binary bool) int {
	if binary {
		return int(y[0][i])
	}
	for k := range y {
		if y[k][i] == 1 {
			return k
		}
	}
	return len(y)
}

// aggregate returns the mean and standard error over folds at each alpha.
func aggregate(scores [][]float64, na int) ([]float64, []float64) {
	means := make([]float64, na)
	errs := make([]float64, na)
	col := make([]float64, len(scores))
	for i := 0; i < na; i++ {
		for f := range scores {
			col[f] = scores[f][i]
		}
		mn, sd := stat.MeanStdDev(col, nil)
		means[i] = mn
		errs[i] = sd / math.Sqrt(float64(len(col)))
	}
	return means, errs
}

// selectBest returns the grid point, alpha index and mean score of the
// best mean score.  Ties go to the larger alpha, then the earlier grid
// point.
func selectBest(grid []CVGridPoint, maximize bool) (int, int, float64) {

	bg, ba := -1, -1
	best := math.NaN()
	for gi, gp := range grid {
		for i, v := range gp.Means {
			if math.IsNaN(v) {
				continue
			}
			better := bg == -1
			if !better {
				if maximize {
					better = v > best
				} else {
					better = v < best
				}
				better = better || (v == best && i < ba)
			}
			if better {
				bg, ba, best = gi, i, v
			}
		}
	}

	if bg == -1 {
		return 0, 0, math.NaN()
	}
	return bg, ba, best
}

// subRows returns the given rows of each column.
func subRows(y [][]float64, idx []int) [][]float64 {
	z := make([][]float64, len(y))
	for k := range y {
		z[k] = make([]float64, len(idx))
		for i, j := range idx {
			z[k][i] = y[k][j]
		}
	}
	return z
}

// Summary returns a table of the mean scores of the selected grid point.
func (cv *CVResult) Summary() *statmodel.SummaryTable {

	gp := cv.Best()
	lo := make([]float64, len(gp.Means))
	hi := make([]float64, len(gp.Means))
	floats.SubTo(lo, gp.Means, gp.Errors)
	floats.AddTo(hi, gp.Means, gp.Errors)

	return &statmodel.SummaryTable{
		Title:    "SLOPE cross-validation",
		ColNames: []string{"Alpha", "Mean", "SE", "Mean-SE", "Mean+SE"},
		ColFmt: []statmodel.Fmter{statmodel.FmtFloats, statmodel.FmtFloats, statmodel.FmtFloats,
			statmodel.FmtFloats, statmodel.FmtFloats},
		Cols: []interface{}{gp.Alphas, gp.Means, gp.Errors, lo, hi},
		Top: []string{
			fmt.Sprintf("Metric: %s", cv.Metric),
			fmt.Sprintf("Folds:  %d", cv.Folds.NumFits()),
			fmt.Sprintf("q:      %.3g", gp.Q),
			fmt.Sprintf("gamma:  %.3g", gp.Gamma),
			fmt.Sprintf("Best alpha: %.6g", cv.BestAlpha()),
			fmt.Sprintf("Best score: %.4f", cv.BestScore),
		},
	}
}
