// Package metrics records solver activity as Prometheus metrics.
//
// A Recorder is registered on a caller supplied registry so that several
// independent recorders (e.g. in tests) never collide on the default
// registry.  All methods are safe on a nil *Recorder, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sortedl1"

// Recorder holds the collectors for one registry.
type Recorder struct {

	// fits counts solver runs by loss and solver
	fits *prometheus.CounterVec

	// nonConverged counts solver runs that reached the iteration cap
	nonConverged *prometheus.CounterVec

	// passes tracks solver passes per run
	passes *prometheus.HistogramVec

	// kktRetries counts screening re-solves triggered by KKT violations
	kktRetries prometheus.Counter

	// kktExhausted counts fits that still had violations at the retry cap
	kktExhausted prometheus.Counter

	// pathSteps tracks the number of steps of each fitted path
	pathSteps prometheus.Histogram

	// cvFits counts fold fits run by cross-validation
	cvFits prometheus.Counter

	// duration tracks wall time of fit, path and cv calls
	duration *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {

	f := promauto.With(reg)

	return &Recorder{
		fits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solver_runs_total",
			Help:      "Total solver runs by loss and solver",
		}, []string{"loss", "solver"}),

		nonConverged: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solver_nonconverged_total",
			Help:      "Solver runs that reached the iteration cap",
		}, []string{"loss", "solver"}),

		passes: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solver_passes",
			Help:      "Passes over the data per solver run",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"solver"}),

		kktRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screening_kkt_retries_total",
			Help:      "Re-solves triggered by KKT violations outside the working set",
		}),

		kktExhausted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screening_kkt_exhausted_total",
			Help:      "Fits returned with KKT violations after the retry cap",
		}),

		pathSteps: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "path_steps",
			Help:      "Number of fitted steps per regularization path",
			Buckets:   []float64{1, 5, 10, 20, 50, 100, 200},
		}),

		cvFits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cv_fold_fits_total",
			Help:      "Path fits run on cross-validation training folds",
		}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Wall time of fit, path and cv calls",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		}, []string{"operation"}),
	}
}

// SolverRun records one solver run.
func (r *Recorder) SolverRun(loss, solver string, passes int, converged bool) {
	if r == nil {
		return
	}
	r.fits.WithLabelValues(loss, solver).Inc()
	r.passes.WithLabelValues(solver).Observe(float64(passes))
	if !converged {
		r.nonConverged.WithLabelValues(loss, solver).Inc()
	}
}

// KKTRetry records one screening re-solve.
func (r *Recorder) KKTRetry() {
	if r == nil {
		return
	}
	r.kktRetries.Inc()
}

// KKTExhausted records a fit returned with outstanding violations.
func (r *Recorder) KKTExhausted() {
	if r == nil {
		return
	}
	r.kktExhausted.Inc()
}

// PathFitted records the length of a fitted path.
func (r *Recorder) PathFitted(steps int) {
	if r == nil {
		return
	}
	r.pathSteps.Observe(float64(steps))
}

// FoldFitted records one cross-validation fold fit.
func (r *Recorder) FoldFitted() {
	if r == nil {
		return
	}
	r.cvFits.Inc()
}

// Since records the time elapsed since start for the operation.
func (r *Recorder) Since(operation string, start time.Time) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
