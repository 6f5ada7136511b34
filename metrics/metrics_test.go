package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {

	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.SolverRun("quadratic", "hybrid", 12, true)
	r.SolverRun("quadratic", "hybrid", 100, false)
	r.KKTRetry()
	r.KKTExhausted()
	r.PathFitted(20)
	r.FoldFitted()
	r.FoldFitted()
	r.Since("fit", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fits.WithLabelValues("quadratic", "hybrid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.nonConverged.WithLabelValues("quadratic", "hybrid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.kktRetries))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cvFits))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.SolverRun("logistic", "pgd", 1, true)
		r.KKTRetry()
		r.KKTExhausted()
		r.PathFitted(1)
		r.FoldFitted()
		r.Since("cv", time.Now())
	})
}
