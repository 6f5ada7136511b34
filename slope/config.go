package slope

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/kshedden/sortedl1/metrics"
)

// LambdaType selects the rule used to generate the penalty sequence.
type LambdaType string

// The supported penalty sequences.
const (
	LambdaBH       LambdaType = "bh"
	LambdaGaussian LambdaType = "gaussian"
	LambdaOSCAR    LambdaType = "oscar"
	LambdaLasso    LambdaType = "lasso"
)

// Centering selects how the design columns are centered.
type Centering string

// The supported centering rules.
const (
	CenterNone Centering = "none"
	CenterMean Centering = "mean"
	CenterMin  Centering = "min"
)

// Scaling selects how the design columns are scaled.
type Scaling string

// The supported scaling rules.
const (
	ScaleNone   Scaling = "none"
	ScaleSD     Scaling = "sd"
	ScaleL1     Scaling = "l1"
	ScaleL2     Scaling = "l2"
	ScaleMaxAbs Scaling = "max_abs"
)

// Solver selects the optimization algorithm.
type Solver string

// The supported solvers.
const (
	SolverHybrid Solver = "hybrid"
	SolverPGD    Solver = "pgd"
	SolverFISTA  Solver = "fista"
)

// CDOrder selects the order in which clusters are visited by coordinate
// descent.
type CDOrder string

// Clusters are visited in order of decreasing magnitude, or in a
// seeded random order drawn for every sweep.
const (
	CDCyclical CDOrder = "cyclical"
	CDPermuted CDOrder = "permuted"
)

// Screening selects the predictor screening rule.
type Screening string

// The supported screening rules.
const (
	ScreenNone   Screening = "none"
	ScreenStrong Screening = "strong"
)

// Config holds the parameters of a SLOPE fit.  Start from DefaultConfig
// and modify fields as needed.
type Config struct {

	// Loss is one of quadratic, logistic, multinomial and poisson.
	Loss string `yaml:"loss" validate:"oneof=quadratic logistic multinomial poisson"`

	// LambdaType is the rule used to generate lambda when the caller
	// does not supply one.
	LambdaType LambdaType `yaml:"lambda_type" validate:"oneof=bh gaussian oscar lasso"`

	// Q is the false discovery rate parameter of the bh and gaussian
	// sequences.
	Q float64 `yaml:"q" validate:"gt=0,lt=1"`

	// Theta1 and Theta2 are the intercept and slope of the oscar
	// sequence.
	Theta1 float64 `yaml:"theta1" validate:"gte=0"`
	Theta2 float64 `yaml:"theta2" validate:"gte=0"`

	Centering Centering `yaml:"centering" validate:"oneof=none mean min"`
	Scaling   Scaling   `yaml:"scaling" validate:"oneof=none sd l1 l2 max_abs"`

	FitIntercept bool `yaml:"fit_intercept"`

	Solver Solver `yaml:"solver" validate:"oneof=hybrid pgd fista"`

	// UpdateClusters enables merging and reordering of clusters
	// during coordinate descent.  When false the partition changes
	// only at proximal gradient steps.
	UpdateClusters bool `yaml:"update_clusters"`

	HybridCDType CDOrder `yaml:"hybrid_cd_type" validate:"oneof=cyclical permuted"`

	Screening Screening `yaml:"screening" validate:"oneof=none strong"`

	// Tol is the relative duality gap at which the solver stops.
	Tol float64 `yaml:"tol" validate:"gt=0"`

	// MaxIt caps the number of solver passes per fit.
	MaxIt int `yaml:"max_it" validate:"gt=0"`

	// PGDFreq is the number of hybrid iterations between proximal
	// gradient steps.
	PGDFreq int `yaml:"pgd_freq" validate:"gt=0"`

	// LearningRateDecr shrinks the step size in the line search.
	LearningRateDecr float64 `yaml:"learning_rate_decr" validate:"gt=0,lt=1"`

	PathLength int `yaml:"path_length" validate:"gt=0"`

	// AlphaMinRatio is the ratio of the smallest to the largest alpha
	// in a generated path.  Values <= 0 select it from the problem
	// dimensions.
	AlphaMinRatio float64 `yaml:"alpha_min_ratio" validate:"lt=1"`

	// The path stops early when the relative change in deviance falls
	// below TolDevChange or the deviance ratio exceeds TolDevRatio.
	TolDevChange float64 `yaml:"tol_dev_change" validate:"gte=0"`
	TolDevRatio  float64 `yaml:"tol_dev_ratio" validate:"gt=0,lte=1"`

	// MaxClusters stops the path once the number of nonzero clusters
	// exceeds it.  Values <= 0 use n+1.
	MaxClusters int `yaml:"max_clusters"`

	// Gamma blends each solution with an unpenalized refit on its
	// cluster structure, 0 gives plain SLOPE.
	Gamma float64 `yaml:"gamma" validate:"gte=0,lte=1"`

	// Seed drives the permuted coordinate descent order.
	Seed uint64 `yaml:"seed"`

	// Log receives progress records if not nil.
	Log *slog.Logger `yaml:"-" validate:"-"`

	// Metrics records solver activity if not nil.
	Metrics *metrics.Recorder `yaml:"-" validate:"-"`
}

// DefaultConfig returns the default configuration: quadratic loss, a
// Benjamini-Hochberg sequence with q = 0.1, standardized columns, an
// intercept, the hybrid solver and strong screening.
func DefaultConfig() Config {
	return Config{
		Loss:             "quadratic",
		LambdaType:       LambdaBH,
		Q:                0.1,
		Theta1:           1,
		Theta2:           1,
		Centering:        CenterMean,
		Scaling:          ScaleSD,
		FitIntercept:     true,
		Solver:           SolverHybrid,
		UpdateClusters:   false,
		HybridCDType:     CDCyclical,
		Screening:        ScreenStrong,
		Tol:              1e-4,
		MaxIt:            100000,
		PGDFreq:          10,
		LearningRateDecr: 0.5,
		PathLength:       100,
		AlphaMinRatio:    -1,
		TolDevChange:     1e-5,
		TolDevRatio:      0.999,
		MaxClusters:      -1,
	}
}

var validate = validator.New()

// Validate checks the configuration, returning an error marked with
// ErrValidation if a field is out of range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return invalid(err, "invalid configuration")
	}
	return nil
}

// alphaMinRatio resolves the automatic ratio of the smallest to the
// largest alpha.
func (c *Config) alphaMinRatio(n, p int) float64 {
	if c.AlphaMinRatio > 0 {
		return c.AlphaMinRatio
	}
	if n > p {
		return 1e-4
	}
	return 1e-2
}

// maxClusters resolves the automatic cap on the number of clusters.
func (c *Config) maxClusters(n int) int {
	if c.MaxClusters > 0 {
		return c.MaxClusters
	}
	return n + 1
}

func (c *Config) debug(msg string, args ...any) {
	if c.Log != nil {
		c.Log.Debug(msg, args...)
	}
}

func (c *Config) warn(msg string, args ...any) {
	if c.Log != nil {
		c.Log.Warn(msg, args...)
	}
}

// Metric selects the cross-validation score.
type Metric string

// The supported metrics.  Accuracy is maximized, the others minimized.
const (
	MetricMSE      Metric = "mse"
	MetricMAE      Metric = "mae"
	MetricDeviance Metric = "deviance"
	MetricMisclass Metric = "misclass"
	MetricAccuracy Metric = "accuracy"
)

// CVConfig holds the parameters of a cross-validation run.
type CVConfig struct {

	// Q and Gamma span the hyperparameter grid.
	Q     []float64 `yaml:"q" validate:"min=1,dive,gt=0,lt=1"`
	Gamma []float64 `yaml:"gamma" validate:"min=1,dive,gte=0,lte=1"`

	Metric Metric `yaml:"metric" validate:"oneof=mse mae deviance misclass accuracy"`

	NFolds   int `yaml:"n_folds" validate:"gte=2"`
	NRepeats int `yaml:"n_repeats" validate:"gte=1"`

	// Seed drives the fold permutations.
	Seed uint64 `yaml:"seed"`

	// PredefinedFolds, if not empty, replaces the generated folds.
	// It is indexed by repeat, fold and position.
	PredefinedFolds [][][]int `yaml:"predefined_folds"`

	// Workers bounds the number of concurrent fold fits, 0 uses the
	// number of CPUs.
	Workers int `yaml:"workers" validate:"gte=0"`
}

// DefaultCVConfig returns ten-fold cross-validation over q = 0.1 and
// gamma = 0, scored by deviance.
func DefaultCVConfig() CVConfig {
	return CVConfig{
		Q:        []float64{0.1},
		Gamma:    []float64{0},
		Metric:   MetricDeviance,
		NFolds:   10,
		NRepeats: 1,
	}
}

// Validate checks the cross-validation configuration.
func (c *CVConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return invalid(err, "invalid cross-validation configuration")
	}
	return nil
}
