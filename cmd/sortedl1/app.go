package main

import (
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/kshedden/sortedl1/metrics"
	"github.com/kshedden/sortedl1/slope"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// app holds the state shared by the subcommands.
type app struct {
	metricsFile string
	verbose     bool
	configFile  string

	log      *slog.Logger
	registry *prometheus.Registry
	recorder *metrics.Recorder

	cfg   slope.Config
	cvcfg slope.CVConfig
}

// fileConfig is the layout of the YAML configuration file.
type fileConfig struct {
	Fit slope.Config   `yaml:"fit"`
	CV  slope.CVConfig `yaml:"cv"`
}

func (a *app) setup(cmd *cobra.Command, args []string) error {

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if a.metricsFile != "" {
		a.registry = prometheus.NewRegistry()
		a.recorder = metrics.NewRecorder(a.registry)
	}

	fc, err := loadConfig(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = fc.Fit
	a.cvcfg = fc.CV
	a.cfg.Log = a.log
	a.cfg.Metrics = a.recorder

	return nil
}

// loadConfig reads the YAML configuration, starting from the defaults so
// that the file only needs the settings it changes.  An empty path gives
// the defaults.
func loadConfig(path string) (*fileConfig, error) {

	fc := &fileConfig{
		Fit: slope.DefaultConfig(),
		CV:  slope.DefaultCVConfig(),
	}
	if path == "" {
		return fc, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading configuration")
	}
	if err := yaml.Unmarshal(b, fc); err != nil {
		return nil, errors.Wrapf(err, "parsing configuration %s", path)
	}

	if err := fc.Fit.Validate(); err != nil {
		return nil, err
	}
	if err := fc.CV.Validate(); err != nil {
		return nil, err
	}

	return fc, nil
}

func (a *app) writeMetrics() error {
	if a.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
		return errors.Wrap(err, "writing metrics")
	}
	a.log.Debug("metrics written", "file", a.metricsFile)
	return nil
}
