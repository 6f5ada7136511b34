// Command sortedl1 fits SLOPE models to CSV data.
//
//	sortedl1 simulate --loss logistic --n 200 --p 30 --out data.csv
//	sortedl1 fit --data data.csv --response y --alpha 0.05
//	sortedl1 path --data data.csv --response y --plot path.png
//	sortedl1 cv --data data.csv --response y --config cfg.yaml --plot cv.png
//
// Model settings are read from an optional YAML file with a "fit" section
// holding slope.Config fields and a "cv" section holding slope.CVConfig
// fields, for example
//
//	fit:
//	  loss: logistic
//	  q: 0.2
//	  solver: fista
//	cv:
//	  n_folds: 5
//	  gamma: [0, 0.5, 1]
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd assembles the command tree.  Each call returns fresh flag
// state.
func newRootCmd() *cobra.Command {

	app := &app{}

	root := &cobra.Command{
		Use:   "sortedl1",
		Short: "Fit Sorted L1 penalized regression models",
		Long: `sortedl1 fits SLOPE (Sorted L1 Penalized Estimation) models with
quadratic, logistic, poisson and multinomial losses, along regularization
paths and with cross-validation.`,
		SilenceUsage:      true,
		PersistentPreRunE: app.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.writeMetrics()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&app.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	pf.BoolVarP(&app.verbose, "verbose", "v", false, "log solver progress")
	pf.StringVar(&app.configFile, "config", "", "YAML model configuration")

	root.AddCommand(
		newFitCmd(app),
		newPathCmd(app),
		newCVCmd(app),
		newSimulateCmd(app),
	)

	return root
}
