package main

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/kshedden/sortedl1/simulate"
	"github.com/kshedden/sortedl1/slope"
	"github.com/spf13/cobra"
)

// dataFlags are the input options shared by fit, path and cv.
type dataFlags struct {
	data     string
	response string
	sparse   bool
}

func (df *dataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&df.data, "data", "", "CSV file with a header row")
	cmd.Flags().StringVar(&df.response, "response", "y", "name of the response variable")
	cmd.Flags().BoolVar(&df.sparse, "sparse", false, "store the covariates in compressed sparse column form")
	_ = cmd.MarkFlagRequired("data")
}

func (df *dataFlags) load() (*modelData, error) {
	ds, err := readCSVFile(df.data)
	if err != nil {
		return nil, err
	}
	return splitData(ds, df.response, df.sparse)
}

func newFitCmd(a *app) *cobra.Command {

	var df dataFlags
	var alpha float64

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit SLOPE at a single alpha",
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := df.load()
			if err != nil {
				return err
			}
			rslt, err := slope.Fit(md.x, md.y, nil, alpha, a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rslt.Summary(md.names).String())
			return nil
		},
	}

	df.register(cmd)
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "penalty scale")
	_ = cmd.MarkFlagRequired("alpha")

	return cmd
}

func newPathCmd(a *app) *cobra.Command {

	var df dataFlags
	var plotFile, outFile string

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Fit SLOPE along a regularization path",
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := df.load()
			if err != nil {
				return err
			}
			pa, err := slope.FitPath(md.x, md.y, nil, nil, a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), pa.Summary().String())

			if outFile != "" {
				err := writeFile(outFile, func(w io.Writer) error {
					return writePathCSV(w, pa, md.names)
				})
				if err != nil {
					return err
				}
			}
			if plotFile != "" {
				return pathPlot(pa, md.names, plotFile)
			}
			return nil
		},
	}

	df.register(cmd)
	cmd.Flags().StringVar(&plotFile, "plot", "", "write a coefficient path plot to this file")
	cmd.Flags().StringVar(&outFile, "out", "", "write the path coefficients to this CSV file")

	return cmd
}

func newCVCmd(a *app) *cobra.Command {

	var df dataFlags
	var plotFile string

	cmd := &cobra.Command{
		Use:   "cv",
		Short: "Select q, gamma and alpha by cross-validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := df.load()
			if err != nil {
				return err
			}
			cv, err := slope.CrossValidate(md.x, md.y, nil, nil, a.cfg, a.cvcfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cv.Summary().String())

			// Refit on all data at the selected hyperparameters.
			best := cv.Best()
			cfg := a.cfg
			cfg.Q = best.Q
			cfg.Gamma = best.Gamma
			rslt, err := slope.Fit(md.x, md.y, nil, cv.BestAlpha(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rslt.Summary(md.names).String())

			if plotFile != "" {
				return cvPlot(cv, plotFile)
			}
			return nil
		},
	}

	df.register(cmd)
	cmd.Flags().StringVar(&plotFile, "plot", "", "write a cross-validation curve to this file")

	return cmd
}

func newSimulateCmd(a *app) *cobra.Command {

	sc := simulate.DefaultConfig()
	var outFile string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write a simulated data set as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := simulate.Generate(sc)
			if err != nil {
				return err
			}

			write := func(w io.Writer) error {
				return writeDataCSV(w, d)
			}
			if outFile != "" {
				err = writeFile(outFile, write)
			} else {
				err = write(cmd.OutOrStdout())
			}
			if err != nil {
				return errors.Wrap(err, "writing simulated data")
			}
			a.log.Debug("simulated data", "loss", sc.Loss, "n", sc.N, "p", sc.P, "nonzero", sc.Nonzero)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&sc.Loss, "loss", sc.Loss, "quadratic, logistic, poisson or multinomial")
	fl.IntVar(&sc.N, "n", sc.N, "number of observations")
	fl.IntVar(&sc.P, "p", sc.P, "number of covariates")
	fl.IntVar(&sc.Nonzero, "nonzero", sc.Nonzero, "number of covariates with nonzero coefficients")
	fl.IntVar(&sc.Classes, "classes", sc.Classes, "number of classes of a multinomial response")
	fl.Float64Var(&sc.Signal, "signal", sc.Signal, "magnitude of the nonzero coefficients")
	fl.Float64Var(&sc.Noise, "noise", sc.Noise, "error standard deviation of quadratic data")
	fl.Float64Var(&sc.Rho, "rho", sc.Rho, "correlation of neighboring covariates")
	fl.Uint64Var(&sc.Seed, "seed", sc.Seed, "random seed")
	fl.StringVar(&outFile, "out", "", "output file, standard output if empty")

	return cmd
}
