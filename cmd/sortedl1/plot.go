package main

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/kshedden/sortedl1/slope"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// pathPlot draws each coefficient against log10 alpha.  Only the
// coefficients that are nonzero somewhere on the path are drawn, and only
// those of the first linear predictor are labeled.
func pathPlot(pa *slope.PathResult, names []string, filename string) error {

	p := plot.New()
	p.Title.Text = "SLOPE path"
	p.X.Label.Text = "log10 alpha"
	p.Y.Label.Text = "Coefficient"

	ca := pa.CoefArray()
	var ci int
	for j := range ca {
		for r := range ca[j] {
			var pts plotter.XYs
			nz := false
			for i, c := range ca[j][r] {
				a := pa.Alphas[i]
				if a <= 0 {
					continue
				}
				pts = append(pts, plotter.XY{X: math.Log10(a), Y: c})
				nz = nz || c != 0
			}
			if !nz {
				continue
			}

			l, err := plotter.NewLine(pts)
			if err != nil {
				return errors.Wrap(err, "path plot")
			}
			l.Color = plotutil.Color(ci)
			l.Dashes = plotutil.Dashes(r)
			ci++
			p.Add(l)
			if r == 0 && j < len(names) {
				p.Legend.Add(names[j], l)
			}
		}
	}
	p.Legend.Left = true

	return save(p, filename)
}

type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

// cvPlot draws the mean cross-validation score with one standard error
// bars against log10 alpha, one curve per grid point.
func cvPlot(cv *slope.CVResult, filename string) error {

	p := plot.New()
	p.Title.Text = "SLOPE cross-validation"
	p.X.Label.Text = "log10 alpha"
	p.Y.Label.Text = fmt.Sprintf("Mean %s", cv.Metric)

	for gi, gp := range cv.Grid {
		var ep errPoints
		for i, a := range gp.Alphas {
			if a <= 0 {
				continue
			}
			ep.XYs = append(ep.XYs, plotter.XY{X: math.Log10(a), Y: gp.Means[i]})
			ep.YErrors = append(ep.YErrors, struct{ Low, High float64 }{gp.Errors[i], gp.Errors[i]})
		}

		l, err := plotter.NewLine(ep.XYs)
		if err != nil {
			return errors.Wrap(err, "cv plot")
		}
		l.Color = plotutil.Color(gi)
		eb, err := plotter.NewYErrorBars(ep)
		if err != nil {
			return errors.Wrap(err, "cv plot")
		}
		eb.Color = plotutil.Color(gi)

		p.Add(l, eb)
		p.Legend.Add(fmt.Sprintf("q=%.3g gamma=%.3g", gp.Q, gp.Gamma), l)
	}

	best := cv.Best()
	if a := cv.BestAlpha(); a > 0 {
		sel, err := plotter.NewScatter(plotter.XYs{{X: math.Log10(a), Y: best.Means[cv.BestAlphaIndex]}})
		if err != nil {
			return errors.Wrap(err, "cv plot")
		}
		sel.Radius = vg.Points(4)
		p.Add(sel)
	}

	return save(p, filename)
}

func save(p *plot.Plot, filename string) error {
	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		return errors.Wrapf(err, "saving plot %s", filename)
	}
	return nil
}
