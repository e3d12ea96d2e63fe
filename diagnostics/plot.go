// Package diagnostics renders fit diagnostics with gonum/plot.
package diagnostics

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/censreg/pkg/errors"
)

const (
	defaultWidth  = 6 * vg.Inch
	defaultHeight = 4 * vg.Inch
)

// LossCurve plots the objective value against the iteration number.
// Non-finite entries are skipped.
func LossCurve(history []float64) (*plot.Plot, error) {
	pts := make(plotter.XYs, 0, len(history))
	for i, v := range history {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i), Y: v})
	}
	if len(pts) == 0 {
		return nil, errors.NewValueError("LossCurve", "loss history has no finite values")
	}

	p := plot.New()
	p.Title.Text = "Training loss"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "negative log-likelihood"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "loss curve")
	}
	line.Color = color.RGBA{B: 200, A: 255}
	p.Add(line, plotter.NewGrid())
	return p, nil
}

// FittedVsObserved scatters observed responses against fitted values for
// every (batch, observation) pair, with the identity line for reference.
func FittedVsObserved(observed, fitted mat.Matrix) (*plot.Plot, error) {
	const op = "FittedVsObserved"
	ro, co := observed.Dims()
	rf, cf := fitted.Dims()
	if ro == 0 || co == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	if ro != rf {
		return nil, errors.NewDimensionError(op, ro, rf, 0)
	}
	if co != cf {
		return nil, errors.NewDimensionError(op, co, cf, 1)
	}

	pts := make(plotter.XYs, 0, ro*co)
	for i := 0; i < ro; i++ {
		for j := 0; j < co; j++ {
			x, y := fitted.At(i, j), observed.At(i, j)
			if math.IsNaN(x+y) || math.IsInf(x+y, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: x, Y: y})
		}
	}
	if len(pts) == 0 {
		return nil, errors.NewValueError(op, "no finite points")
	}

	p := plot.New()
	p.Title.Text = "Fitted vs observed"
	p.X.Label.Text = "fitted"
	p.Y.Label.Text = "observed"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "fitted vs observed")
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = color.RGBA{R: 200, A: 255}

	identity := plotter.NewFunction(func(x float64) float64 { return x })
	identity.Color = color.Gray{Y: 96}
	identity.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(scatter, identity, plotter.NewGrid())
	p.Legend.Add("observations", scatter)
	p.Legend.Add("y = x", identity)
	return p, nil
}

// Save writes p to path. The format follows the file extension
// (png, svg, pdf, ...).
func Save(p *plot.Plot, path string) error {
	if err := p.Save(defaultWidth, defaultHeight, path); err != nil {
		return errors.Wrapf(err, "save plot to %s", path)
	}
	return nil
}

// SaveLossCurve is LossCurve followed by Save.
func SaveLossCurve(history []float64, path string) error {
	p, err := LossCurve(history)
	if err != nil {
		return err
	}
	return Save(p, path)
}
