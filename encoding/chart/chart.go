// Package chart renders training history series to image files.
package chart

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PNG plots a series as a line chart and saves it to Path. It satisfies the
// history plotter contract of the root package; width and height are in
// points.
type PNG struct {
	Path string
}

// Plot renders series with the x axis scaled by the recording step, so the
// chart stays in iteration units however much the history has decimated.
func (c PNG) Plot(title string, step int, series []float32, width, height int) error {
	if width < 1 || height < 1 {
		return errors.Errorf("chart: bad canvas %dx%d", width, height)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "score"

	xys := make(plotter.XYs, len(series))
	for i, v := range series {
		xys[i].X = float64(i * step)
		xys[i].Y = float64(v)
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "chart: line")
	}
	p.Add(plotter.NewGrid(), line)

	if err := p.Save(vg.Points(float64(width)), vg.Points(float64(height)), c.Path); err != nil {
		return errors.Wrapf(err, "chart: save %q", c.Path)
	}
	return nil
}
