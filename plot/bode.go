// Package plot renders frequency sweeps as Bode magnitude charts.
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/c360studio/ampdesign/nodal"
)

// Default image size.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// ErrNoPoints is returned when there is nothing to draw.
var ErrNoPoints = errors.New("no plottable points")

// Bode draws |H| in dB against a logarithmic frequency axis. Points with a
// non-positive frequency or a non-finite magnitude are rejected.
func Bode(points []nodal.Point, title string) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		if pt.Freq <= 0 || math.IsNaN(pt.MagnitudeDB) || math.IsInf(pt.MagnitudeDB, 0) {
			return nil, fmt.Errorf("point %d (%g Hz, %g dB): %w", i, pt.Freq, pt.MagnitudeDB, ErrNoPoints)
		}
		xys[i].X = pt.Freq
		xys[i].Y = pt.MagnitudeDB
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frequency (Hz)"
	p.Y.Label.Text = "Magnitude (dB)"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("build magnitude line: %w", err)
	}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	return p, nil
}

// WriteSVG renders the Bode plot as SVG.
func WriteSVG(w io.Writer, points []nodal.Point, title string) error {
	return write(w, points, title, "svg")
}

// WritePNG renders the Bode plot as PNG.
func WritePNG(w io.Writer, points []nodal.Point, title string) error {
	return write(w, points, title, "png")
}

func write(w io.Writer, points []nodal.Point, title, format string) error {
	p, err := Bode(points, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}
