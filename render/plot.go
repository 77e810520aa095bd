package render

import (
	"errors"
	"image/color"
	"io"

	"github.com/soypat/tectonic/strain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// StrainHistoryPlot plots the principal strains of the samples against
// time. The time axis is inverted so the present is on the right.
func StrainHistoryPlot(samples []strain.Sample) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, errors.New("no strain samples to plot")
	}
	s1 := make(plotter.XYs, len(samples))
	s2 := make(plotter.XYs, len(samples))
	for i, s := range samples {
		p := s.Strain.Principal()
		s1[i] = plotter.XY{X: s.Time, Y: p.Strain1}
		s2[i] = plotter.XY{X: s.Time, Y: p.Strain2}
	}
	p := plot.New()
	p.Title.Text = "Principal strain"
	p.X.Label.Text = "Time (Ma)"
	p.Y.Label.Text = "Stretch - 1"
	p.X.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(plotter.NewGrid())

	l1, err := plotter.NewLine(s1)
	if err != nil {
		return nil, err
	}
	l1.Color = color.RGBA{R: 200, A: 255}
	l2, err := plotter.NewLine(s2)
	if err != nil {
		return nil, err
	}
	l2.Color = color.RGBA{B: 200, A: 255}
	l2.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(l1, l2)
	p.Legend.Add("strain 1", l1)
	p.Legend.Add("strain 2", l2)
	p.Legend.Top = true
	return p, nil
}

// PlotStrainHistory saves the plot of a strain history to path. The image
// format is taken from the file extension.
func PlotStrainHistory(h *strain.History, path string) error {
	p, err := StrainHistoryPlot(h.Samples())
	if err != nil {
		return err
	}
	return p.Save(plotWidth, plotHeight, path)
}

// WriteStrainHistory writes the plot of a strain history to w in format,
// one of the formats supported by plot.Plot.WriterTo such as "png" or "svg".
func WriteStrainHistory(w io.Writer, h *strain.History, format string) error {
	p, err := StrainHistoryPlot(h.Samples())
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
