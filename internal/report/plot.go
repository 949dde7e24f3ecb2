package report

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/banshee-data/geofit/internal/fsutil"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	inUseColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	unusedColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// ResidualPlot builds a scatter plot of signed distance against
// observation ID, with in-use and unused observations in separate series.
func ResidualPlot(s Summary) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s residuals - stdev %.4g", s.Primitive, s.Stdev)
	p.X.Label.Text = "Observation ID"
	p.Y.Label.Text = "Distance"
	if s.Units != "" {
		p.Y.Label.Text = fmt.Sprintf("Distance (%s)", s.Units)
	}
	p.Add(plotter.NewGrid())

	var used, unused plotter.XYs
	for _, r := range s.Rows {
		xy := plotter.XY{X: float64(r.ID), Y: r.Distance}
		if r.InUse {
			used = append(used, xy)
		} else {
			unused = append(unused, xy)
		}
	}

	for _, series := range []struct {
		label string
		pts   plotter.XYs
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"in use", used, inUseColor, draw.CircleGlyph{}},
		{"not used", unused, unusedColor, draw.CrossGlyph{}},
	} {
		if len(series.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(series.pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = series.color
		sc.GlyphStyle.Shape = series.shape
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add(series.label, sc)
	}

	if s.FormError != nil {
		p.Legend.Add(fmt.Sprintf("form error %.4g", *s.FormError))
	}
	return p, nil
}

// WriteResidualPlot renders ResidualPlot to path. The image format follows
// the file extension (png, svg, pdf).
func WriteResidualPlot(fsys fsutil.FileSystem, path string, s Summary) error {
	p, err := ResidualPlot(s)
	if err != nil {
		return fmt.Errorf("failed to build residual plot: %w", err)
	}

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("failed to render residual plot: %w", err)
	}

	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write residual plot: %w", err)
	}
	return w.Close()
}
