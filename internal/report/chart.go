package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/banshee-data/geofit/internal/fsutil"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderResidualChart writes an HTML page with one bar per observation.
// Bars of observations outside the adjustment are drawn in grey.
func RenderResidualChart(w io.Writer, s Summary) error {
	x := make([]string, 0, len(s.Rows))
	y := make([]opts.BarData, 0, len(s.Rows))
	for _, r := range s.Rows {
		x = append(x, strconv.Itoa(r.ID))
		bar := opts.BarData{Value: r.Distance}
		if !r.InUse {
			bar.ItemStyle = &opts.ItemStyle{Color: "#999999"}
		}
		y = append(y, bar)
	}

	yName := "Distance"
	if s.Units != "" {
		yName = fmt.Sprintf("Distance (%s)", s.Units)
	}
	subtitle := fmt.Sprintf("run=%s stdev=%.4g", s.RunID, s.Stdev)
	if s.FormError != nil {
		subtitle += fmt.Sprintf(" form error=%.4g", *s.FormError)
	}
	if !s.GeneratedAt.IsZero() {
		subtitle += " " + s.GeneratedAt.Format(time.RFC3339)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "geofit residuals", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Primitive + " residuals", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Observation ID", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, NameLocation: "middle", NameGap: 40}),
	)
	bar.SetXAxis(x).AddSeries("distance", y)

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}

// WriteResidualChart renders the chart into path.
func WriteResidualChart(fsys fsutil.FileSystem, path string, s Summary) error {
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := RenderResidualChart(w, s); err != nil {
		_ = w.Close()
		return fmt.Errorf("render error: %w", err)
	}
	return w.Close()
}
