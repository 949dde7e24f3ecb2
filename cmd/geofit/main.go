// Command geofit fits a geometric primitive to the observations in a JSON
// file and reports the parameters and residuals.
//
// Usage:
//
//	geofit -input points.json -primitive cylinder [-config fit.json]
//	       [-json summary.json] [-plot residuals.png] [-chart residuals.html]
//	       [-outdir reports] [-units mm]
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/banshee-data/geofit/internal/config"
	"github.com/banshee-data/geofit/internal/fit"
	"github.com/banshee-data/geofit/internal/fsutil"
	"github.com/banshee-data/geofit/internal/geometry"
	"github.com/banshee-data/geofit/internal/monitoring"
	"github.com/banshee-data/geofit/internal/report"
	"github.com/banshee-data/geofit/internal/security"
	"github.com/banshee-data/geofit/internal/timeutil"
	"github.com/banshee-data/geofit/internal/units"
	"github.com/banshee-data/geofit/internal/version"
	"github.com/google/uuid"
)

// Config holds the command-line configuration.
type Config struct {
	InputPath  string
	Primitive  string
	ConfigPath string
	JSONPath   string
	PlotPath   string
	ChartPath  string
	OutDir     string
	Units      string
	Verbose    bool
	Trace      bool
}

// env bundles the side-effecting dependencies of run.
type env struct {
	fs    fsutil.FileSystem
	clock timeutil.Clock
	out   io.Writer
	newID func() string
	// sink receives fit failures; nil selects the log streams.
	sink  monitoring.Sink
}

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Println(version.String())
		return
	}
	if cfg.InputPath == "" {
		log.Fatal("-input is required")
	}

	if cfg.Verbose || cfg.Trace {
		w := monitoring.LogWriters{Ops: os.Stderr, Diag: os.Stderr}
		if cfg.Trace {
			w.Trace = os.Stderr
		}
		monitoring.SetLogWriters(w)
	}

	e := env{fs: fsutil.OSFileSystem{}, clock: timeutil.RealClock{}, out: os.Stdout, newID: uuid.NewString}
	if _, err := run(cfg, e); err != nil {
		log.Fatalf("geofit: %v", err)
	}
}

func parseFlags() (Config, bool) {
	cfg := Config{}
	var showVersion bool

	flag.StringVar(&cfg.InputPath, "input", "", "Path to the JSON observation file")
	flag.StringVar(&cfg.Primitive, "primitive", "sphere", "Primitive: point, line, plane, circle, sphere, cylinder")
	flag.StringVar(&cfg.ConfigPath, "config", "", "Path to a JSON fit configuration (defaults apply when empty)")
	flag.StringVar(&cfg.JSONPath, "json", "", "Write the residual summary as JSON to this path")
	flag.StringVar(&cfg.PlotPath, "plot", "", "Write a residual plot (png, svg or pdf) to this path")
	flag.StringVar(&cfg.ChartPath, "chart", "", "Write an HTML residual chart to this path")
	flag.StringVar(&cfg.OutDir, "outdir", "", "Write every report not given an explicit path into this directory")
	flag.StringVar(&cfg.Units, "units", units.Metres, "Report lengths in these units ("+units.GetValidUnitsString()+")")
	flag.BoolVar(&cfg.Verbose, "v", false, "Log fit diagnostics to stderr")
	flag.BoolVar(&cfg.Trace, "trace", false, "Also log per-iteration adjustment telemetry")
	flag.BoolVar(&showVersion, "version", false, "Print version information and exit")

	flag.Parse()
	return cfg, showVersion
}

// run performs one fit and writes the requested outputs. A failed fit is
// returned as an error after the summary has been printed.
func run(cfg Config, e env) (report.Summary, error) {
	if err := validateOutputs(cfg); err != nil {
		return report.Summary{}, err
	}

	fitCfg := config.DefaultFitConfig()
	if cfg.ConfigPath != "" {
		loaded, err := config.LoadFitConfigFS(e.fs, cfg.ConfigPath)
		if err != nil {
			return report.Summary{}, err
		}
		fitCfg = loaded
	}

	kind, err := geometry.ParseKind(cfg.Primitive)
	if err != nil {
		return report.Summary{}, err
	}
	in, err := loadInputs(e.fs, cfg.InputPath)
	if err != nil {
		return report.Summary{}, err
	}

	fitter, err := fit.NewFromConfig(fitCfg, e.sink)
	if err != nil {
		return report.Summary{}, err
	}
	fitter.SetClock(e.clock)

	p, err := geometry.New(kind)
	if err != nil {
		return report.Summary{}, err
	}
	start := e.clock.Now()
	ok := fitter.Exec(p, in)
	summary := report.NewSummary(e.newID(), p, start, e.clock.Since(start))
	if cfg.Units != "" && cfg.Units != units.Metres {
		if summary, err = summary.InUnits(cfg.Units); err != nil {
			return summary, err
		}
	}

	printSummary(e.out, summary)
	if !ok {
		return summary, fmt.Errorf("%s fit failed", kind)
	}

	if cfg.OutDir != "" {
		if err := e.fs.MkdirAll(cfg.OutDir, 0755); err != nil {
			return summary, fmt.Errorf("failed to create output directory: %w", err)
		}
		base := filepath.Join(cfg.OutDir, summary.Primitive+"-"+security.SanitizeFilename(summary.RunID))
		if cfg.JSONPath == "" {
			cfg.JSONPath = base + ".json"
		}
		if cfg.PlotPath == "" {
			cfg.PlotPath = base + ".png"
		}
		if cfg.ChartPath == "" {
			cfg.ChartPath = base + ".html"
		}
	}

	if cfg.JSONPath != "" {
		if err := report.WriteJSON(e.fs, cfg.JSONPath, summary); err != nil {
			return summary, err
		}
	}
	if cfg.PlotPath != "" {
		if err := report.WriteResidualPlot(e.fs, cfg.PlotPath, summary); err != nil {
			return summary, err
		}
	}
	if cfg.ChartPath != "" {
		if err := report.WriteResidualChart(e.fs, cfg.ChartPath, summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// validateOutputs rejects bad explicit output paths and units before any
// work is done.
func validateOutputs(cfg Config) error {
	if cfg.Units != "" && !units.IsValid(cfg.Units) {
		return fmt.Errorf("invalid -units %q: must be one of %s", cfg.Units, units.GetValidUnitsString())
	}
	checks := []struct {
		flag string
		path string
		exts []string
	}{
		{"-json", cfg.JSONPath, security.JSONExtensions},
		{"-plot", cfg.PlotPath, security.PlotExtensions},
		{"-chart", cfg.ChartPath, security.ChartExtensions},
	}
	for _, c := range checks {
		if c.path == "" {
			continue
		}
		if err := security.ValidateOutputPath(c.path, c.exts); err != nil {
			return fmt.Errorf("%s: %w", c.flag, err)
		}
	}
	return nil
}

func printSummary(w io.Writer, s report.Summary) {
	fmt.Fprintf(w, "run %s: %s solved=%v units=%s\n", s.RunID, s.Primitive, s.Solved, s.Units)
	if !s.Solved {
		return
	}

	par := s.Parameters
	fmt.Fprintf(w, "  position  %.6f %.6f %.6f\n", par.Position.X, par.Position.Y, par.Position.Z)
	if par.Direction != nil {
		fmt.Fprintf(w, "  direction %.6f %.6f %.6f\n", par.Direction.X, par.Direction.Y, par.Direction.Z)
	}
	if par.Radius != nil {
		fmt.Fprintf(w, "  radius    %.6f\n", *par.Radius)
	}
	fmt.Fprintf(w, "  stdev     %.6g\n", s.Stdev)
	if s.FormError != nil {
		fmt.Fprintf(w, "  form err  %.6g\n", *s.FormError)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "id\tdistance\tin use\t")
	for _, r := range s.Rows {
		fmt.Fprintf(tw, "%d\t%.6f\t%v\t\n", r.ID, r.Distance, r.InUse)
	}
	tw.Flush()
}
