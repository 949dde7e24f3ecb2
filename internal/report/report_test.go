package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/geofit/internal/fit"
	"github.com/banshee-data/geofit/internal/fsutil"
	"github.com/banshee-data/geofit/internal/geometry"
	"github.com/banshee-data/geofit/internal/monitoring"
	"github.com/banshee-data/geofit/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generated = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func fittedCylinder(t *testing.T) *geometry.Cylinder {
	t.Helper()
	pts := testutil.CylinderPoints(geometry.Vec3{}, geometry.Vec3{Z: 1}, 2, []float64{0, 3}, 6,
		testutil.AlternatingOffsets(6, 0.01))
	obs := testutil.Observations(append(pts, geometry.NewVec3(0, 0, 1)))
	obs[len(obs)-1].ShouldBeUsed = false

	var c geometry.Cylinder
	f := fit.New(fit.DefaultOptions(), &monitoring.RecordingSink{})
	require.NoError(t, f.FitCylinder(&c, fit.Inputs{Points: obs}))
	return &c
}

func TestNewSummary(t *testing.T) {
	t.Parallel()
	c := fittedCylinder(t)
	s := NewSummary("run-1", c, generated, 3*time.Millisecond)

	assert.Equal(t, "cylinder", s.Primitive)
	assert.True(t, s.Solved)
	require.Len(t, s.Rows, 13)
	for i, r := range s.Rows {
		assert.Equal(t, i+1, r.ID)
	}
	assert.False(t, s.Rows[12].InUse)
	require.NotNil(t, s.Parameters.Radius)
	require.NotNil(t, s.Parameters.Direction)
	assert.InDelta(t, 2.0, *s.Parameters.Radius, 1e-6)
	require.NotNil(t, s.FormError)
	assert.InDelta(t, 0.02, *s.FormError, 1e-6)
	assert.InDelta(t, 0.0, s.MeanDistance, 1e-9)
	assert.InDelta(t, 0.01, s.MaxAbsDistance, 1e-6)
}

func TestSummaryInUnits(t *testing.T) {
	t.Parallel()
	c := fittedCylinder(t)
	s := NewSummary("run-1", c, generated, 0)
	assert.Equal(t, "m", s.Units)

	mm, err := s.InUnits("mm")
	require.NoError(t, err)
	assert.Equal(t, "mm", mm.Units)
	assert.InDelta(t, 2000.0, *mm.Parameters.Radius, 1e-3)
	assert.InDelta(t, 20.0, *mm.FormError, 1e-3)
	assert.InDelta(t, 10.0, mm.MaxAbsDistance, 1e-3)
	assert.InDelta(t, 1000*s.Rows[0].Distance, mm.Rows[0].Distance, 1e-9)

	// The metre summary and the primitive are left alone.
	assert.InDelta(t, 2.0, *s.Parameters.Radius, 1e-6)
	assert.InDelta(t, 2.0, c.Radius, 1e-6)
	assert.InDelta(t, 0.01, s.MaxAbsDistance, 1e-6)
	if diff := cmp.Diff(*s.Parameters.Direction, *mm.Parameters.Direction); diff != "" {
		t.Errorf("direction changed (-m +mm):\n%s", diff)
	}

	_, err = s.InUnits("ft")
	assert.ErrorContains(t, err, "invalid units")
	_, err = mm.InUnits("in")
	assert.ErrorContains(t, err, "already in mm")
}

func TestNewSummaryPoint(t *testing.T) {
	t.Parallel()
	p := &geometry.Point{Position: geometry.NewVec3(1, 2, 3)}
	s := NewSummary("run-2", p, generated, 0)

	want := Parameters{Position: geometry.NewVec3(1, 2, 3)}
	if diff := cmp.Diff(want, s.Parameters); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, s.Solved)
	assert.Nil(t, s.FormError)
	assert.Empty(t, s.Rows)
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	fsys := fsutil.NewMemoryFileSystem()
	s := NewSummary("run-3", fittedCylinder(t), generated, time.Second)
	require.NoError(t, WriteJSON(fsys, "/out/summary.json", s))

	data, err := fsys.ReadFile("/out/summary.json")
	require.NoError(t, err)

	var got Summary
	require.NoError(t, json.Unmarshal(data, &got))
	if diff := cmp.Diff(s, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("summary round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteResidualPlot(t *testing.T) {
	t.Parallel()
	fsys := fsutil.NewMemoryFileSystem()
	s := NewSummary("run-4", fittedCylinder(t), generated, 0)

	require.NoError(t, WriteResidualPlot(fsys, "/out/residuals.png", s))
	data, err := fsys.ReadFile("/out/residuals.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "expected PNG signature")

	err = WriteResidualPlot(fsys, "/out/residuals.bmp", s)
	assert.Error(t, err)
}

func TestRenderResidualChart(t *testing.T) {
	t.Parallel()
	s := NewSummary("run-5", fittedCylinder(t), generated, 0)

	var buf bytes.Buffer
	require.NoError(t, RenderResidualChart(&buf, s))
	html := buf.String()
	assert.Contains(t, html, "cylinder residuals")
	assert.Contains(t, html, "run=run-5")
	assert.Contains(t, html, "#999999")

	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, WriteResidualChart(fsys, "/out/chart.html", s))
	data, err := fsys.ReadFile("/out/chart.html")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "echarts"))
}
