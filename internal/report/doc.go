// Package report turns a solved primitive into a residual summary and
// renders it as JSON, a PNG residual plot (gonum/plot) or an HTML bar
// chart (go-echarts).
package report
