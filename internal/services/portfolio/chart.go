package portfolio

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bvanryn/specula/internal/models"
)

// RenderSnapshotChart renders the portfolio value history as a PNG line
// chart. When the snapshots carry benchmark closes, a second series
// shows the benchmark rebased to the portfolio's starting value.
func RenderSnapshotChart(snapshots []models.PortfolioSnapshot) ([]byte, error) {
	if len(snapshots) < 2 {
		return nil, fmt.Errorf("need at least 2 snapshots, got %d", len(snapshots))
	}

	xValues := make([]time.Time, len(snapshots))
	valueY := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		date, err := time.Parse(snapshotDateLayout, snap.Date)
		if err != nil {
			return nil, fmt.Errorf("bad snapshot date %q: %w", snap.Date, err)
		}
		xValues[i] = date
		valueY[i] = snap.TotalValue
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name: "Portfolio",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("2563eb"),
				StrokeWidth: 2.5,
			},
			XValues: xValues,
			YValues: valueY,
		},
	}

	if benchY, ok := rebasedBenchmark(snapshots, valueY[0]); ok {
		series = append(series, chart.TimeSeries{
			Name: snapshots[0].Benchmark,
			Style: chart.Style{
				StrokeColor:     drawing.ColorFromHex("9ca3af"),
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5.0, 3.0},
			},
			XValues: xValues,
			YValues: benchY,
		})
	}

	graph := chart.Chart{
		Title:  "Portfolio Value",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("2 Jan")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0fk", f/1000)
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// rebasedBenchmark scales the benchmark series so it starts at the
// portfolio's first value, making relative performance readable.
func rebasedBenchmark(snapshots []models.PortfolioSnapshot, base float64) ([]float64, bool) {
	first := snapshots[0].BenchmarkValue
	if first <= 0 || base <= 0 {
		return nil, false
	}
	out := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		if snap.BenchmarkValue <= 0 {
			return nil, false
		}
		out[i] = snap.BenchmarkValue / first * base
	}
	return out, true
}
