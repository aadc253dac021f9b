// Package charts renders the dashboard's region and daily sales charts as SVG.
package charts

import (
	"fmt"
	"html"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"sales-dashboard/internal/models"
)

const (
	width    = 640
	height   = 360
	barWidth = 60
	headroom = 1.1
)

// RegionBars renders one bar per region. An empty rollup renders a placeholder.
func RegionBars(w io.Writer, data []models.RegionSales) error {
	if len(data) == 0 {
		return placeholder(w, "Sin datos para la selección actual")
	}

	bars := make([]chart.Value, 0, len(data))
	peak := 0.0
	for _, rs := range data {
		bars = append(bars, chart.Value{Label: rs.Region, Value: rs.Amount})
		peak = max(peak, rs.Amount)
	}

	bc := chart.BarChart{
		Title:      "Ventas por Región",
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis:      chart.YAxis{Range: yRange(peak)},
		Bars:       bars,
	}
	if err := bc.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render region chart: %w", err)
	}
	return nil
}

// DailyLine renders the date rollup as a time series. A line needs at least
// two dates, fewer render a placeholder.
func DailyLine(w io.Writer, data []models.DailySales) error {
	if len(data) < 2 {
		return placeholder(w, "Sin suficientes fechas para la serie temporal")
	}

	xs := make([]time.Time, 0, len(data))
	ys := make([]float64, 0, len(data))
	peak := 0.0
	for _, ds := range data {
		t, err := time.Parse(models.DateLayout, ds.Date)
		if err != nil {
			return fmt.Errorf("parse date %q: %w", ds.Date, err)
		}
		xs = append(xs, t)
		ys = append(ys, ds.Amount)
		peak = max(peak, ds.Amount)
	}

	ch := chart.Chart{
		Title:      "Ventas a lo Largo del Tiempo",
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:      chart.YAxis{Range: yRange(peak)},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Ventas",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 1.5},
			},
		},
	}
	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render daily chart: %w", err)
	}
	return nil
}

// yRange pins the axis at zero so single-valued series still have a span.
func yRange(peak float64) *chart.ContinuousRange {
	if peak <= 0 {
		peak = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: peak * headroom}
}

func placeholder(w io.Writer, message string) error {
	_, err := fmt.Fprintf(w,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="100%%" height="100%%" fill="#ffffff"/><text x="50%%" y="50%%" text-anchor="middle" font-family="sans-serif" font-size="14" fill="#888888">%s</text></svg>`,
		width, height, html.EscapeString(message))
	return err
}
