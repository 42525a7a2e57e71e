package report

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Naresh-ado/parking-final/internal/db"
	"github.com/Naresh-ado/parking-final/internal/httputil"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// DecisionChart builds a stacked bar chart of grants and denials per
// vehicle category.
func DecisionChart(stats []db.CategoryStats, at time.Time) *charts.Bar {
	x := make([]string, 0, len(stats))
	granted := make([]opts.BarData, 0, len(stats))
	denied := make([]opts.BarData, 0, len(stats))
	for _, s := range stats {
		x = append(x, s.VehicleType)
		granted = append(granted, opts.BarData{Value: s.Granted})
		denied = append(denied, opts.BarData{Value: s.Denied})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Gate decisions", Width: "100%", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Gate decisions", Subtitle: at.Format(time.RFC3339)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("granted", granted,
			charts.WithBarChartOpts(opts.BarChart{Stack: "decisions"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#35b779"}),
		).
		AddSeries("denied", denied,
			charts.WithBarChartOpts(opts.BarChart{Stack: "decisions"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}),
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// WriteDecisionChart renders the chart as a standalone HTML page.
func WriteDecisionChart(w io.Writer, stats []db.CategoryStats, at time.Time) error {
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(DecisionChart(stats, at))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

// StatsSource provides per-category decision counts. *db.DB satisfies it.
type StatsSource interface {
	DecisionStats() ([]db.CategoryStats, error)
}

// ChartHandler serves the decision chart built from src.
func ChartHandler(src StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !httputil.RequireMethod(w, r, http.MethodGet) {
			return
		}
		stats, err := src.DecisionStats()
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to load stats: %v", err))
			return
		}
		var buf bytes.Buffer
		if err := WriteDecisionChart(&buf, stats, time.Now()); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}
