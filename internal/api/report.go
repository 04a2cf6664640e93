package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/flextraff/atcs/internal/httputil"
)

// cyclesReport renders a bar chart (HTML) of per-lane green times for
// recent cycles of one junction using go-echarts. This is an operator
// debugging view, not part of the JSON API surface.
// Query params:
//   - junction_id (required)
//   - limit (optional; default 20, max 200) number of cycles to chart
func (s *Server) cyclesReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id, err := junctionIDParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	cycles, err := s.db.RecentCycles(id, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load cycles: %v", err))
		return
	}
	if len(cycles) == 0 {
		httputil.NotFound(w, fmt.Sprintf("no cycles recorded for junction %d", id))
		return
	}

	// RecentCycles returns newest first; chart oldest to newest so
	// time reads left to right.
	for i, j := 0, len(cycles)-1; i < j; i, j = i+1, j-1 {
		cycles[i], cycles[j] = cycles[j], cycles[i]
	}

	laneCount := 0
	for _, c := range cycles {
		if len(c.GreenTimes) > laneCount {
			laneCount = len(c.GreenTimes)
		}
	}

	x := make([]string, 0, len(cycles))
	totals := make([]float64, 0, len(cycles))
	series := make([][]opts.BarData, laneCount)
	for i := range series {
		series[i] = make([]opts.BarData, 0, len(cycles))
	}
	for _, c := range cycles {
		x = append(x, c.ComputedAt.Format("15:04:05"))
		totals = append(totals, c.TotalCycleTime)
		for lane := 0; lane < laneCount; lane++ {
			var v interface{}
			if lane < len(c.GreenTimes) {
				v = c.GreenTimes[lane]
			}
			series[lane] = append(series[lane], opts.BarData{Value: v})
		}
	}

	meanTotal := stat.Mean(totals, nil)
	subtitle := fmt.Sprintf("junction=%d cycles=%d mean_total=%.1fs generated=%s",
		id, len(cycles), meanTotal, time.Now().UTC().Format(time.RFC3339))

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "ATCS Cycle Report", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Green Time per Lane", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "green (s)"}),
	)
	bar.SetXAxis(x)
	for lane := 0; lane < laneCount; lane++ {
		bar.AddSeries(fmt.Sprintf("lane %d", lane+1), series[lane])
	}

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
