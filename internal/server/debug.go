package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ayusman/trexvision/internal/app"
	"github.com/ayusman/trexvision/internal/change"
	"github.com/ayusman/trexvision/internal/config"
)

const histogramBins = 64

// DebugSource is what the debug charts read.
type DebugSource interface {
	Settings() config.DetectorConfig
	StdDevField() (*change.Field, error)
	Activity() []app.FrameStats
}

// DebugHandler renders diagnostic charts of the detector.
type DebugHandler struct {
	source DebugSource
}

// NewDebugHandler creates a new DebugHandler.
func NewDebugHandler(source DebugSource) *DebugHandler {
	return &DebugHandler{source: source}
}

// handleHistogram renders a PNG histogram of per-pixel standard deviation
// with the threshold marked. Useful for picking a threshold for a scene.
func (h *DebugHandler) handleHistogram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	field, err := h.source.StdDevField()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, change.ErrNotReady) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	var buf bytes.Buffer
	if err := renderHistogram(&buf, field, h.source.Settings().Threshold); err != nil {
		http.Error(w, fmt.Sprintf("failed to render histogram: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

func renderHistogram(buf *bytes.Buffer, field *change.Field, threshold float64) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Pixel std. dev. (%dx%d)", field.Width, field.Height)
	p.X.Label.Text = "Standard deviation"
	p.Y.Label.Text = "Pixels"

	hist, err := plotter.NewHist(plotter.Values(field.Values), histogramBins)
	if err != nil {
		return err
	}
	p.Add(hist)

	maxCount := 0.0
	for _, b := range hist.Bins {
		if b.Weight > maxCount {
			maxCount = b.Weight
		}
	}
	line, err := plotter.NewLine(plotter.XYs{{X: threshold, Y: 0}, {X: threshold, Y: maxCount}})
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("threshold %g", threshold), line)

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(buf)
	return err
}

// handleActivity renders an HTML line chart of the flagged share of each
// recent frame.
func (h *DebugHandler) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	activity := h.source.Activity()
	cfg := h.source.Settings()

	x := make([]string, 0, len(activity))
	flagged := make([]opts.LineData, 0, len(activity))
	buffered := make([]opts.LineData, 0, len(activity))
	for _, s := range activity {
		x = append(x, strconv.FormatUint(s.Seq, 10))
		flagged = append(flagged, opts.LineData{Value: s.Ratio * 100})
		buffered = append(buffered, opts.LineData{Value: s.Buffered})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "T-Rex Vision Activity", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Changing pixels",
			Subtitle: fmt.Sprintf("threshold=%g history_depth=%d frames=%d", cfg.Threshold, cfg.HistoryDepth, len(activity)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%"}),
	)
	line.SetXAxis(x).
		AddSeries("flagged %", flagged).
		AddSeries("frames held", buffered)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
