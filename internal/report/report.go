// Package report renders post-run charts of a replay: an interactive HTML
// timeline of per-frame track and wait times and a PNG track-time histogram.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sensor-replay/internal/monitoring"
	"github.com/banshee-data/sensor-replay/internal/replay"
	"github.com/banshee-data/sensor-replay/internal/security"
)

const maxHistogramBins = 20

var logf = monitoring.Tagged("report")

// Write renders the reports for res into dir and returns the files written.
// The histogram is skipped when no frame was delivered.
func Write(dir string, res *replay.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	var written []string

	htmlPath, err := security.OutputPath(dir, res.RunID, "-timeline.html")
	if err != nil {
		return nil, err
	}
	f, err := os.Create(htmlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", htmlPath, err)
	}
	if err := WriteTimelineHTML(f, res); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	written = append(written, htmlPath)

	if len(res.Frames) > 0 {
		pngPath, err := security.OutputPath(dir, res.RunID, "-track-hist.png")
		if err != nil {
			return written, err
		}
		if err := WriteTrackHistogram(pngPath, res.Frames); err != nil {
			return written, err
		}
		written = append(written, pngPath)
	}

	for _, p := range written {
		logf("wrote %s", p)
	}
	return written, nil
}

// WriteTimelineHTML renders track and residual wait per frame, in
// milliseconds, against seconds since the first delivered frame.
func WriteTimelineHTML(w io.Writer, res *replay.Result) error {
	x := make([]string, 0, len(res.Frames))
	track := make([]opts.LineData, 0, len(res.Frames))
	wait := make([]opts.LineData, 0, len(res.Frames))
	target := make([]opts.LineData, 0, len(res.Frames))

	var t0 float64
	if len(res.Frames) > 0 {
		t0 = res.Frames[0].Timestamp
	}
	for _, fr := range res.Frames {
		x = append(x, strconv.FormatFloat(fr.Timestamp-t0, 'f', 3, 64))
		track = append(track, opts.LineData{Value: ms(fr.Track.Seconds())})
		wait = append(wait, opts.LineData{Value: ms(fr.Wait.Seconds())})
		target = append(target, opts.LineData{Value: ms(fr.Target.Seconds())})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Replay timeline", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Replay timeline",
			Subtitle: fmt.Sprintf("run=%s frames=%d median=%.1fms mean=%.1fms", res.RunID, len(res.Frames), ms(res.Summary.Median), ms(res.Summary.Mean)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ms", NameLocation: "middle", NameGap: 40}),
	)
	line.SetXAxis(x).
		AddSeries("track", track).
		AddSeries("wait", wait).
		AddSeries("interval", target)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render timeline: %w", err)
	}
	return nil
}

// WriteTrackHistogram saves a PNG histogram of per-frame track times.
func WriteTrackHistogram(path string, frames []replay.FrameResult) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to plot")
	}
	values := make(plotter.Values, len(frames))
	for i, fr := range frames {
		values[i] = ms(fr.Track.Seconds())
	}

	p := plot.New()
	p.Title.Text = "Track time per frame"
	p.X.Label.Text = "Track time (ms)"
	p.Y.Label.Text = "Frames"

	h, err := plotter.NewHist(values, min(len(values), maxHistogramBins))
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	h.LineStyle.Width = vg.Points(1)
	p.Add(h)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func ms(seconds float64) float64 {
	return seconds * 1000
}
