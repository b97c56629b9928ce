// Package telemetry aggregates replay timing: rolling throughput while the
// replay runs and track-time statistics once it has finished.
package telemetry

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sensor-replay/internal/timeutil"
)

// DefaultReportInterval is how often ThroughputMeter emits a report.
const DefaultReportInterval = 5 * time.Second

// TrackStat is the time the engine spent on one frame, in seconds.
type TrackStat = float64

// ThroughputReport is one rolling throughput sample.
type ThroughputReport struct {
	Frames   int
	Interval time.Duration // nominal reporting interval
	Elapsed  time.Duration // actual wall time covered by this window
	FPS      float64       // Frames / Interval
}

func (r ThroughputReport) String() string {
	return fmt.Sprintf("%d frames in %d seconds: %f fps", r.Frames, int(r.Interval/time.Second), r.FPS)
}

// ThroughputMeter counts frames in a wall-clock window and reports once the
// window exceeds its interval.
type ThroughputMeter struct {
	clock       timeutil.Clock
	interval    time.Duration
	frames      int
	windowStart time.Time
}

// NewThroughputMeter starts a window at clock.Now(). A non-positive interval
// selects DefaultReportInterval.
func NewThroughputMeter(clock timeutil.Clock, interval time.Duration) *ThroughputMeter {
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	return &ThroughputMeter{
		clock:       clock,
		interval:    interval,
		windowStart: clock.Now(),
	}
}

// Tick counts one processed frame. When more than the interval has elapsed
// since the window started it returns a report and opens a new window.
func (m *ThroughputMeter) Tick() (ThroughputReport, bool) {
	m.frames++
	now := m.clock.Now()
	elapsed := now.Sub(m.windowStart)
	if elapsed <= m.interval {
		return ThroughputReport{}, false
	}

	r := ThroughputReport{
		Frames:   m.frames,
		Interval: m.interval,
		Elapsed:  elapsed,
		FPS:      float64(m.frames) / m.interval.Seconds(),
	}
	m.frames = 0
	m.windowStart = now
	return r, true
}

// Summary describes a run's track times in seconds.
type Summary struct {
	Frames int
	Median float64
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64
}

// Summarize sorts a copy of stats and computes its Summary; stats keeps its
// playback order.
func Summarize(stats []TrackStat) Summary {
	sorted := make([]float64, len(stats))
	copy(sorted, stats)
	return SortInPlace(sorted)
}

// SortInPlace sorts stats ascending and summarises them. The median is the
// element at index n/2 of the sorted slice (the upper median for even n).
// An empty slice yields the zero Summary.
func SortInPlace(stats []TrackStat) Summary {
	n := len(stats)
	if n == 0 {
		return Summary{}
	}
	sort.Float64s(stats)

	s := Summary{
		Frames: n,
		Median: stats[n/2],
		Mean:   stat.Mean(stats, nil),
		Min:    floats.Min(stats),
		Max:    floats.Max(stats),
	}
	if n > 1 {
		s.StdDev = stat.StdDev(stats, nil)
	}
	return s
}
