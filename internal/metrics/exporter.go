package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(FramesReplayed, TrackDuration, ResidualWait, Overruns, InertialBatchSize, FramesPerSecond, Runs)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFrame records one delivered frame. overrun marks frames that had a
// non-zero capture interval but left no residual to wait out.
func ObserveFrame(track, wait time.Duration, batchSize int, overrun bool) {
	FramesReplayed.Inc()
	TrackDuration.Observe(track.Seconds())
	ResidualWait.Observe(wait.Seconds())
	InertialBatchSize.Observe(float64(batchSize))
	if overrun {
		Overruns.Inc()
	}
}

// SetThroughput publishes the frames-per-second of the last window.
func SetThroughput(fps float64) {
	FramesPerSecond.Set(fps)
}

// RecordRun counts a finished run under outcome ("ok", "cancelled", "failed").
func RecordRun(outcome string) {
	Runs.WithLabelValues(outcome).Inc()
}
