// Package metrics holds the Prometheus collectors the replay driver updates.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	FramesReplayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replay_frames_total",
		Help: "Total number of frames delivered to the engine",
	})

	TrackDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "replay_track_seconds",
		Help:    "Histogram of engine processing time per frame",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	ResidualWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "replay_residual_wait_seconds",
		Help:    "Histogram of time slept after each frame to hold capture cadence",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	})

	Overruns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replay_overruns_total",
		Help: "Frames whose processing time met or exceeded the capture interval",
	})

	InertialBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "replay_inertial_batch_size",
		Help:    "Number of inertial samples delivered with each frame",
		Buckets: prometheus.LinearBuckets(0, 5, 10),
	})

	FramesPerSecond = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "replay_frames_per_second",
		Help: "Throughput over the last benchmark window",
	})

	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_runs_total",
		Help: "Replay runs by outcome",
	}, []string{"outcome"})
)
