// Package replay drives an engine through a recorded sensor session at the
// cadence the session was captured at.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/banshee-data/sensor-replay/internal/align"
	"github.com/banshee-data/sensor-replay/internal/engine"
	"github.com/banshee-data/sensor-replay/internal/imageio"
	"github.com/banshee-data/sensor-replay/internal/metrics"
	"github.com/banshee-data/sensor-replay/internal/monitoring"
	"github.com/banshee-data/sensor-replay/internal/sensor"
	"github.com/banshee-data/sensor-replay/internal/telemetry"
	"github.com/banshee-data/sensor-replay/internal/timeutil"
)

const tracerName = "github.com/banshee-data/sensor-replay/internal/replay"

// DefaultTrajectoryPath is where the trajectory is persisted when no path is
// configured.
const DefaultTrajectoryPath = "KeyFrameTrajectory.txt"

// ErrImageDecode marks a frame whose image could not be loaded. It is fatal
// to the run.
var ErrImageDecode = errors.New("failed to load image")

var logf = monitoring.Tagged("replay")

// FrameObserver is told about every frame the engine has processed.
// Observer errors are logged and do not stop the run.
type FrameObserver interface {
	ObserveFrame(runID string, fr FrameResult) error
}

// Options configures a Pacer. Start from DefaultOptions.
type Options struct {
	// RunID labels the run; a random UUID is used when empty.
	RunID string

	Clock   timeutil.Clock
	Decoder imageio.Decoder
	Tracer  trace.Tracer

	// Realtime holds capture cadence by sleeping out each frame's residual.
	// When false frames are delivered as fast as the engine accepts them.
	Realtime bool

	// SpeedMultiplier scales the capture cadence (2.0 replays twice as fast).
	SpeedMultiplier float64

	// MaxFrames bounds the run to frames [0, MaxFrames) of the index; zero
	// means the whole index.
	MaxFrames int

	TrajectoryPath    string
	BenchmarkInterval time.Duration

	// Stdout receives the periodic throughput lines.
	Stdout   io.Writer
	Observer FrameObserver
}

// DefaultOptions returns real-time pacing at capture speed.
func DefaultOptions() Options {
	return Options{
		Realtime:          true,
		SpeedMultiplier:   1.0,
		TrajectoryPath:    DefaultTrajectoryPath,
		BenchmarkInterval: telemetry.DefaultReportInterval,
	}
}

// FrameResult is what happened to one delivered frame.
type FrameResult struct {
	Index     int
	Timestamp float64
	BatchSize int
	Track     time.Duration // time inside Engine.ProcessFrame
	Target    time.Duration // capture interval after speed scaling
	Wait      time.Duration // residual slept after the frame
}

// Result describes a finished or interrupted run.
type Result struct {
	RunID      string
	StartIndex int
	EndIndex   int // one past the last delivered frame
	Frames     []FrameResult
	// Stats holds the per-frame track times in seconds. Once the run has
	// finished it is sorted ascending.
	Stats   []telemetry.TrackStat
	Summary telemetry.Summary
}

// Pacer feeds frames and their inertial batches to an engine in timestamp
// order.
type Pacer struct {
	engine engine.Engine
	opts   Options
}

// NewPacer returns a Pacer delivering to eng. Zero option fields fall back
// to the real clock, the OS filesystem decoder, the global tracer and
// os.Stdout.
func NewPacer(eng engine.Engine, opts Options) *Pacer {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Decoder == nil {
		opts.Decoder = imageio.NewFileDecoder(nil)
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.SpeedMultiplier <= 0 {
		opts.SpeedMultiplier = 1.0
	}
	if opts.TrajectoryPath == "" {
		opts.TrajectoryPath = DefaultTrajectoryPath
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &Pacer{engine: eng, opts: opts}
}

// RunID returns the identifier this Pacer labels its run with.
func (p *Pacer) RunID() string { return p.opts.RunID }

// ResidualWait returns how long to sleep after a frame that took track to
// process when frames were captured target apart. It is never negative: a
// frame that overran its interval is followed immediately by the next.
func ResidualWait(target, track time.Duration) time.Duration {
	if track < target {
		return target - track
	}
	return 0
}

// Run replays frames against imu.
//
// Frames that precede inertial coverage are skipped. Decode and engine
// failures abort the run immediately, without shutting the engine down.
// Cancelling ctx stops delivery before the next frame; the engine is still
// shut down and its trajectory persisted, and ctx.Err() is returned along
// with the partial Result.
func (p *Pacer) Run(ctx context.Context, imu []sensor.InertialSample, frames *sensor.FrameIndex) (*Result, error) {
	if len(imu) == 0 {
		return nil, sensor.ErrNoInertialSamples
	}
	if frames.Len() == 0 {
		return nil, sensor.ErrNoFrames
	}

	end := frames.Len()
	if p.opts.MaxFrames > 0 && p.opts.MaxFrames < end {
		end = p.opts.MaxFrames
	}
	start := align.StartIndex(imu, frames.Timestamps)

	res := &Result{
		RunID:      p.opts.RunID,
		StartIndex: start,
		EndIndex:   start,
		Stats:      make([]telemetry.TrackStat, 0, max(end-start, 0)),
	}

	logf("run %s: start imu time %.6f", res.RunID, imu[0].Timestamp)
	if start < frames.Len() {
		logf("run %s: start image time %.6f (index %d)", res.RunID, frames.Timestamps[start], start)
	}
	logf("run %s: replaying %d frames", res.RunID, max(end-start, 0))

	clock := p.opts.Clock
	aligner := align.New(imu)
	meter := telemetry.NewThroughputMeter(clock, p.opts.BenchmarkInterval)

	var runErr error
	for i := start; i < end; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		fr, err := p.deliver(ctx, aligner, frames, i, end)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				runErr = ctxErr
				break
			}
			metrics.RecordRun("failed")
			return res, err
		}

		res.EndIndex = i + 1
		res.Frames = append(res.Frames, fr)
		res.Stats = append(res.Stats, fr.Track.Seconds())

		if p.opts.Observer != nil {
			if err := p.opts.Observer.ObserveFrame(res.RunID, fr); err != nil {
				logf("run %s: frame %d observer: %v", res.RunID, i, err)
			}
		}
		if report, ok := meter.Tick(); ok {
			fmt.Fprintln(p.opts.Stdout, report)
			metrics.SetThroughput(report.FPS)
		}
		if fr.Wait > 0 {
			clock.Sleep(fr.Wait)
		}
	}

	if err := p.engine.Shutdown(); err != nil {
		metrics.RecordRun("failed")
		return res, fmt.Errorf("engine shutdown: %w", err)
	}
	if err := p.engine.PersistTrajectory(p.opts.TrajectoryPath); err != nil {
		metrics.RecordRun("failed")
		return res, fmt.Errorf("persist trajectory: %w", err)
	}

	res.Summary = telemetry.SortInPlace(res.Stats)
	if runErr != nil {
		logf("run %s: interrupted after %d frames: %v", res.RunID, len(res.Frames), runErr)
		metrics.RecordRun("cancelled")
		return res, runErr
	}
	metrics.RecordRun("ok")
	return res, nil
}

// deliver decodes frame i, hands it to the engine with its inertial batch
// and works out the residual wait. It does not sleep.
func (p *Pacer) deliver(ctx context.Context, aligner *align.Aligner, frames *sensor.FrameIndex, i, end int) (FrameResult, error) {
	ref := frames.At(i)

	img, err := p.opts.Decoder.Decode(ref.ImagePath)
	if err != nil {
		return FrameResult{}, fmt.Errorf("%w: %s: %w", ErrImageDecode, ref.ImagePath, err)
	}

	batch := aligner.NextBatch(ref.Timestamp)

	ctx, span := p.opts.Tracer.Start(ctx, "replay.frame", trace.WithAttributes(
		attribute.Int("frame.index", i),
		attribute.Float64("frame.timestamp", ref.Timestamp),
		attribute.Int("frame.imu_samples", len(batch)),
	))
	defer span.End()

	t1 := p.opts.Clock.Now()
	_, err = p.engine.ProcessFrame(ctx, img, batch, ref.Timestamp)
	track := p.opts.Clock.Since(t1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return FrameResult{}, fmt.Errorf("frame %d (%.6f): %w", i, ref.Timestamp, err)
	}

	target := timeutil.Seconds(targetInterval(frames.Timestamps, i, end) / p.opts.SpeedMultiplier)
	var wait time.Duration
	if p.opts.Realtime {
		wait = ResidualWait(target, track)
	}

	span.SetAttributes(
		attribute.Float64("frame.track_seconds", track.Seconds()),
		attribute.Float64("frame.wait_seconds", wait.Seconds()),
	)
	metrics.ObserveFrame(track, wait, len(batch), target > 0 && track >= target)

	return FrameResult{
		Index:     i,
		Timestamp: ref.Timestamp,
		BatchSize: len(batch),
		Track:     track,
		Target:    target,
		Wait:      wait,
	}, nil
}

// targetInterval is the capture gap after frame i in seconds: to the next
// frame in range, else from the previous frame, else zero.
func targetInterval(ts []float64, i, end int) float64 {
	switch {
	case i+1 < end:
		return ts[i+1] - ts[i]
	case i > 0:
		return ts[i] - ts[i-1]
	default:
		return 0
	}
}
