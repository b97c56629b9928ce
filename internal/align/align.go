// Package align partitions an inertial stream into per-frame causal batches.
//
// The aligner keeps two explicit cursors into caller-owned slices: the frame
// cursor is advanced by the replay loop, the inertial cursor only by
// NextBatch. Neither ever rewinds, so every sample is handed out at most once.
package align

import (
	"github.com/banshee-data/sensor-replay/internal/sensor"
)

// Batch is the run of inertial samples that causally precede one frame.
type Batch []sensor.InertialSample

// StartIndex returns the first frame whose timestamp is reached by inertial
// coverage: the smallest i with imu[0].Timestamp <= frames[i]. It returns
// len(frames) when coverage starts after every frame, or when imu is empty.
func StartIndex(imu []sensor.InertialSample, frames []float64) int {
	if len(imu) == 0 {
		return len(frames)
	}
	t0 := imu[0].Timestamp
	i := 0
	for i < len(frames) && t0 > frames[i] {
		i++
	}
	return i
}

// Aligner hands out causal inertial batches frame by frame.
type Aligner struct {
	imu    []sensor.InertialSample
	cursor int
}

// New returns an Aligner over imu. The slice must be ordered by timestamp
// and must not be modified while the Aligner is in use.
func New(imu []sensor.InertialSample) *Aligner {
	return &Aligner{imu: imu}
}

// NextBatch returns every not-yet-assigned sample with timestamp strictly
// before frameTime. A sample stamped exactly frameTime is left for the next
// frame. The batch is empty when the cursor is already past frameTime or the
// stream is exhausted.
//
// The returned slice aliases the underlying stream and must not be modified.
func (a *Aligner) NextBatch(frameTime float64) Batch {
	start := a.cursor
	for a.cursor < len(a.imu) && a.imu[a.cursor].Timestamp < frameTime {
		a.cursor++
	}
	return Batch(a.imu[start:a.cursor:a.cursor])
}

// Consumed returns how many samples have been handed out so far.
func (a *Aligner) Consumed() int { return a.cursor }

// Remaining returns how many samples are still unassigned.
func (a *Aligner) Remaining() int { return len(a.imu) - a.cursor }
