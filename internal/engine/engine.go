// Package engine defines the boundary between the replay driver and the
// estimation engine it feeds, plus a reference engine that records the
// frames it receives.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/banshee-data/sensor-replay/internal/sensor"
)

// ErrShutdown is returned by engines asked to do work after Shutdown.
var ErrShutdown = errors.New("engine is shut down")

// Mode selects the sensor configuration the engine runs in.
type Mode int

const (
	// Monocular tracks from images alone.
	Monocular Mode = iota
	// MonocularInertial fuses images with the inertial batches.
	MonocularInertial
)

func (m Mode) String() string {
	switch m {
	case Monocular:
		return "monocular"
	case MonocularInertial:
		return "monocular-inertial"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Pose is the camera pose an engine reports for a frame. Translation is in
// metres, Rotation is a unit quaternion (x, y, z, w).
type Pose struct {
	Timestamp   float64
	Translation [3]float64
	Rotation    [4]float64
	Tracked     bool
}

// Identity returns an untransformed pose at timestamp t.
func Identity(t float64) Pose {
	return Pose{Timestamp: t, Rotation: [4]float64{0, 0, 0, 1}, Tracked: true}
}

// Engine is everything the replay driver needs from an estimator.
//
// ProcessFrame is called synchronously, once per frame, in timestamp order;
// imu holds the samples strictly preceding timestamp that were not delivered
// with an earlier frame. The engine must not retain imu past the call.
type Engine interface {
	Initialize(vocabularyPath, settingsPath string, mode Mode) error
	ProcessFrame(ctx context.Context, img image.Image, imu []sensor.InertialSample, timestamp float64) (Pose, error)
	Shutdown() error
	PersistTrajectory(path string) error
}
