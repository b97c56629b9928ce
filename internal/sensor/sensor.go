// Package sensor loads the two offline capture streams a replay needs: the
// high-rate inertial log and the image timestamp index.
//
// Both loaders materialise their whole stream in memory and trust file order;
// neither sorts nor validates monotonicity.
package sensor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInertialSamples is returned when an inertial log yields no samples.
	ErrNoInertialSamples = errors.New("no inertial samples loaded")
	// ErrNoFrames is returned when an image timestamp index yields no frames.
	ErrNoFrames = errors.New("no frames loaded")
)

// Vec3 is a three-axis measurement.
type Vec3 struct {
	X, Y, Z float64
}

// InertialSample is one IMU measurement. Timestamp is in seconds.
type InertialSample struct {
	Timestamp          float64
	AngularVelocity    Vec3 // rad/s
	LinearAcceleration Vec3 // m/s²
}

func (s InertialSample) String() string {
	return fmt.Sprintf("t=%.9f w=(%g,%g,%g) a=(%g,%g,%g)", s.Timestamp,
		s.AngularVelocity.X, s.AngularVelocity.Y, s.AngularVelocity.Z,
		s.LinearAcceleration.X, s.LinearAcceleration.Y, s.LinearAcceleration.Z)
}

// FrameRef identifies one captured image.
type FrameRef struct {
	Timestamp float64 // seconds
	ImagePath string
}

// FrameIndex holds the parallel image-path and timestamp sequences of a
// capture, in file order.
type FrameIndex struct {
	Paths      []string
	Timestamps []float64
}

// Len returns the number of frames.
func (f *FrameIndex) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Timestamps)
}

// At returns frame i.
func (f *FrameIndex) At(i int) FrameRef {
	return FrameRef{Timestamp: f.Timestamps[i], ImagePath: f.Paths[i]}
}
