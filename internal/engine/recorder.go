package engine

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/banshee-data/sensor-replay/internal/fsutil"
	"github.com/banshee-data/sensor-replay/internal/monitoring"
	"github.com/banshee-data/sensor-replay/internal/sensor"
)

var logf = monitoring.Tagged("engine")

// Recorder is a reference Engine that performs no estimation. It accepts
// every frame, reports an identity pose and persists those poses as a TUM
// trajectory. It is what the replay tool runs when no real estimator is
// linked in, and it exercises the full driver path end to end.
type Recorder struct {
	fs fsutil.FileSystem

	mu          sync.Mutex
	mode        Mode
	settings    *Settings
	poses       []Pose
	imuSamples  int
	initialized bool
	shutdown    bool
}

// NewRecorder returns a Recorder using fsys for all file access, or the OS
// filesystem when fsys is nil.
func NewRecorder(fsys fsutil.FileSystem) *Recorder {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Recorder{fs: fsys}
}

// Initialize checks the vocabulary exists and parses the settings file.
func (r *Recorder) Initialize(vocabularyPath, settingsPath string, mode Mode) error {
	if !r.fs.Exists(vocabularyPath) {
		return fmt.Errorf("vocabulary not found: %s", vocabularyPath)
	}
	data, err := r.fs.ReadFile(settingsPath)
	if err != nil {
		return fmt.Errorf("failed to read settings %s: %w", settingsPath, err)
	}
	settings, err := ParseSettings(data)
	if err != nil {
		return fmt.Errorf("settings %s: %w", settingsPath, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
	r.settings = settings
	r.initialized = true

	if fps, ok := settings.Float("Camera.fps"); ok {
		logf("mode=%s camera fps=%.1f", mode, fps)
	} else {
		logf("mode=%s", mode)
	}
	return nil
}

// ProcessFrame records an identity pose for timestamp.
func (r *Recorder) ProcessFrame(ctx context.Context, img image.Image, imu []sensor.InertialSample, timestamp float64) (Pose, error) {
	if err := ctx.Err(); err != nil {
		return Pose{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown {
		return Pose{}, ErrShutdown
	}
	if !r.initialized {
		return Pose{}, fmt.Errorf("engine not initialized")
	}
	if img == nil || img.Bounds().Empty() {
		return Pose{}, fmt.Errorf("frame %.6f: empty image", timestamp)
	}

	p := Identity(timestamp)
	r.poses = append(r.poses, p)
	r.imuSamples += len(imu)
	return p, nil
}

// Shutdown stops accepting frames. It is safe to call more than once.
func (r *Recorder) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown = true
	return nil
}

// Poses returns a copy of the recorded trajectory.
func (r *Recorder) Poses() []Pose {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Pose, len(r.poses))
	copy(out, r.poses)
	return out
}

// IMUSamples returns how many inertial samples were delivered in total.
func (r *Recorder) IMUSamples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.imuSamples
}

// PersistTrajectory writes the recorded poses to path in TUM format:
// "timestamp tx ty tz qx qy qz qw", one pose per line.
func (r *Recorder) PersistTrajectory(path string) error {
	poses := r.Poses()

	if dir := filepath.Dir(path); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create trajectory directory: %w", err)
		}
	}
	f, err := r.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trajectory file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, p := range poses {
		if !p.Tracked {
			continue
		}
		fmt.Fprintf(w, "%.6f %.7f %.7f %.7f %.7f %.7f %.7f %.7f\n",
			p.Timestamp,
			p.Translation[0], p.Translation[1], p.Translation[2],
			p.Rotation[0], p.Rotation[1], p.Rotation[2], p.Rotation[3])
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write trajectory: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close trajectory file: %w", err)
	}

	logf("trajectory saved: %s (%d poses)", path, len(poses))
	return nil
}
