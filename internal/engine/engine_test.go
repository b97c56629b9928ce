package engine

import (
	"context"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensor-replay/internal/fsutil"
	"github.com/banshee-data/sensor-replay/internal/monitoring"
	"github.com/banshee-data/sensor-replay/internal/sensor"
)

const euRoCSettings = `%YAML:1.0

# Camera Parameters
Camera.type: "PinHole"
Camera.fx: 458.654
Camera.fy: 457.296
Camera.fps: 20.0
Camera.RGB: 1

Tbc: !!opencv-matrix
   rows: 2
   cols: 2
   dt: f
   data: [1.0, 0.0,
          0.0, 1.0]

IMU.Frequency: 200
`

func muteLogs(t *testing.T) {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })
}

func newRecorderFixture(t *testing.T) (*Recorder, *fsutil.MemoryFileSystem) {
	t.Helper()
	muteLogs(t)
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/vocab/ORBvoc.txt", []byte("vocab"), 0o644))
	require.NoError(t, fsys.WriteFile("/cfg/EuRoC.yaml", []byte(euRoCSettings), 0o644))
	return NewRecorder(fsys), fsys
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "monocular", Monocular.String())
	assert.Equal(t, "monocular-inertial", MonocularInertial.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())
}

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings([]byte(euRoCSettings))
	require.NoError(t, err)

	fx, ok := s.Float("Camera.fx")
	require.True(t, ok)
	assert.InDelta(t, 458.654, fx, 1e-9)
	assert.Equal(t, "PinHole", s.Values["Camera.type"])

	_, ok = s.Float("Camera.type")
	assert.False(t, ok, "non-numeric value")
	_, ok = s.Float("Missing")
	assert.False(t, ok)

	tbc, ok := s.Matrices["Tbc"]
	require.True(t, ok)
	assert.Equal(t, 2, tbc.Rows)
	assert.Equal(t, []float64{1, 0, 0, 1}, tbc.Data)
}

func TestParseSettings_PlainYAML(t *testing.T) {
	s, err := ParseSettings([]byte("Camera.fps: 30\n"))
	require.NoError(t, err)
	fps, ok := s.Float("Camera.fps")
	require.True(t, ok)
	assert.Equal(t, 30.0, fps)
}

func TestParseSettings_Empty(t *testing.T) {
	s, err := ParseSettings([]byte("%YAML:1.0\n"))
	require.NoError(t, err)
	assert.Empty(t, s.Values)
}

func TestParseSettings_Errors(t *testing.T) {
	_, err := ParseSettings([]byte("- a\n- b\n"))
	assert.Error(t, err, "sequence at top level")

	_, err = ParseSettings([]byte("M: !!opencv-matrix\n  rows: 2\n  cols: 2\n  data: [1]\n"))
	assert.ErrorContains(t, err, "2x2 matrix has 1 values")

	_, err = ParseSettings([]byte("a: [unterminated\n"))
	assert.Error(t, err)
}

func TestRecorder_InitializeErrors(t *testing.T) {
	r, fsys := newRecorderFixture(t)

	err := r.Initialize("/vocab/missing.txt", "/cfg/EuRoC.yaml", Monocular)
	assert.ErrorContains(t, err, "vocabulary not found")

	err = r.Initialize("/vocab/ORBvoc.txt", "/cfg/missing.yaml", Monocular)
	assert.ErrorContains(t, err, "failed to read settings")

	require.NoError(t, fsys.WriteFile("/cfg/bad.yaml", []byte("- x\n"), 0o644))
	err = r.Initialize("/vocab/ORBvoc.txt", "/cfg/bad.yaml", Monocular)
	assert.Error(t, err)
}

func TestRecorder_ProcessAndPersist(t *testing.T) {
	r, fsys := newRecorderFixture(t)
	require.NoError(t, r.Initialize("/vocab/ORBvoc.txt", "/cfg/EuRoC.yaml", Monocular))

	img := image.NewGray(image.Rect(0, 0, 4, 4))
	imu := []sensor.InertialSample{{Timestamp: 0.01}, {Timestamp: 0.02}}

	ctx := context.Background()
	p, err := r.ProcessFrame(ctx, img, imu, 1403636579.763555)
	require.NoError(t, err)
	assert.True(t, p.Tracked)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, p.Rotation)

	_, err = r.ProcessFrame(ctx, img, nil, 1403636579.813555)
	require.NoError(t, err)
	assert.Equal(t, 2, r.IMUSamples())
	assert.Len(t, r.Poses(), 2)

	require.NoError(t, r.Shutdown())
	require.NoError(t, r.Shutdown())
	_, err = r.ProcessFrame(ctx, img, nil, 1403636579.863555)
	assert.ErrorIs(t, err, ErrShutdown)

	require.NoError(t, r.PersistTrajectory("/out/KeyFrameTrajectory.txt"))
	data, err := fsys.ReadFile("/out/KeyFrameTrajectory.txt")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1403636579.763555 0.0000000 0.0000000 0.0000000 0.0000000 0.0000000 0.0000000 1.0000000", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1403636579.813555 "))
}

func TestRecorder_ProcessFrameRejects(t *testing.T) {
	r, _ := newRecorderFixture(t)
	img := image.NewGray(image.Rect(0, 0, 2, 2))

	_, err := r.ProcessFrame(context.Background(), img, nil, 1)
	assert.ErrorContains(t, err, "not initialized")

	require.NoError(t, r.Initialize("/vocab/ORBvoc.txt", "/cfg/EuRoC.yaml", MonocularInertial))

	_, err = r.ProcessFrame(context.Background(), image.NewGray(image.Rectangle{}), nil, 1)
	assert.ErrorContains(t, err, "empty image")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.ProcessFrame(ctx, img, nil, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecorder_PersistEmptyTrajectory(t *testing.T) {
	r, fsys := newRecorderFixture(t)
	require.NoError(t, r.PersistTrajectory("traj.txt"))
	data, err := fsys.ReadFile("traj.txt")
	require.NoError(t, err)
	assert.Empty(t, data)
}
