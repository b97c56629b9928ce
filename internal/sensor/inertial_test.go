package sensor

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensor-replay/internal/fsutil"
	"github.com/banshee-data/sensor-replay/internal/monitoring"
)

func muteLogs(t *testing.T) {
	t.Helper()
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = orig })
}

func TestLoadInertial_EuRoCFormat(t *testing.T) {
	muteLogs(t)
	log := strings.Join([]string{
		"#timestamp [ns],w_RS_S_x [rad s^-1],w_RS_S_y [rad s^-1],w_RS_S_z [rad s^-1],a_RS_S_x [m s^-2],a_RS_S_y [m s^-2],a_RS_S_z [m s^-2]",
		"1403636579758555392,-0.099134701513277898,0.14730578886832138,0.02722713633111154,8.1476917083333333,-0.37592158333333331,-2.4026292499999999",
		"1403636579763555584,-0.099134701513277898,0.14032447186034408,0.029321531433504733,8.033280791666666,-0.40861041666666664,-2.4026292499999999",
	}, "\n")

	samples, err := LoadInertial(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.InDelta(t, 1403636579.758555392, samples[0].Timestamp, 1e-6)
	assert.InDelta(t, -0.099134701513277898, samples[0].AngularVelocity.X, 1e-15)
	assert.InDelta(t, 0.02722713633111154, samples[0].AngularVelocity.Z, 1e-15)
	assert.InDelta(t, 8.1476917083333333, samples[0].LinearAcceleration.X, 1e-12)
	assert.InDelta(t, -2.4026292499999999, samples[1].LinearAcceleration.Z, 1e-12)
}

func TestLoadInertial_SeparatorsAndComments(t *testing.T) {
	muteLogs(t)
	log := "" +
		"% comment\n" +
		"\n" +
		"1000000000 1 2 3 4 5 6\n" +
		"2000000000, 1, 2, 3, 4, 5, 6\n" +
		"3000000000,1,2,3,4,5,6,99,100\n" +
		" 4000000000,1,2,3,4,5,6\n" + // leading space: not a digit, skipped
		"5000000000\t1\t2\t3\t4\t5\t6\r\n"

	samples, err := LoadInertial(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, samples, 4)

	want := InertialSample{
		AngularVelocity:    Vec3{1, 2, 3},
		LinearAcceleration: Vec3{4, 5, 6},
	}
	for i, ts := range []float64{1, 2, 3, 5} {
		want.Timestamp = ts
		assert.InDelta(t, want.Timestamp, samples[i].Timestamp, 1e-9, "sample %d", i)
		assert.Equal(t, want.AngularVelocity, samples[i].AngularVelocity, "sample %d", i)
		assert.Equal(t, want.LinearAcceleration, samples[i].LinearAcceleration, "sample %d", i)
	}
}

func TestLoadInertial_NanosecondConversion(t *testing.T) {
	muteLogs(t)
	samples, err := LoadInertial(strings.NewReader("1500000000,0,0,0,0,0,0\n"))
	require.NoError(t, err)
	assert.Equal(t, 1500000000*1e-9, samples[0].Timestamp)
}

func TestLoadInertial_MalformedLinesAreLenient(t *testing.T) {
	muteLogs(t)
	log := "" +
		"1000000000,1,2,3\n" + // short: trailing fields zero
		"2000000000,1,oops,3,4,5,6\n" + // stops at the first bad token
		"3abc,1,2,3,4,5,6\n" + // no usable time field
		"4000000000,1,2,3,4,5,6\n"

	samples, err := LoadInertial(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, Vec3{1, 2, 3}, samples[0].AngularVelocity)
	assert.Equal(t, Vec3{}, samples[0].LinearAcceleration)
	assert.Equal(t, Vec3{X: 1}, samples[1].AngularVelocity)
	assert.InDelta(t, 4.0, samples[2].Timestamp, 1e-9)
}

func TestLoadInertial_Empty(t *testing.T) {
	muteLogs(t)
	for name, input := range map[string]string{
		"empty":         "",
		"comments only": "#timestamp,wx,wy,wz,ax,ay,az\n# nothing\n",
		"garbage":       "1x,2,3\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadInertial(strings.NewReader(input))
			assert.ErrorIs(t, err, ErrNoInertialSamples)
		})
	}
}

// Ordering is whatever the file says; decreasing input stays decreasing.
func TestLoadInertial_PreservesFileOrder(t *testing.T) {
	muteLogs(t)
	log := "3000000000,0,0,0,0,0,0\n1000000000,0,0,0,0,0,0\n2000000000,0,0,0,0,0,0\n"
	samples, err := LoadInertial(strings.NewReader(log))
	require.NoError(t, err)

	got := make([]float64, len(samples))
	for i, s := range samples {
		got[i] = s.Timestamp
	}
	assert.InDeltaSlice(t, []float64{3, 1, 2}, got, 1e-9)
}

func TestLoadInertialFile(t *testing.T) {
	muteLogs(t)
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/mav0/imu0/data.csv", []byte("1000000000,0,0,0,0,0,9.81\n"), 0o644))

	samples, err := LoadInertialFile(fsys, "/mav0/imu0/data.csv")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 9.81, samples[0].LinearAcceleration.Z)

	_, err = LoadInertialFile(fsys, "/missing.csv")
	assert.Error(t, err)

	require.NoError(t, fsys.WriteFile("/empty.csv", nil, 0o644))
	_, err = LoadInertialFile(fsys, "/empty.csv")
	assert.True(t, errors.Is(err, ErrNoInertialSamples))
}
