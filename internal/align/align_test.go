package align

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/sensor-replay/internal/sensor"
)

func samplesAt(ts ...float64) []sensor.InertialSample {
	out := make([]sensor.InertialSample, len(ts))
	for i, t := range ts {
		out[i] = sensor.InertialSample{
			Timestamp:          t,
			AngularVelocity:    sensor.Vec3{X: float64(i)},
			LinearAcceleration: sensor.Vec3{Z: 9.81},
		}
	}
	return out
}

func timestamps(b Batch) []float64 {
	out := make([]float64, len(b))
	for i, s := range b {
		out[i] = s.Timestamp
	}
	return out
}

func TestStartIndex(t *testing.T) {
	tests := []struct {
		name   string
		imu    []sensor.InertialSample
		frames []float64
		want   int
	}{
		{"imu before first frame", samplesAt(0.0, 0.1), []float64{0.05, 0.15}, 0},
		{"imu equal to first frame", samplesAt(0.05), []float64{0.05, 0.15}, 0},
		{"skip early frames", samplesAt(0.2), []float64{0.05, 0.15, 0.25, 0.35}, 2},
		{"imu between frames lands on next", samplesAt(0.16), []float64{0.05, 0.15, 0.25}, 2},
		{"imu equal to later frame", samplesAt(0.15), []float64{0.05, 0.15, 0.25}, 1},
		{"imu after all frames", samplesAt(1.0), []float64{0.05, 0.15, 0.25}, 3},
		{"no frames", samplesAt(0.0), nil, 0},
		{"no imu", nil, []float64{0.05, 0.15}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartIndex(tt.imu, tt.frames); got != tt.want {
				t.Errorf("StartIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStartIndex_SmallestReachedFrame(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		frames := make([]float64, 1+rng.Intn(20))
		for i := range frames {
			frames[i] = rng.Float64() * 10
		}
		sort.Float64s(frames)
		t0 := rng.Float64() * 11
		got := StartIndex(samplesAt(t0), frames)

		want := len(frames)
		for i, f := range frames {
			if f >= t0 {
				want = i
				break
			}
		}
		if got != want {
			t.Fatalf("t0=%v frames=%v: got %d, want %d", t0, frames, got, want)
		}
	}
}

func TestAligner_Scenario(t *testing.T) {
	imu := samplesAt(0.0, 0.1, 0.2, 0.3)
	frames := []float64{0.05, 0.15, 0.25}

	start := StartIndex(imu, frames)
	if start != 0 {
		t.Fatalf("start = %d, want 0", start)
	}

	a := New(imu)
	want := [][]float64{{0.0}, {0.1}, {0.2}}
	for i := start; i < len(frames); i++ {
		got := timestamps(a.NextBatch(frames[i]))
		if diff := cmp.Diff(want[i], got); diff != "" {
			t.Errorf("frame %d batch mismatch (-want +got):\n%s", i, diff)
		}
	}
	if a.Remaining() != 1 || a.Consumed() != 3 {
		t.Errorf("consumed=%d remaining=%d, want 3 and 1", a.Consumed(), a.Remaining())
	}
}

func TestAligner_TieGoesToNextFrame(t *testing.T) {
	imu := samplesAt(0.0, 0.1, 0.2)
	a := New(imu)

	if got := timestamps(a.NextBatch(0.1)); !cmp.Equal(got, []float64{0.0}) {
		t.Errorf("frame at 0.1 got %v, want [0]", got)
	}
	if got := timestamps(a.NextBatch(0.2)); !cmp.Equal(got, []float64{0.1}) {
		t.Errorf("frame at 0.2 got %v, want [0.1]", got)
	}
}

func TestAligner_ExhaustedStreamYieldsEmptyBatches(t *testing.T) {
	a := New(samplesAt(0.0, 0.1))

	if got := a.NextBatch(5); len(got) != 2 {
		t.Fatalf("first batch has %d samples, want 2", len(got))
	}
	for i := 0; i < 3; i++ {
		if got := a.NextBatch(float64(6 + i)); len(got) != 0 {
			t.Errorf("batch after exhaustion has %d samples", len(got))
		}
	}
}

func TestAligner_CursorNeverRewinds(t *testing.T) {
	a := New(samplesAt(0.0, 0.1, 0.2, 0.3))
	_ = a.NextBatch(0.25)
	// an earlier frame time cannot pull samples back
	if got := a.NextBatch(0.05); len(got) != 0 {
		t.Errorf("got %v after rewind attempt", timestamps(got))
	}
	if a.Consumed() != 3 {
		t.Errorf("consumed = %d, want 3", a.Consumed())
	}
}

func TestAligner_BatchIsNotAppendable(t *testing.T) {
	imu := samplesAt(0.0, 0.1, 0.2)
	a := New(imu)
	b := a.NextBatch(0.05)
	_ = append(b, sensor.InertialSample{Timestamp: 99})

	if imu[1].Timestamp != 0.1 {
		t.Errorf("append through batch overwrote the stream: %v", imu[1])
	}
}

// Concatenating every batch in frame order reproduces exactly the consumed
// prefix of the stream.
func TestAligner_PartitionCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 100; iter++ {
		ts := make([]float64, rng.Intn(200))
		for i := range ts {
			// coarse grid so ties with frame times actually happen
			ts[i] = float64(rng.Intn(100)) / 10
		}
		sort.Float64s(ts)
		imu := samplesAt(ts...)

		frames := make([]float64, rng.Intn(30))
		for i := range frames {
			frames[i] = float64(rng.Intn(100)) / 10
		}
		sort.Float64s(frames)

		a := New(imu)
		var joined []sensor.InertialSample
		for i := StartIndex(imu, frames); i < len(frames); i++ {
			b := a.NextBatch(frames[i])
			for _, s := range b {
				if s.Timestamp >= frames[i] {
					t.Fatalf("sample %v not strictly before frame %v", s.Timestamp, frames[i])
				}
			}
			joined = append(joined, b...)
		}

		if diff := cmp.Diff(imu[:a.Consumed()], joined, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("iteration %d: partition mismatch (-prefix +batches):\n%s", iter, diff)
		}
	}
}
