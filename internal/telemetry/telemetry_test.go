package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensor-replay/internal/timeutil"
)

func TestSummarize_KnownSequence(t *testing.T) {
	stats := []TrackStat{0.02, 0.05, 0.01, 0.04, 0.03}
	s := Summarize(stats)

	assert.Equal(t, 5, s.Frames)
	assert.Equal(t, 0.03, s.Median)
	assert.InDelta(t, 0.03, s.Mean, 1e-12)
	assert.Equal(t, 0.01, s.Min)
	assert.Equal(t, 0.05, s.Max)
	assert.InDelta(t, 0.0158113883, s.StdDev, 1e-9)

	// Summarize works on a copy
	assert.Equal(t, []TrackStat{0.02, 0.05, 0.01, 0.04, 0.03}, stats)
}

func TestSortInPlace_IsDestructive(t *testing.T) {
	stats := []TrackStat{0.02, 0.05, 0.01, 0.04, 0.03}
	s := SortInPlace(stats)

	assert.Equal(t, []TrackStat{0.01, 0.02, 0.03, 0.04, 0.05}, stats)
	assert.Equal(t, 0.03, s.Median)
}

func TestSummarize_EvenCountUsesUpperMedian(t *testing.T) {
	s := Summarize([]TrackStat{0.4, 0.1, 0.3, 0.2})
	assert.Equal(t, 0.3, s.Median)
	assert.InDelta(t, 0.25, s.Mean, 1e-12)
}

func TestSummarize_SingleAndEmpty(t *testing.T) {
	s := Summarize([]TrackStat{0.07})
	assert.Equal(t, Summary{Frames: 1, Median: 0.07, Mean: 0.07, Min: 0.07, Max: 0.07}, s)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestThroughputMeter_ReportsAfterInterval(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewThroughputMeter(clock, 5*time.Second)

	// 20 frames at 20 Hz: exactly 5 s elapsed is not yet "more than" 5 s
	for i := 0; i < 100; i++ {
		clock.Advance(50 * time.Millisecond)
		_, ok := m.Tick()
		require.False(t, ok, "report emitted early at frame %d", i)
	}

	clock.Advance(50 * time.Millisecond)
	r, ok := m.Tick()
	require.True(t, ok)
	assert.Equal(t, 101, r.Frames)
	assert.Equal(t, 5*time.Second, r.Interval)
	assert.Equal(t, 5050*time.Millisecond, r.Elapsed)
	assert.InDelta(t, 20.2, r.FPS, 1e-9)
	assert.Equal(t, "101 frames in 5 seconds: 20.200000 fps", r.String())

	// counter and window reset
	clock.Advance(time.Second)
	_, ok = m.Tick()
	assert.False(t, ok)
	clock.Advance(5 * time.Second)
	r, ok = m.Tick()
	require.True(t, ok)
	assert.Equal(t, 2, r.Frames)
}

func TestThroughputMeter_DefaultInterval(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	m := NewThroughputMeter(clock, 0)
	assert.Equal(t, DefaultReportInterval, m.interval)
}
