package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/sensor-replay/internal/replay"
	"github.com/banshee-data/sensor-replay/internal/timeutil"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// RunInfo is what is known about a run before its first frame.
type RunInfo struct {
	ID              string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	Mode            string    `json:"mode"`
	ImageDir        string    `json:"image_dir"`
	IndexPath       string    `json:"index_path"`
	InertialPath    string    `json:"inertial_path"`
	Realtime        bool      `json:"realtime"`
	SpeedMultiplier float64   `json:"speed_multiplier"`
}

// RunSummary is a stored run with its outcome.
type RunSummary struct {
	RunInfo
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Status     string    `json:"status"`
	StartIndex int       `json:"start_index"`
	EndIndex   int       `json:"end_index"`
	Frames     int       `json:"frames"`
	Median     float64   `json:"median_track_s"`
	Mean       float64   `json:"mean_track_s"`
	Min        float64   `json:"min_track_s"`
	Max        float64   `json:"max_track_s"`
	StdDev     float64   `json:"stddev_track_s"`
	Error      string    `json:"error,omitempty"`
}

// FrameRecord is one stored frame.
type FrameRecord struct {
	Index      int           `json:"frame_index"`
	Timestamp  float64       `json:"timestamp_s"`
	IMUSamples int           `json:"imu_samples"`
	Track      time.Duration `json:"track_ns"`
	Target     time.Duration `json:"target_ns"`
	Wait       time.Duration `json:"wait_ns"`
}

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// BeginRun inserts a run in the running state.
func (db *DB) BeginRun(info RunInfo) error {
	_, err := db.Exec(
		`INSERT INTO replay_runs (
			run_id, started_unix_nanos, status, mode, image_dir, index_path,
			inertial_path, realtime, speed_multiplier
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.StartedAt.UnixNano(), StatusRunning, info.Mode, info.ImageDir, info.IndexPath,
		info.InertialPath, info.Realtime, info.SpeedMultiplier,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", info.ID, err)
	}
	return nil
}

// ObserveFrame stores one delivered frame. It satisfies replay.FrameObserver.
func (db *DB) ObserveFrame(runID string, fr replay.FrameResult) error {
	_, err := db.Exec(
		`INSERT INTO replay_frames (
			run_id, frame_index, timestamp_s, imu_samples, track_s, target_s, wait_s
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, fr.Index, fr.Timestamp, fr.BatchSize,
		fr.Track.Seconds(), fr.Target.Seconds(), fr.Wait.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert frame %d: %w", fr.Index, err)
	}
	return nil
}

// FinishRun records a run's outcome. res may be nil when the run failed
// before producing anything.
func (db *DB) FinishRun(runID string, finishedAt time.Time, res *replay.Result, runErr error) error {
	status := StatusCompleted
	var errText sql.NullString
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = StatusCancelled
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	default:
		status = StatusFailed
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	var (
		startIndex, endIndex, frames sql.NullInt64
		median, mean, minT, maxT, sd sql.NullFloat64
	)
	if res != nil {
		startIndex = sql.NullInt64{Int64: int64(res.StartIndex), Valid: true}
		endIndex = sql.NullInt64{Int64: int64(res.EndIndex), Valid: true}
		frames = sql.NullInt64{Int64: int64(len(res.Frames)), Valid: true}
		s := res.Summary
		median = sql.NullFloat64{Float64: s.Median, Valid: true}
		mean = sql.NullFloat64{Float64: s.Mean, Valid: true}
		minT = sql.NullFloat64{Float64: s.Min, Valid: true}
		maxT = sql.NullFloat64{Float64: s.Max, Valid: true}
		sd = sql.NullFloat64{Float64: s.StdDev, Valid: true}
	}

	result, err := db.Exec(
		`UPDATE replay_runs SET
			finished_unix_nanos = ?, status = ?, start_index = ?, end_index = ?, frames = ?,
			median_track_s = ?, mean_track_s = ?, min_track_s = ?, max_track_s = ?,
			stddev_track_s = ?, error = ?
		WHERE run_id = ?`,
		finishedAt.UnixNano(), status, startIndex, endIndex, frames,
		median, mean, minT, maxT, sd, errText, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `run_id, started_unix_nanos, finished_unix_nanos, status, mode, image_dir,
	index_path, inertial_path, realtime, speed_multiplier, start_index, end_index, frames,
	median_track_s, mean_track_s, min_track_s, max_track_s, stddev_track_s, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunSummary, error) {
	var (
		r                                 RunSummary
		started                           int64
		finished                          sql.NullInt64
		startIndex, endIndex, frames      sql.NullInt64
		median, mean, minT, maxT, stddevT sql.NullFloat64
		errText                           sql.NullString
	)
	if err := row.Scan(
		&r.ID, &started, &finished, &r.Status, &r.Mode, &r.ImageDir,
		&r.IndexPath, &r.InertialPath, &r.Realtime, &r.SpeedMultiplier,
		&startIndex, &endIndex, &frames,
		&median, &mean, &minT, &maxT, &stddevT, &errText,
	); err != nil {
		return RunSummary{}, err
	}

	r.StartedAt = time.Unix(0, started).UTC()
	if finished.Valid {
		r.FinishedAt = time.Unix(0, finished.Int64).UTC()
	}
	r.StartIndex = int(startIndex.Int64)
	r.EndIndex = int(endIndex.Int64)
	r.Frames = int(frames.Int64)
	r.Median = median.Float64
	r.Mean = mean.Float64
	r.Min = minT.Float64
	r.Max = maxT.Float64
	r.StdDev = stddevT.Float64
	r.Error = errText.String
	return r, nil
}

// Run returns a single stored run.
func (db *DB) Run(runID string) (*RunSummary, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM replay_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM replay_runs ORDER BY started_unix_nanos DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunFrames returns a run's frames in delivery order.
func (db *DB) RunFrames(runID string) ([]FrameRecord, error) {
	rows, err := db.Query(
		`SELECT frame_index, timestamp_s, imu_samples, track_s, target_s, wait_s
		FROM replay_frames WHERE run_id = ? ORDER BY frame_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []FrameRecord
	for rows.Next() {
		var (
			f                    FrameRecord
			track, target, waitS float64
		)
		if err := rows.Scan(&f.Index, &f.Timestamp, &f.IMUSamples, &track, &target, &waitS); err != nil {
			return nil, err
		}
		f.Track = timeutil.Seconds(track)
		f.Target = timeutil.Seconds(target)
		f.Wait = timeutil.Seconds(waitS)
		frames = append(frames, f)
	}
	return frames, rows.Err()
}
