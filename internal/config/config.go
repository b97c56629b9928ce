package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTrajectoryPath    = "KeyFrameTrajectory.txt"
	DefaultBenchmarkInterval = 5 * time.Second
	DefaultMode              = "monocular-inertial"

	maxFileSize = 1 * 1024 * 1024 // 1MB
)

// ReplayConfig holds the replay tool's settings. Every field is optional;
// the Get* methods supply defaults for anything not set by the file, the
// environment or the command line.
type ReplayConfig struct {
	TrajectoryPath *string `json:"trajectory_path,omitempty" yaml:"trajectory_path,omitempty" env:"REPLAY_TRAJECTORY"`
	DBPath         *string `json:"db_path,omitempty"         yaml:"db_path,omitempty"         env:"REPLAY_DB"`
	ReportDir      *string `json:"report_dir,omitempty"      yaml:"report_dir,omitempty"      env:"REPLAY_REPORT_DIR"`
	Listen         *string `json:"listen,omitempty"          yaml:"listen,omitempty"          env:"REPLAY_LISTEN"`

	// Pacing
	Realtime          *bool    `json:"realtime,omitempty"           yaml:"realtime,omitempty"           env:"REPLAY_REALTIME"`
	SpeedMultiplier   *float64 `json:"speed_multiplier,omitempty"   yaml:"speed_multiplier,omitempty"   env:"REPLAY_SPEED"`
	BenchmarkInterval *string  `json:"benchmark_interval,omitempty" yaml:"benchmark_interval,omitempty" env:"REPLAY_BENCHMARK_INTERVAL"` // duration string like "5s"
	MaxFrames         *int     `json:"max_frames,omitempty"         yaml:"max_frames,omitempty"         env:"REPLAY_MAX_FRAMES"`

	// Engine
	Mode *string `json:"mode,omitempty" yaml:"mode,omitempty" env:"REPLAY_MODE"` // "monocular" or "monocular-inertial"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Empty returns a ReplayConfig with every field unset.
func Empty() *ReplayConfig {
	return &ReplayConfig{}
}

// Defaults returns a ReplayConfig with every field set to its default.
func Defaults() *ReplayConfig {
	return &ReplayConfig{
		TrajectoryPath:    ptrString(DefaultTrajectoryPath),
		DBPath:            ptrString(""),
		ReportDir:         ptrString(""),
		Listen:            ptrString(""),
		Realtime:          ptrBool(true),
		SpeedMultiplier:   ptrFloat64(1.0),
		BenchmarkInterval: ptrString(DefaultBenchmarkInterval.String()),
		MaxFrames:         ptrInt(0),
		Mode:              ptrString(DefaultMode),
	}
}

// Load reads a ReplayConfig from a .json, .yaml or .yml file of at most 1MB
// and validates it. Fields the file omits stay unset.
func Load(path string) (*ReplayConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from REPLAY_* environment variables and
// revalidates. Variables that are not set leave their field untouched.
func (c *ReplayConfig) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Validate checks that the configuration values are valid.
func (c *ReplayConfig) Validate() error {
	if c.SpeedMultiplier != nil && *c.SpeedMultiplier <= 0 {
		return fmt.Errorf("speed_multiplier must be positive, got %f", *c.SpeedMultiplier)
	}

	if c.BenchmarkInterval != nil && *c.BenchmarkInterval != "" {
		d, err := time.ParseDuration(*c.BenchmarkInterval)
		if err != nil {
			return fmt.Errorf("invalid benchmark_interval '%s': %w", *c.BenchmarkInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("benchmark_interval must be positive, got %s", d)
		}
	}

	if c.MaxFrames != nil && *c.MaxFrames < 0 {
		return fmt.Errorf("max_frames must be non-negative, got %d", *c.MaxFrames)
	}

	if c.Mode != nil && *c.Mode != "" {
		switch *c.Mode {
		case "monocular", "monocular-inertial":
		default:
			return fmt.Errorf("mode must be monocular or monocular-inertial, got %q", *c.Mode)
		}
	}

	if c.TrajectoryPath != nil && strings.TrimSpace(*c.TrajectoryPath) == "" {
		return fmt.Errorf("trajectory_path must not be empty")
	}

	return nil
}

// GetTrajectoryPath returns the trajectory_path value or the default.
func (c *ReplayConfig) GetTrajectoryPath() string {
	if c.TrajectoryPath == nil {
		return DefaultTrajectoryPath
	}
	return *c.TrajectoryPath
}

// GetDBPath returns the run store path; empty disables the store.
func (c *ReplayConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetReportDir returns the report directory; empty disables reports.
func (c *ReplayConfig) GetReportDir() string {
	if c.ReportDir == nil {
		return ""
	}
	return *c.ReportDir
}

// GetListen returns the debug listen address; empty disables the server.
func (c *ReplayConfig) GetListen() string {
	if c.Listen == nil {
		return ""
	}
	return *c.Listen
}

// GetRealtime returns the realtime value or the default.
func (c *ReplayConfig) GetRealtime() bool {
	if c.Realtime == nil {
		return true // default
	}
	return *c.Realtime
}

// GetSpeedMultiplier returns the speed_multiplier value or the default.
func (c *ReplayConfig) GetSpeedMultiplier() float64 {
	if c.SpeedMultiplier == nil || *c.SpeedMultiplier <= 0 {
		return 1.0
	}
	return *c.SpeedMultiplier
}

// GetBenchmarkInterval parses and returns the BenchmarkInterval as a time.Duration.
func (c *ReplayConfig) GetBenchmarkInterval() time.Duration {
	if c.BenchmarkInterval == nil || *c.BenchmarkInterval == "" {
		return DefaultBenchmarkInterval
	}
	d, err := time.ParseDuration(*c.BenchmarkInterval)
	if err != nil || d <= 0 {
		return DefaultBenchmarkInterval // default on parse error
	}
	return d
}

// GetMaxFrames returns the frame limit; zero means no limit.
func (c *ReplayConfig) GetMaxFrames() int {
	if c.MaxFrames == nil {
		return 0
	}
	return *c.MaxFrames
}

// GetMode returns the mode value or the default.
func (c *ReplayConfig) GetMode() string {
	if c.Mode == nil || *c.Mode == "" {
		return DefaultMode
	}
	return *c.Mode
}
