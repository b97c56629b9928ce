// Package config loads the replay tool's settings from a JSON or YAML file
// with REPLAY_* environment overrides.
package config
