// Package version carries the build identity stamped in with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/banshee-data/sensor-replay/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build identity on one line for startup logs.
func String() string {
	return fmt.Sprintf("%s (sha=%s, built=%s)", Version, GitSHA, BuildTime)
}
