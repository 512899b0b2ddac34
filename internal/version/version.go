// Package version provides version information for the application.
package version

import "fmt"

// Version information - populated via ldflags during release builds.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// GetVersion returns the version string.
// Returns "dev" for development builds, or the tagged version for releases.
func GetVersion() string {
	return Version
}

// GetFullVersion returns version with build information.
// Format: "v0.3.0 (commit: abc123, built: 2026-08-29T10:30:00Z)"
func GetFullVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
