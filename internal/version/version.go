// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags.
var (
	// Version is the semantic version
	Version = "0.1.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String renders the full version line shown by the CLI.
func String() string {
	return fmt.Sprintf("landviewer %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
