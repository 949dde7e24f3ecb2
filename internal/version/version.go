// Package version carries build information stamped in with -ldflags.
package version

import "fmt"

var (
	// Version is the release version of the geofit tools
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build information for -version output.
func String() string {
	return fmt.Sprintf("geofit %s (commit %s, built %s)", Version, GitSHA, BuildTime)
}
