// Package version exposes build metadata stamped in at link time.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags at release build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Get returns the release version, falling back to module build info for
// plain go-install builds.
func Get() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return Version
}

// String formats the full build description.
func String() string {
	return fmt.Sprintf("quarry %s (commit %s, built %s, %s %s/%s)",
		Get(), GitCommit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
