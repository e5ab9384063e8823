// Package version reports build information set via ldflags or read from
// the embedded VCS stamp.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   string // Set via ldflags.
	BuildDate string // Set via ldflags.

	Revision  = revision(readSettings())
	GoVersion = runtime.Version()
	Platform  = runtime.GOOS + "/" + runtime.GOARCH
)

// GetVersion returns [Version], or the VCS revision for untagged builds.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	return Revision
}

// String describes the build on one line.
func String() string {
	s := fmt.Sprintf("monana %s (%s, %s)", GetVersion(), GoVersion, Platform)
	if BuildDate != "" {
		s += " built " + BuildDate
	}

	return s
}

func readSettings() map[string]string {
	settings := map[string]string{}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return settings
	}

	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	return settings
}

func revision(settings map[string]string) string {
	rev, ok := settings["vcs.revision"]
	if !ok || rev == "" {
		return "unknown"
	}

	if len(rev) > 7 {
		rev = rev[:7]
	}

	if settings["vcs.modified"] == "true" {
		rev += "-dirty"
	}

	return rev
}
