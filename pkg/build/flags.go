// SPDX-License-Identifier: MIT
//
// Package build exposes build metadata (name, version, commit, timestamp)
// embedded into the binary via -ldflags. The values are used by the CLI for
// version output and by logging at startup.
package build

type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Populated by -ldflags at compile time. The fallbacks keep development
// builds usable without a release script.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

// GetInfo returns the build metadata, substituting development defaults
// for any flag that was not set at link time.
func GetInfo() Info {
	info := Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	if info.Name == "" {
		info.Name = "analyzer"
	}
	if info.Time == "" {
		info.Time = "unknown"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}
