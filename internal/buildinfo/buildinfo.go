// Package buildinfo carries the version stamped in at link time:
//
//	go build -ldflags "-X kestrel/internal/buildinfo.Version=v0.3.0"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the version, else the commit, else "dev".
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// Banner is the line logged at boot.
func Banner() string {
	return fmt.Sprintf("kestrel %s (commit %s, built %s)", Short(), Commit, Date)
}
