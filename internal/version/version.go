// Package version holds the build version reported by both binaries and
// advertised in the daemon's mDNS TXT record.
package version

import (
	"runtime/debug"
)

// Set with -ldflags "-X github.com/muurk/zerostock/internal/version.Version=v0.3.0".
// Unset values are taken from the module build info.
var (
	Version = ""
	Commit  = ""
)

func init() {
	info, _ := debug.ReadBuildInfo()
	Version, Commit = resolve(Version, Commit, info)
}

// resolve fills unset values from build info. Version stays a single token
// because it is published as a TXT value.
func resolve(ver, commit string, info *debug.BuildInfo) (string, string) {
	if info != nil {
		if ver == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			ver = info.Main.Version
		}
		if commit == "" {
			commit = vcsCommit(info.Settings)
		}
	}
	if ver == "" {
		ver = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	return ver, commit
}

func vcsCommit(settings []debug.BuildSetting) string {
	var rev string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

// Full returns the version with its commit, as printed by the version commands
func Full() string {
	return Version + " (commit: " + Commit + ")"
}
