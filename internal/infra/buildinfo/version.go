package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

var (
	vcsOnce     sync.Once
	vcsRevision string
	vcsTime     string
	vcsModified bool
)

func readVCS() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			vcsRevision = s.Value
		case "vcs.time":
			vcsTime = s.Value
		case "vcs.modified":
			vcsModified = s.Value == "true"
		}
	}
}

// Get returns the build information.
func Get() Info {
	vcsOnce.Do(readVCS)

	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
	if info.Commit == "unknown" && vcsRevision != "" {
		info.Commit = shortRevision(vcsRevision)
		info.Modified = vcsModified
	}
	if info.BuildTime == "unknown" && vcsTime != "" {
		info.BuildTime = vcsTime
	}
	return info
}

// String returns a formatted version string.
func String() string {
	info := Get()
	s := info.Version + " (" + info.Commit
	if info.Modified {
		s += "-dirty"
	}
	return s + ") built at " + info.BuildTime + " with " + info.GoVersion
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
