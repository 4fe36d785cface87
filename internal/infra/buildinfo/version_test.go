package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.Commit == "" {
		t.Error("Commit should not be empty")
	}
	if info.BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestGet_InjectedValuesWin(t *testing.T) {
	oldVersion, oldCommit, oldTime := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldTime })

	Version, Commit, BuildTime = "v1.2.3", "abc123", "2026-01-01T00:00:00Z"

	info := Get()
	if info.Version != "v1.2.3" || info.Commit != "abc123" || info.BuildTime != "2026-01-01T00:00:00Z" {
		t.Errorf("Get() = %+v", info)
	}
	if info.Modified {
		t.Error("Modified only applies to the VCS fallback")
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, Version+" (") {
		t.Errorf("String() = %q", s)
	}
	if !strings.Contains(s, runtime.Version()) {
		t.Errorf("String() should include the Go version: %q", s)
	}
}

func TestShortRevision(t *testing.T) {
	if got := shortRevision("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("shortRevision() = %q", got)
	}
	if got := shortRevision("abc"); got != "abc" {
		t.Errorf("shortRevision() = %q", got)
	}
}
