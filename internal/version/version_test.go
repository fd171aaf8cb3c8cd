package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestStringTruncatesCommit(t *testing.T) {
	old := GitCommit
	GitCommit = "0123456789abcdef"
	t.Cleanup(func() { GitCommit = old })

	if got := String(); !strings.HasSuffix(got, "(0123456)") || !strings.HasPrefix(got, "debezel ") {
		t.Errorf("String() = %q", got)
	}
}
