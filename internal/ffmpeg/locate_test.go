package ffmpeg

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFixed(t *testing.T) {
	dir := t.TempDir()
	path := writeExecutable(t, dir, "ffmpeg")

	if got, ok := Fixed(path)(); !ok || got != path {
		t.Errorf("Fixed(existing) = %q, %v", got, ok)
	}
	if _, ok := Fixed(filepath.Join(dir, "missing"))(); ok {
		t.Error("Fixed(missing) ok = true")
	}
	if _, ok := Fixed("")(); ok {
		t.Error("Fixed(\"\") ok = true")
	}
	if _, ok := Fixed(dir)(); ok {
		t.Error("Fixed(directory) ok = true")
	}
}

func TestBundleDirs(t *testing.T) {
	empty := t.TempDir()
	bundle := t.TempDir()
	want := writeExecutable(t, bundle, EngineName)

	got, ok := BundleDirs(empty, bundle)()
	if !ok || got != want {
		t.Errorf("BundleDirs = %q, %v; want %q", got, ok, want)
	}
	if _, ok := BundleDirs(empty)(); ok {
		t.Error("BundleDirs(empty) ok = true")
	}
}

func TestChainOrder(t *testing.T) {
	miss := func() (string, bool) { return "", false }
	first := func() (string, bool) { return "first", true }
	second := func() (string, bool) { return "second", true }

	if got, _ := Chain(miss, nil, first, second)(); got != "first" {
		t.Errorf("Chain = %q, want first", got)
	}
	if Available(Chain(miss, miss)) {
		t.Error("Available(all misses) = true")
	}
	if Available(nil) {
		t.Error("Available(nil) = true")
	}
}

func TestLookPathUsesPATH(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PATH lookup of shell scripts is unix only")
	}
	dir := t.TempDir()
	want := writeExecutable(t, dir, EngineName)
	t.Setenv("PATH", dir)

	got, ok := LookPath(EngineName)()
	if !ok || got != want {
		t.Errorf("LookPath = %q, %v; want %q", got, ok, want)
	}

	t.Setenv("PATH", t.TempDir())
	if Available(LookPath(EngineName)) {
		t.Error("LookPath found engine on empty PATH")
	}
}

func TestDefaultLocatorPrefersConfigured(t *testing.T) {
	dir := t.TempDir()
	configured := writeExecutable(t, dir, "custom-ffmpeg")
	t.Setenv("PATH", t.TempDir())

	got, ok := DefaultLocator(configured)()
	if !ok || got != configured {
		t.Errorf("DefaultLocator = %q, %v; want %q", got, ok, configured)
	}
}

func TestProbePathSibling(t *testing.T) {
	dir := t.TempDir()
	engine := writeExecutable(t, dir, "ffmpeg")
	probe := writeExecutable(t, dir, "ffprobe")

	if got := ProbePath(engine); got != probe {
		t.Errorf("ProbePath = %q, want %q", got, probe)
	}
	if got := ProbePath(filepath.Join(t.TempDir(), "ffmpeg")); got != "ffprobe" {
		t.Errorf("ProbePath without sibling = %q, want ffprobe", got)
	}
}
