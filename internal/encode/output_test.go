package encode

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveOutputPath(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		input     string
		outputDir string
		want      string
	}{
		{filepath.Join(dir, "wall.mp4"), "", filepath.Join(dir, "wall_bezel_removed.mp4")},
		{filepath.Join(dir, "wall.mov"), "", filepath.Join(dir, "wall_bezel_removed.mov")},
		{filepath.Join(dir, "wall"), "", filepath.Join(dir, "wall_bezel_removed.mp4")},
		{filepath.Join(dir, "my.wall.mkv"), "", filepath.Join(dir, "my.wall_bezel_removed.mkv")},
		{filepath.Join(dir, "wall.mp4"), filepath.Join(dir, "out"), filepath.Join(dir, "out", "wall_bezel_removed.mp4")},
	}
	for _, tt := range tests {
		if got := ResolveOutputPath(tt.input, tt.outputDir); got != tt.want {
			t.Errorf("ResolveOutputPath(%q, %q) = %q, want %q", tt.input, tt.outputDir, got, tt.want)
		}
	}
}

func TestResolveOutputPathIsAbsolute(t *testing.T) {
	if got := ResolveOutputPath("wall.mp4", ""); !filepath.IsAbs(got) {
		t.Errorf("ResolveOutputPath(relative) = %q, want absolute", got)
	}
}

func TestIsOutputName(t *testing.T) {
	if !IsOutputName("/x/wall_bezel_removed.mp4") {
		t.Error("output name not recognized")
	}
	if IsOutputName("/x/wall.mp4") {
		t.Error("input name treated as output")
	}
}

func TestPassLogPrefix(t *testing.T) {
	got := PassLogPrefix(filepath.Join("/videos", "wall_bezel_removed.mp4"))
	want := filepath.Join("/videos", "wall_bezel_removed_2pass")
	if got != want {
		t.Errorf("PassLogPrefix = %q, want %q", got, want)
	}
}

func TestPassLogReleaseRemovesArtifacts(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "wall [1]_bezel_removed_2pass")
	keep := filepath.Join(dir, "wall [1]_bezel_removed.mp4")

	pl, err := AcquirePassLog(prefix)
	if err != nil {
		t.Fatalf("AcquirePassLog: %v", err)
	}
	for _, name := range []string{prefix + "-0.log", prefix + "-0.log.mbtree", keep} {
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := pl.Release()
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("removed %v, want 2 files", removed)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("output removed: %v", err)
	}
	if _, err := os.Stat(prefix + lockSuffix); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("lock file still present: %v", err)
	}
}

func TestPassLogReleaseKeepsUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "wall_bezel_removed_2pass")
	notes := prefix + "_notes.txt"
	if err := os.WriteFile(notes, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	pl, err := AcquirePassLog(prefix)
	if err != nil {
		t.Fatalf("AcquirePassLog: %v", err)
	}
	for _, name := range []string{prefix + "-0.log", prefix + "-0.log.mbtree", prefix + "-0.log.temp"} {
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := pl.Release()
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(removed) != 3 {
		t.Errorf("removed %v, want 3 files", removed)
	}
	if _, err := os.Stat(notes); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}

func TestPassLogBusy(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "wall_2pass")

	first, err := AcquirePassLog(prefix)
	if err != nil {
		t.Fatalf("AcquirePassLog: %v", err)
	}
	if _, err := AcquirePassLog(prefix); !errors.Is(err, ErrPassLogBusy) {
		t.Errorf("second acquire err = %v, want ErrPassLogBusy", err)
	}
	if _, err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	again, err := AcquirePassLog(prefix)
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	_, _ = again.Release()
}

func TestErrorFormatting(t *testing.T) {
	err := encodeFailed(2, 1, "Conversion failed!\n")
	if got := err.Error(); got != "ENCODE_FAILED: ffmpeg pass 2 failed (code 1). Conversion failed!" {
		t.Errorf("Error() = %q", got)
	}
	if KindOf(err) != KindEncodeFailed {
		t.Errorf("KindOf = %q", KindOf(err))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain error should have no kind")
	}
	if errors.Is(err, ErrInputNotFound) {
		t.Error("kinds must not cross-match")
	}
}
