package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/geometry"
	"github.com/smazurov/debezel/internal/jobs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSubmitter struct {
	mu   sync.Mutex
	reqs []encode.Request
	got  chan encode.Request
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{got: make(chan encode.Request, 16)}
}

func (f *fakeSubmitter) Submit(req encode.Request) (jobs.Job, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	f.got <- req
	return jobs.Job{ID: "job-" + filepath.Base(req.Input)}, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func defaultRequest(string) (encode.Request, error) {
	return encode.Request{Bezel: geometry.DefaultBezel()}, nil
}

func startWatcher(t *testing.T, cfg Config, sub Submitter, req RequestFunc) {
	t.Helper()
	w := New(cfg, sub, req, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run: %v", err)
		}
	})
	time.Sleep(100 * time.Millisecond)
}

func TestEligible(t *testing.T) {
	tests := map[string]bool{
		"/in/wall.mp4":               true,
		"/in/WALL.MOV":               true,
		"/in/wall.mkv":               true,
		"/in/wall.m4v":               true,
		"/in/wall_bezel_removed.mp4": false,
		"/in/.wall.mp4":              false,
		"/in/notes.txt":              false,
		"/in/wall":                   false,
		"/in/wall_2pass-0.log":       false,
	}
	for path, want := range tests {
		if got := Eligible(path); got != want {
			t.Errorf("Eligible(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestDroppedFileIsQueuedOnce(t *testing.T) {
	dir := t.TempDir()
	sub := newFakeSubmitter()
	startWatcher(t, Config{Dir: dir, Settle: 100 * time.Millisecond}, sub, defaultRequest)

	path := filepath.Join(dir, "wall.mp4")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if _, err := f.Write([]byte("chunk")); err != nil {
			t.Fatal(err)
		}
		time.Sleep(30 * time.Millisecond)
	}
	f.Close()

	select {
	case req := <-sub.got:
		if req.Input != path {
			t.Errorf("Input = %q, want %q", req.Input, path)
		}
		if req.Bezel != geometry.DefaultBezel() {
			t.Errorf("Bezel = %+v", req.Bezel)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for submit")
	}

	// A later write to the same file does not queue it again.
	if err := os.WriteFile(path, []byte("more"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := sub.count(); n != 1 {
		t.Errorf("submits = %d, want 1", n)
	}
}

func TestGrowingFileWaitsForStableSize(t *testing.T) {
	dir := t.TempDir()
	sub := newFakeSubmitter()
	w := New(Config{Dir: dir, Settle: 150 * time.Millisecond}, sub, defaultRequest, testLogger())

	path := filepath.Join(dir, "wall.mp4")
	if err := os.WriteFile(path, []byte("chunk"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.schedule(path)

	// Grow the file without another event, as a copy over a network
	// share does.
	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("more bytes")); err != nil {
		t.Fatal(err)
	}
	f.Close()

	time.Sleep(200 * time.Millisecond)
	if n := sub.count(); n != 0 {
		t.Fatalf("submits while growing = %d, want 0", n)
	}

	select {
	case req := <-sub.got:
		if req.Input != path {
			t.Errorf("Input = %q, want %q", req.Input, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for submit")
	}
	if n := sub.count(); n != 1 {
		t.Errorf("submits = %d, want 1", n)
	}
}

func TestOutputsAndOtherFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	sub := newFakeSubmitter()
	startWatcher(t, Config{Dir: dir, Settle: 50 * time.Millisecond}, sub, defaultRequest)

	for _, name := range []string{"wall_bezel_removed.mp4", "readme.txt", ".partial.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(300 * time.Millisecond)
	if n := sub.count(); n != 0 {
		t.Errorf("submits = %d, want 0", n)
	}
}

func TestExistingFilesAndOutputDir(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	path := filepath.Join(dir, "lobby.mov")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	sub := newFakeSubmitter()
	startWatcher(t, Config{Dir: dir, OutputDir: outDir, Settle: 50 * time.Millisecond, Existing: true}, sub, defaultRequest)

	select {
	case req := <-sub.got:
		want := filepath.Join(outDir, "lobby_bezel_removed.mov")
		if req.Output != want {
			t.Errorf("Output = %q, want %q", req.Output, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for existing file")
	}
}

func TestRequestErrorSkipsFile(t *testing.T) {
	dir := t.TempDir()
	sub := newFakeSubmitter()
	failing := func(string) (encode.Request, error) { return encode.Request{}, errors.New("no profile") }
	startWatcher(t, Config{Dir: dir, Settle: 50 * time.Millisecond}, sub, failing)

	if err := os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := sub.count(); n != 0 {
		t.Errorf("submits = %d, want 0", n)
	}
}

func TestRunRejectsMissingDir(t *testing.T) {
	w := New(Config{Dir: filepath.Join(t.TempDir(), "missing")}, newFakeSubmitter(), defaultRequest, testLogger())
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected error for missing directory")
	}
}
