package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "debezel.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{
			JobID: "a1", Input: "/in/a.mp4", Output: "/in/a_bezel_removed.mp4", State: "succeeded",
			Layout: "horizontal", VideoKbps: 10000, DurationSeconds: 5,
			StartedAt: base, FinishedAt: base.Add(time.Minute),
		},
		{
			JobID: "b2", Input: "/in/b.mov", State: "failed", Layout: "vertical",
			VideoKbps: 50000, BitrateClamped: true, ErrorKind: "ENCODE_FAILED", Error: "ffmpeg pass 2 failed (code 1)",
			StartedAt: base.Add(2 * time.Minute), FinishedAt: base.Add(3 * time.Minute),
		},
	}
	for _, e := range entries {
		if _, err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent len = %d, want 2", len(got))
	}
	if got[0].JobID != "b2" || got[1].JobID != "a1" {
		t.Errorf("order = %s, %s; want b2, a1", got[0].JobID, got[1].JobID)
	}

	b := got[0]
	if !b.BitrateClamped || b.VideoKbps != 50000 || b.ErrorKind != "ENCODE_FAILED" {
		t.Errorf("failed entry = %+v", b)
	}
	if b.Output != "" || b.DurationSeconds != 0 {
		t.Errorf("nullable fields not empty: output=%q duration=%v", b.Output, b.DurationSeconds)
	}
	if b.Elapsed() != time.Minute {
		t.Errorf("Elapsed = %v, want 1m", b.Elapsed())
	}

	a := got[1]
	if a.Output != "/in/a_bezel_removed.mp4" || a.DurationSeconds != 5 || !a.StartedAt.Equal(base) {
		t.Errorf("succeeded entry = %+v", a)
	}
}

func TestRecentLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := range 5 {
		e := Entry{JobID: string(rune('a' + i)), Input: "x.mp4", State: "succeeded",
			FinishedAt: time.Now().Add(time.Duration(i) * time.Second)}
		if _, err := s.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].JobID != "e" {
		t.Errorf("Recent(3) = %d entries, first %q", len(got), got[0].JobID)
	}
}

func TestForJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if e, err := s.ForJob(ctx, "missing"); err != nil || e != nil {
		t.Errorf("ForJob(missing) = %v, %v; want nil, nil", e, err)
	}
	if _, err := s.Record(ctx, Entry{JobID: "j1", Input: "a.mp4", State: "canceled"}); err != nil {
		t.Fatal(err)
	}
	e, err := s.ForJob(ctx, "j1")
	if err != nil || e == nil {
		t.Fatalf("ForJob = %v, %v", e, err)
	}
	if e.State != "canceled" {
		t.Errorf("State = %q, want canceled", e.State)
	}
	if e.StartedAt.IsZero() || e.FinishedAt.IsZero() {
		t.Error("timestamps should default to now")
	}
}

func TestRecordRequiresJobID(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Record(context.Background(), Entry{Input: "a.mp4"}); err == nil {
		t.Error("expected error without job id")
	}
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Record(context.Background(), Entry{JobID: "j", Input: "a.mp4", State: "succeeded"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Recent(context.Background(), 0)
	if err != nil || len(got) != 1 {
		t.Errorf("Recent after reopen = %d, %v", len(got), err)
	}
}
