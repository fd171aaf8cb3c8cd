package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/ffmpeg"
	"github.com/smazurov/debezel/internal/geometry"
	"github.com/smazurov/debezel/internal/history"
	"github.com/smazurov/debezel/internal/planner"
	"github.com/smazurov/debezel/internal/profiles"
)

func TestReporterLines(t *testing.T) {
	var buf bytes.Buffer
	r := newReporter(&buf, false)

	r.Notify(encode.Label("Pass 1 (analysis)..."))
	r.Notify(encode.At(0, "Pass 1..."))
	r.Notify(encode.At(0.4, "Pass 1..."))
	r.Notify(encode.At(12.7, "Pass 1..."))
	r.Notify(encode.At(50, "Pass 2 (final encode)..."))
	r.Notify(encode.At(100, encode.DoneMessage))
	r.Close(true)

	want := []string{
		"Pass 1 (analysis)...",
		"  0%  Pass 1...",
		" 12%  Pass 1...",
		" 50%  Pass 2 (final encode)...",
		"100%  Done.",
	}
	got := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestReporterBarWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	r := newReporter(&buf, true)
	r.Notify(encode.At(25, "Pass 1..."))
	r.Notify(encode.At(100, encode.DoneMessage))
	r.Close(true)

	if !strings.Contains(buf.String(), encode.DoneMessage) {
		t.Errorf("bar output missing final message: %q", buf.String())
	}
}

func testPreview(duration float64) encode.Preview {
	size := 200.0
	var d *float64
	if duration > 0 {
		d = &duration
	}
	plan := planner.NewPlan(geometry.Build(geometry.LayoutVertical, geometry.DefaultBezel()), planner.PlanBitrate(&size, d))
	return encode.Preview{
		Engine:          "/usr/bin/ffmpeg",
		Input:           "/videos/wall.mp4",
		Output:          "/videos/wall_bezel_removed.mp4",
		Source:          geometry.VerticalReference,
		SourceKnown:     true,
		DurationSeconds: duration,
		Layout:          geometry.LayoutVertical,
		Plan:            plan,
		EstimatedSizeMB: planner.EstimateSizeMB(plan.VideoBitrateKbps, duration),
	}
}

func TestPrintPreviewTable(t *testing.T) {
	var buf bytes.Buffer
	if err := printPreview(&buf, testPreview(600), false, true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"vertical stack",
		"3840×8640",
		"2636 kbps (target_size)",
		"4320x1920",
		"10m0s",
		"transpose=2",
		"-pass 1",
		"-pass 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("preview missing %q:\n%s", want, out)
		}
	}
}

func TestPrintPreviewUnknownDuration(t *testing.T) {
	var buf bytes.Buffer
	p := testPreview(0)
	p.SourceKnown = false
	if err := printPreview(&buf, p, false, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "10000 kbps (default)") {
		t.Errorf("expected default bitrate:\n%s", out)
	}
	if !strings.Contains(out, "unknown (assuming horizontal)") {
		t.Errorf("expected unknown source:\n%s", out)
	}
	if strings.Contains(out, "-pass") {
		t.Error("commands printed without --command")
	}
}

func TestPrintPreviewJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printPreview(&buf, testPreview(600), true, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"layout": "vertical_stack"`) {
		t.Errorf("unexpected JSON:\n%s", buf.String())
	}
}

func TestPrintProfiles(t *testing.T) {
	var buf bytes.Buffer
	printProfiles(&buf, nil)
	if !strings.Contains(buf.String(), "No profiles") {
		t.Errorf("empty list output = %q", buf.String())
	}

	buf.Reset()
	printProfiles(&buf, []profiles.Profile{
		{Name: "lobby", TopPx: 16, BottomPx: 21, TargetSizeMB: 200, Description: "Main lobby"},
		{Name: "atrium", TopPx: 10, BottomPx: 12},
	})
	out := buf.String()
	for _, want := range []string{"lobby", "Main lobby", "200 MiB", "atrium", "default bitrate"} {
		if !strings.Contains(out, want) {
			t.Errorf("profiles table missing %q:\n%s", want, out)
		}
	}
}

func TestPrintHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printHistory(&buf, []history.Entry{
		{
			Input: "/videos/a.mp4", State: "succeeded", VideoKbps: 50000, BitrateClamped: true,
			StartedAt: now.Add(-3 * time.Hour), FinishedAt: now.Add(-2 * time.Hour),
		},
		{
			Input: "/videos/b.mp4", State: "failed", ErrorKind: "ENCODE_FAILED",
			StartedAt: now.Add(-time.Minute), FinishedAt: now.Add(-30 * time.Second),
		},
	}, now)

	out := buf.String()
	for _, want := range []string{"a.mp4", "50000*", "2 hours ago", "failed (ENCODE_FAILED)", "30s"} {
		if !strings.Contains(out, want) {
			t.Errorf("history table missing %q:\n%s", want, out)
		}
	}
}

func TestSummarize(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "wall_bezel_removed.mp4")
	if err := os.WriteFile(out, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	p := testPreview(600)
	got := summarize(encode.Result{
		OutputPath:      out,
		Source:          p.Source,
		SourceKnown:     true,
		Layout:          p.Layout,
		Plan:            p.Plan,
		DurationSeconds: 600,
		PassDurations:   [2]time.Duration{90 * time.Second, 3 * time.Minute},
		Elapsed:         271 * time.Second,
	})
	for _, want := range []string{out, "2.0 KiB", "2636 kbps", "1m30s", "3m0s", "4m31s"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestRunCheckMissingEngine(t *testing.T) {
	var buf bytes.Buffer
	missing := func() (string, bool) { return "", false }
	if code := runCheck(context.Background(), missing, &buf); code != ExitNoEngine {
		t.Errorf("code = %d, want %d", code, ExitNoEngine)
	}
	if !strings.Contains(buf.String(), "not found") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunCheckReportsVersion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine")
	}
	dir := t.TempDir()
	engine := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\necho 'ffmpeg version 7.1 Copyright (c) 2000-2024'\necho 'built with gcc'\n"
	if err := os.WriteFile(engine, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if code := runCheck(context.Background(), ffmpeg.Fixed(engine), &buf); code != ExitOK {
		t.Errorf("code = %d, want %d", code, ExitOK)
	}
	out := buf.String()
	if !strings.Contains(out, "ffmpeg version 7.1") {
		t.Errorf("missing version line:\n%s", out)
	}
	if strings.Contains(out, "built with gcc") {
		t.Errorf("only the first version line should be shown:\n%s", out)
	}
}
