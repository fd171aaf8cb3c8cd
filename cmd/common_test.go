package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/smazurov/debezel/internal/config"
	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/geometry"
	"github.com/smazurov/debezel/internal/profiles"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{encode.NewError(encode.KindEngineNotFound, "", nil), ExitNoEngine},
		{encode.NewError(encode.KindInputNotFound, "", nil), ExitUsage},
		{encode.NewError(encode.KindInvalidBezelSpec, "", nil), ExitUsage},
		{encode.NewError(encode.KindEncodeFailed, "", nil), ExitFailed},
		{encode.NewError(encode.KindCanceled, "", nil), ExitInterrupted},
		{context.Canceled, ExitInterrupted},
		{errors.New("other"), ExitFailed},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestReportErrorIncludesDiagnostic(t *testing.T) {
	var buf bytes.Buffer
	err := &encode.Error{
		Kind:       encode.KindEncodeFailed,
		Message:    "ffmpeg pass 2 failed (code 1)",
		Diagnostic: "Unknown encoder 'libx264'\nConversion failed!",
	}
	reportError(&buf, err)

	out := buf.String()
	for _, want := range []string{"ENCODE_FAILED", "pass 2", "  Unknown encoder 'libx264'", "  Conversion failed!"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// newSettingsCmd builds a command with the root run flags, parsed from args.
func newSettingsCmd(t *testing.T, s *config.Settings, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&s.BezelTopPx, FlagBezelTop, s.BezelTopPx, "")
	cmd.Flags().IntVar(&s.BezelBottomPx, FlagBezelBot, s.BezelBottomPx, "")
	cmd.Flags().Float64Var(&s.TargetSizeMB, FlagTargetSize, s.TargetSizeMB, "")
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestBuildRequestFromSettings(t *testing.T) {
	s := config.DefaultSettings()
	s.TargetSizeMB = 200
	cmd := newSettingsCmd(t, &s)

	req, err := buildRequest(cmd, s, "/videos/wall.mp4", "")
	if err != nil {
		t.Fatal(err)
	}
	if req.Bezel != geometry.DefaultBezel() {
		t.Errorf("Bezel = %+v, want default", req.Bezel)
	}
	if req.TargetSizeMB == nil || *req.TargetSizeMB != 200 {
		t.Errorf("TargetSizeMB = %v, want 200", req.TargetSizeMB)
	}
	if req.Output != "" {
		t.Errorf("Output = %q, want empty", req.Output)
	}
}

func TestBuildRequestOutputDir(t *testing.T) {
	s := config.DefaultSettings()
	s.OutputDir = "/renders"
	cmd := newSettingsCmd(t, &s)

	req, err := buildRequest(cmd, s, "/videos/wall.mov", "")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/renders", "wall_bezel_removed.mov"); req.Output != want {
		t.Errorf("Output = %q, want %q", req.Output, want)
	}

	req, err = buildRequest(cmd, s, "/videos/wall.mov", "/tmp/explicit.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if req.Output != "/tmp/explicit.mp4" {
		t.Errorf("Output = %q, want explicit path", req.Output)
	}
}

func TestBuildRequestProfilePrecedence(t *testing.T) {
	dir := t.TempDir()
	store := profiles.NewStore(filepath.Join(dir, "walls.toml"))
	if err := store.Put(profiles.Profile{Name: "lobby", TopPx: 4, BottomPx: 6, TargetSizeMB: 100}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		args     []string
		want     geometry.Bezel
		wantSize float64
	}{
		{"profile replaces configured values", nil, geometry.Bezel{TopPx: 4, BottomPx: 6}, 100},
		{"flag overrides profile", []string{"--" + FlagBezelBot + "=9"}, geometry.Bezel{TopPx: 4, BottomPx: 9}, 100},
		{"size flag overrides profile", []string{"--" + FlagTargetSize + "=300"}, geometry.Bezel{TopPx: 4, BottomPx: 6}, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.DefaultSettings()
			s.ProfilesFile = store.Path()
			s.Profile = "lobby"
			s.BezelTopPx = 30
			s.TargetSizeMB = 50
			cmd := newSettingsCmd(t, &s, tt.args...)

			req, err := buildRequest(cmd, s, "/videos/wall.mp4", "")
			if err != nil {
				t.Fatal(err)
			}
			if req.Bezel != tt.want {
				t.Errorf("Bezel = %+v, want %+v", req.Bezel, tt.want)
			}
			if req.TargetSizeMB == nil || *req.TargetSizeMB != tt.wantSize {
				t.Errorf("TargetSizeMB = %v, want %v", req.TargetSizeMB, tt.wantSize)
			}
		})
	}
}

func TestBuildRequestUnknownProfile(t *testing.T) {
	s := config.DefaultSettings()
	s.ProfilesFile = filepath.Join(t.TempDir(), "walls.toml")
	s.Profile = "missing"
	cmd := newSettingsCmd(t, &s)

	if _, err := buildRequest(cmd, s, "/videos/wall.mp4", ""); !errors.Is(err, profiles.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
