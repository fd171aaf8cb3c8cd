// Package cmd holds the debezel subcommands. The root command, which serves
// the HTTP API, is assembled in main.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smazurov/debezel/internal/config"
	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/ffmpeg"
	"github.com/smazurov/debezel/internal/logging"
	"github.com/smazurov/debezel/internal/profiles"
)

// Names of the root flags that carry run settings.
const (
	FlagBezelTop   = "bezel-top-px"
	FlagBezelBot   = "bezel-bottom-px"
	FlagTargetSize = "target-size-mb"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitUsage       = 2
	ExitNoEngine    = 3
	ExitInterrupted = 130
)

// ExitCode maps a run error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch encode.KindOf(err) {
	case encode.KindEngineNotFound:
		return ExitNoEngine
	case encode.KindInputNotFound, encode.KindInvalidBezelSpec:
		return ExitUsage
	case encode.KindCanceled:
		return ExitInterrupted
	}
	return ExitFailed
}

// reportError prints err and, for encoder failures, the engine's own output.
func reportError(w io.Writer, err error) {
	var e *encode.Error
	if !errors.As(err, &e) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Error [%s]: %s\n", e.Kind, e.Message)
	if e.Cause != nil && e.Kind != encode.KindCanceled {
		fmt.Fprintf(w, "  cause: %v\n", e.Cause)
	}
	if diag := strings.TrimSpace(e.Diagnostic); diag != "" {
		fmt.Fprintln(w, "ffmpeg output:")
		for _, line := range strings.Split(diag, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
}

// buildRequest resolves the request for input. A named profile replaces the
// configured bezel and target size; bezel and size flags given on the
// command line still override it. An empty output defers to the output
// directory, then to the input's directory.
func buildRequest(cmd *cobra.Command, s config.Settings, input, output string) (encode.Request, error) {
	prof := profiles.Profile{
		Name:         profiles.DefaultName,
		TopPx:        s.BezelTopPx,
		BottomPx:     s.BezelBottomPx,
		TargetSizeMB: s.TargetSizeMB,
	}

	if name := s.Profile; name != "" {
		store := profiles.NewStore(s.ProfilesFile)
		if err := store.Load(); err != nil {
			return encode.Request{}, err
		}
		p, err := store.Get(name)
		if err != nil {
			return encode.Request{}, err
		}

		var o profiles.Overrides
		flags := cmd.Flags()
		if flags.Changed(FlagBezelTop) {
			o.TopPx = &s.BezelTopPx
		}
		if flags.Changed(FlagBezelBot) {
			o.BottomPx = &s.BezelBottomPx
		}
		if flags.Changed(FlagTargetSize) {
			o.TargetSizeMB = &s.TargetSizeMB
		}
		prof = p.With(o)
	}

	if output == "" && s.OutputDir != "" {
		output = encode.ResolveOutputPath(input, s.OutputDir)
	}
	return encode.Request{
		Input:        input,
		Output:       output,
		Bezel:        prof.Bezel(),
		TargetSizeMB: prof.TargetSize(),
	}, nil
}

// newOrchestrator builds an orchestrator for the configured engine.
func newOrchestrator(s config.Settings) *encode.Orchestrator {
	return encode.NewOrchestrator(ffmpeg.DefaultLocator(s.EnginePath), logging.GetLogger("encode"))
}
