package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smazurov/debezel/internal/config"
	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/logging"
)

// CreateRunCmd creates the run command. settings is filled in by the root
// command before any subcommand runs.
func CreateRunCmd(settings *config.Settings) *cobra.Command {
	var output string
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Remove bezels from one wall recording",
		Long: `Detects the wall layout of <input>, builds the crop-and-stack filter graph and ` +
			`encodes it in two passes to a 4320x1920 file. Ctrl-C stops the encoder and removes ` +
			`the two-pass statistics files.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			interactive := !noProgress && isTerminal(os.Stdout)
			code := runEncode(ctx, cmd, *settings, args[0], output, os.Stdout, os.Stderr, interactive)
			os.Exit(code)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: <input>_bezel_removed.<ext>)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Print progress lines instead of a progress bar")
	return cmd
}

// runEncode performs one run and returns the process exit code.
func runEncode(ctx context.Context, cmd *cobra.Command, s config.Settings, input, output string, stdout, stderr io.Writer, interactive bool) int {
	logger := logging.GetLogger("run")

	req, err := buildRequest(cmd, s, input, output)
	if err != nil {
		reportError(stderr, err)
		return ExitUsage
	}

	orch := newOrchestrator(s)
	rep := newReporter(stdout, interactive)
	result, err := orch.Run(ctx, req, encode.Dedup(rep.Notify))
	rep.Close(err == nil)

	if err != nil {
		logger.Debug("Run failed", "input", input, "kind", encode.KindOf(err))
		reportError(stderr, err)
		return ExitCode(err)
	}

	fmt.Fprintln(stdout, summarize(result))
	return ExitOK
}

// summarize renders a finished run as a table.
func summarize(r encode.Result) string {
	source := "unknown"
	if r.SourceKnown {
		source = r.Source.String()
	}
	duration := "unknown"
	if r.DurationSeconds > 0 {
		duration = (time.Duration(r.DurationSeconds * float64(time.Second))).Round(time.Second).String()
	}
	bitrate := strconv.Itoa(r.Plan.VideoBitrateKbps) + " kbps"
	if r.Plan.Bitrate.Clamped {
		bitrate += " (clamped from " + strconv.Itoa(r.Plan.Bitrate.UnclampedKbps) + ")"
	}
	size := "unknown"
	if info, err := os.Stat(r.OutputPath); err == nil {
		size = humanize.IBytes(uint64(info.Size()))
	}

	return renderPairs([][2]string{
		{"Output", r.OutputPath},
		{"Size", size},
		{"Layout", r.Layout.Describe()},
		{"Source", source},
		{"Duration", duration},
		{"Video bitrate", bitrate},
		{"Pass 1", r.PassDurations[0].Round(time.Second).String()},
		{"Pass 2", r.PassDurations[1].Round(time.Second).String()},
		{"Elapsed", r.Elapsed.Round(time.Second).String()},
	})
}
