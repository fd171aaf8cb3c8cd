package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smazurov/debezel/internal/config"
	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/ffmpeg"
)

// CreateProbeCmd creates the probe command, a dry run that reports what a
// run of the same input would do.
func CreateProbeCmd(settings *config.Settings) *cobra.Command {
	var output string
	var asJSON bool
	var showCommand bool

	cmd := &cobra.Command{
		Use:   "probe <input>",
		Short: "Show the layout, filter graph and bitrate a run would use",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			req, err := buildRequest(cmd, *settings, args[0], output)
			if err != nil {
				reportError(os.Stderr, err)
				os.Exit(ExitUsage)
			}
			preview, err := newOrchestrator(*settings).Preview(cmd.Context(), req)
			if err != nil {
				reportError(os.Stderr, err)
				os.Exit(ExitCode(err))
			}
			if err := printPreview(os.Stdout, preview, asJSON, showCommand); err != nil {
				reportError(os.Stderr, err)
				os.Exit(ExitFailed)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the preview as JSON")
	cmd.Flags().BoolVar(&showCommand, "command", false, "Also print both ffmpeg command lines")
	return cmd
}

func passCommands(p encode.Preview) [2]string {
	var out [2]string
	for i, pass := range []ffmpeg.Pass{ffmpeg.PassAnalysis, ffmpeg.PassFinal} {
		out[i] = ffmpeg.CommandLine(ffmpeg.BuildPassArgs(p.Engine, ffmpeg.PassSpec{
			Input:         p.Input,
			Output:        p.Output,
			Plan:          p.Plan,
			Pass:          pass,
			PassLogPrefix: encode.PassLogPrefix(p.Output),
		}))
	}
	return out
}

func printPreview(w io.Writer, p encode.Preview, asJSON, showCommand bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	source := "unknown (assuming horizontal)"
	if p.SourceKnown {
		source = p.Source.String()
	}
	duration := "unknown"
	estimate := "unknown"
	if p.DurationSeconds > 0 {
		duration = (time.Duration(p.DurationSeconds * float64(time.Second))).Round(time.Second).String()
		estimate = humanize.IBytes(uint64(p.EstimatedSizeMB * 1024 * 1024))
	}
	bitrate := strconv.Itoa(p.Plan.VideoBitrateKbps) + " kbps (" + string(p.Plan.Bitrate.Source) + ")"
	if p.Plan.Bitrate.Clamped {
		bitrate += ", clamped from " + strconv.Itoa(p.Plan.Bitrate.UnclampedKbps)
	}

	fmt.Fprintln(w, renderPairs([][2]string{
		{"Engine", p.Engine},
		{"Input", p.Input},
		{"Output", p.Output},
		{"Source", source},
		{"Duration", duration},
		{"Layout", p.Layout.Describe()},
		{"Bezel", fmt.Sprintf("top %d px, bottom %d px", p.Plan.Graph.Bezel.TopPx, p.Plan.Graph.Bezel.BottomPx)},
		{"Output size", p.Plan.OutputSize()},
		{"Video bitrate", bitrate},
		{"Estimated size", estimate},
	}))
	fmt.Fprintln(w, "Filter graph:")
	fmt.Fprintln(w, "  "+p.Plan.Graph.String())

	if showCommand {
		cmds := passCommands(p)
		fmt.Fprintln(w, "Pass 1:")
		fmt.Fprintln(w, "  "+cmds[0])
		fmt.Fprintln(w, "Pass 2:")
		fmt.Fprintln(w, "  "+cmds[1])
	}
	return nil
}
