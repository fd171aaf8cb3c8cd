package cmd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/debezel/internal/config"
	"github.com/smazurov/debezel/internal/ffmpeg"
)

// CreateCheckCmd creates the check command, which reports whether an
// encode can run on this machine.
func CreateCheckCmd(settings *config.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that ffmpeg and ffprobe can be found",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			os.Exit(runCheck(cmd.Context(), ffmpeg.DefaultLocator(settings.EnginePath), os.Stdout))
		},
	}
}

func runCheck(ctx context.Context, locator ffmpeg.Locator, w io.Writer) int {
	engine, ok := locator()
	if !ok {
		fmt.Fprintln(w, renderPairs([][2]string{
			{"ffmpeg", "not found"},
		}))
		fmt.Fprintln(w, "Install ffmpeg or set engine.path in the config file.")
		return ExitNoEngine
	}

	probe := ffmpeg.ProbePath(engine)
	probeStatus := probe
	if _, err := exec.LookPath(probe); err != nil {
		probeStatus = "not found (layout detection and progress will be limited)"
	}

	fmt.Fprintln(w, renderPairs([][2]string{
		{"ffmpeg", engine},
		{"Version", engineVersion(ctx, engine)},
		{"ffprobe", probeStatus},
	}))
	return ExitOK
}

// engineVersion returns the first line of `ffmpeg -version`.
func engineVersion(ctx context.Context, engine string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, engine, "-hide_banner", "-version").Output()
	if err != nil {
		return "unknown"
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		return scanner.Text()
	}
	return "unknown"
}
