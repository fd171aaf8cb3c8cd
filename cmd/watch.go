package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/debezel/internal/config"
	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/events"
	"github.com/smazurov/debezel/internal/history"
	"github.com/smazurov/debezel/internal/jobs"
	"github.com/smazurov/debezel/internal/logging"
	"github.com/smazurov/debezel/internal/watch"
)

// CreateWatchCmd creates the watch command, which encodes every wall
// recording dropped into a directory, one at a time.
func CreateWatchCmd(settings *config.Settings) *cobra.Command {
	var settle time.Duration
	var existing bool
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Encode recordings as they appear in a directory",
		Long: `Watches <dir> for new .mp4, .mov, .mkv and .m4v files and queues each one once it ` +
			`has stopped growing. Outputs are written next to the input or to the configured ` +
			`output directory and are never picked up again.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := watch.Config{
				Dir:       args[0],
				OutputDir: settings.OutputDir,
				Settle:    settle,
				Existing:  existing,
			}
			request := func(path string) (encode.Request, error) {
				return buildRequest(cmd, *settings, path, "")
			}
			os.Exit(runWatch(ctx, *settings, cfg, request, !noHistory))
		},
	}
	cmd.Flags().DurationVar(&settle, "settle", watch.DefaultSettle, "How long a file must stop changing before it is queued")
	cmd.Flags().BoolVar(&existing, "existing", false, "Also queue files already in the directory")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record runs in the history database")
	return cmd
}

func runWatch(ctx context.Context, s config.Settings, cfg watch.Config, request watch.RequestFunc, recordHistory bool) int {
	logger := logging.GetLogger("watch")

	orch := newOrchestrator(s)
	if !orch.EngineAvailable() {
		reportError(os.Stderr, encode.NewError(encode.KindEngineNotFound, "ffmpeg not found; install it or set engine.path", nil))
		return ExitNoEngine
	}

	bus := events.New()
	opts := []jobs.Option{jobs.WithBus(bus)}
	if recordHistory {
		store, err := history.Open(s.HistoryDB)
		if err != nil {
			logger.Warn("History disabled", "path", s.HistoryDB, "error", err)
		} else {
			defer store.Close()
			opts = append(opts, jobs.WithHistory(store))
		}
	}

	manager := jobs.NewManager(orch, opts...)
	defer bus.Subscribe(func(e events.JobFinishedEvent) {
		switch e.State {
		case string(jobs.StateSucceeded):
			fmt.Fprintf(os.Stdout, "done      %s\n", e.Output)
		default:
			fmt.Fprintf(os.Stdout, "%-9s %s %s\n", e.State, e.JobID, e.Error)
		}
	})()
	defer bus.Subscribe(func(e events.JobStartedEvent) {
		fmt.Fprintf(os.Stdout, "encoding  %s\n", e.Input)
	})()

	manager.Start()
	defer manager.Stop()

	if err := watch.New(cfg, manager, request, logger).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFailed
	}
	return ExitOK
}
