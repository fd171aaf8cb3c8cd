package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/debezel/cmd"
	"github.com/smazurov/debezel/internal/api"
	"github.com/smazurov/debezel/internal/config"
	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/events"
	"github.com/smazurov/debezel/internal/ffmpeg"
	"github.com/smazurov/debezel/internal/history"
	"github.com/smazurov/debezel/internal/jobs"
	"github.com/smazurov/debezel/internal/logging"
	"github.com/smazurov/debezel/internal/metrics"
	"github.com/smazurov/debezel/internal/profiles"
	"github.com/smazurov/debezel/internal/systemd"
	"github.com/smazurov/debezel/internal/watch"
	"github.com/smazurov/debezel/ui"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port        string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	QueueSize   int    `help:"Maximum queued jobs" default:"64" toml:"server.queue_size" env:"SERVER_QUEUE_SIZE"`
	CORSOrigins string `help:"Comma-separated allowed CORS origins (* for any)" default:"*" toml:"server.cors_origins" env:"SERVER_CORS_ORIGINS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Encode settings
	EnginePath    string `help:"ffmpeg binary (default: bundled copy, then PATH)" toml:"engine.path" env:"ENGINE_PATH"`
	BezelTopPx    int    `help:"Top bezel width in source pixels" default:"16" toml:"bezel.top_px" env:"BEZEL_TOP_PX"`
	BezelBottomPx int    `help:"Bottom bezel width in source pixels" default:"21" toml:"bezel.bottom_px" env:"BEZEL_BOTTOM_PX"`
	TargetSizeMB  string `help:"Target output size in MB (fractions allowed), 0 for the default bitrate" default:"0" toml:"encode.target_size_mb" env:"TARGET_SIZE_MB"`
	OutputDir     string `help:"Output directory (default: next to the input)" toml:"encode.output_dir" env:"OUTPUT_DIR"`
	Profile       string `help:"Wall profile to use" toml:"encode.profile" env:"PROFILE"`

	// Storage settings
	ProfilesFile string `help:"Wall profiles file" default:"walls.toml" toml:"profiles.file" env:"PROFILES_FILE"`
	HistoryDB    string `help:"Run history database, empty to disable" default:"debezel.db" toml:"history.database" env:"HISTORY_DATABASE"`

	// Drop folder settings
	WatchDir    string `help:"Directory whose new recordings the server encodes" toml:"watch.dir" env:"WATCH_DIR"`
	WatchSettle string `help:"How long a dropped file must stop changing" default:"2s" toml:"watch.settle" env:"WATCH_SETTLE"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingEncode string `help:"Encode logging level" default:"info" toml:"logging.encode" env:"LOGGING_ENCODE"`
	LoggingFFmpeg string `help:"ffmpeg output logging level" default:"warn" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingJobs   string `help:"Job queue logging level" default:"info" toml:"logging.jobs" env:"LOGGING_JOBS"`
	LoggingAPI    string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingWatch  string `help:"Drop folder logging level" default:"info" toml:"logging.watch" env:"LOGGING_WATCH"`
}

// settings extracts the values shared with the subcommands.
func (o *Options) settings() (config.Settings, error) {
	size, err := config.ParseSizeMB(o.TargetSizeMB)
	if err != nil {
		return config.Settings{}, err
	}
	return config.Settings{
		Config:        o.Config,
		EnginePath:    o.EnginePath,
		BezelTopPx:    o.BezelTopPx,
		BezelBottomPx: o.BezelBottomPx,
		TargetSizeMB:  size,
		OutputDir:     o.OutputDir,
		Profile:       o.Profile,
		ProfilesFile:  o.ProfilesFile,
		HistoryDB:     o.HistoryDB,
	}, nil
}

func main() {
	settings := &config.Settings{}

	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}
		parsed, settingsErr := opts.settings()
		if settingsErr != nil {
			fmt.Fprintln(os.Stderr, "Error:", settingsErr)
			os.Exit(cmd.ExitUsage)
		}
		*settings = parsed

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"encode": opts.LoggingEncode,
				"probe":  opts.LoggingEncode,
				"ffmpeg": opts.LoggingFFmpeg,
				"jobs":   opts.LoggingJobs,
				"api":    opts.LoggingAPI,
				"http":   opts.LoggingAPI,
				"watch":  opts.LoggingWatch,
			},
		})

		// Everything below is started by the root command's hooks only.
		logger := logging.GetLogger("main")

		eventBus := events.New()
		orchestrator := encode.NewOrchestrator(ffmpeg.DefaultLocator(opts.EnginePath), logging.GetLogger("encode"))

		profileStore := profiles.NewStore(opts.ProfilesFile)
		profileWatcher := config.NewConfigWatcher(opts.ProfilesFile, profiles.ReadFile, logging.GetLogger("config"))
		profileWatcher.OnReload(func(m map[string]profiles.Profile) {
			profileStore.Replace(m)
			logger.Info("Wall profiles reloaded", "path", opts.ProfilesFile, "count", len(m))
			eventBus.Publish(events.ProfilesReloadedEvent{
				Path:      opts.ProfilesFile,
				Count:     len(m),
				Timestamp: time.Now().Format(time.RFC3339),
			})
		})

		var historyStore *history.Store
		jobOpts := []jobs.Option{
			jobs.WithBus(eventBus),
			jobs.WithQueueSize(opts.QueueSize),
		}

		apiOpts := &api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Planner:           orchestrator,
			Profiles:          profileStore,
			EventBus:          eventBus,
			DefaultBezel:      settings.Bezel(),
			DefaultSizeMB:     settings.TargetSizeMB,
			DefaultOutputDir:  opts.OutputDir,
			PrometheusHandler: metrics.Handler(),
			CORSOrigins:       splitList(opts.CORSOrigins),
		}

		notifier := systemd.NewNotifier(nil, logging.GetLogger("systemd"))
		var manager *jobs.Manager
		var server *api.Server
		watchCtx, stopWatch := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if loadErr := profileStore.Load(); loadErr != nil {
				logger.Warn("Failed to load wall profiles", "path", opts.ProfilesFile, "error", loadErr)
			}
			if startErr := profileWatcher.Start(); startErr != nil {
				logger.Warn("Failed to watch wall profiles, hot-reload disabled", "error", startErr)
			}

			if opts.HistoryDB != "" {
				store, openErr := history.Open(opts.HistoryDB)
				if openErr != nil {
					logger.Warn("Run history disabled", "path", opts.HistoryDB, "error", openErr)
				} else {
					historyStore = store
					jobOpts = append(jobOpts, jobs.WithHistory(store))
					apiOpts.History = store
				}
			}

			if path, ok := orchestrator.Engine(); ok {
				logger.Info("Using ffmpeg", "path", path)
			} else {
				logger.Warn("ffmpeg not found; jobs will be rejected until it is installed")
			}

			manager = jobs.NewManager(orchestrator, jobOpts...)
			manager.Start()
			apiOpts.Jobs = manager
			if handler, uiErr := ui.Handler(); uiErr == nil {
				apiOpts.UIHandler = handler
			} else {
				logger.Warn("Dashboard unavailable", "error", uiErr)
			}
			server = api.NewServer(apiOpts)

			if opts.WatchDir != "" {
				settle, parseErr := time.ParseDuration(opts.WatchSettle)
				if parseErr != nil {
					settle = watch.DefaultSettle
				}
				request := func(path string) (encode.Request, error) {
					wall := profiles.Profile{
						TopPx:        opts.BezelTopPx,
						BottomPx:     opts.BezelBottomPx,
						TargetSizeMB: settings.TargetSizeMB,
					}
					if opts.Profile != "" {
						var getErr error
						if wall, getErr = profileStore.Get(opts.Profile); getErr != nil {
							return encode.Request{}, getErr
						}
					}
					return encode.Request{
						Input:        path,
						Output:       outputFor(path, opts.OutputDir),
						Bezel:        wall.Bezel(),
						TargetSizeMB: wall.TargetSize(),
					}, nil
				}
				watcher := watch.New(watch.Config{
					Dir:       opts.WatchDir,
					OutputDir: opts.OutputDir,
					Settle:    settle,
				}, manager, request, logging.GetLogger("watch"))
				go func() {
					if runErr := watcher.Run(watchCtx); runErr != nil {
						logger.Error("Drop folder watcher failed", "dir", opts.WatchDir, "error", runErr)
					}
				}()
			}

			notifier.Ready(eventBus)
			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()
			stopWatch()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if server != nil {
				if stopErr := server.Stop(ctx); stopErr != nil {
					logger.Error("Error stopping HTTP server", "error", stopErr)
				}
			}

			// Stop the encoder after the HTTP server stops accepting jobs
			if manager != nil {
				manager.Stop()
			}
			if stopErr := profileWatcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping profile watcher", "error", stopErr)
			}
			if historyStore != nil {
				if closeErr := historyStore.Close(); closeErr != nil {
					logger.Warn("Error closing history", "error", closeErr)
				}
			}
		})
	})

	root := cli.Root()
	root.Use = "debezel"
	root.Short = "Bezel removal for 4-panel videowall recordings"
	root.Long = "Serves the debezel HTTP API. Use the subcommands to encode from the command line."
	root.AddCommand(
		cmd.CreateRunCmd(settings),
		cmd.CreateProbeCmd(settings),
		cmd.CreateCheckCmd(settings),
		cmd.CreateWatchCmd(settings),
		cmd.CreateProfilesCmd(settings),
		cmd.CreateHistoryCmd(settings),
		cmd.CreateVersionCmd(),
	)

	// Run the CLI
	cli.Run()
}

func outputFor(input, dir string) string {
	if dir == "" {
		return ""
	}
	return encode.ResolveOutputPath(input, dir)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
