package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleHandlers  = make(map[string]*swapHandler)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{} // default level
	isInitialized   bool
	mutex           sync.RWMutex

	// Logs go to stderr so stdout stays free for progress and command output.
	output io.Writer = os.Stderr
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// Initialize sets up the logging system. Loggers handed out earlier keep
// working and pick up the new levels and format.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	globalLevel := levelOrInfo(config.Level)
	globalLevelVar.Set(globalLevel)

	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(module))
		moduleHandlers[module].swap(moduleHandler(module, levelVar))
	}

	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
}

// SetOutput redirects console output for all loggers. Intended for tests and
// for commands that need stderr to themselves.
func SetOutput(w io.Writer) {
	mutex.Lock()
	defer mutex.Unlock()

	output = w
	for module, levelVar := range moduleLevelVars {
		moduleHandlers[module].swap(moduleHandler(module, levelVar))
	}
}

// SetModuleLevel changes a module's level at runtime. Unknown level names are
// ignored and reported as false.
func SetModuleLevel(module, level string) bool {
	parsed := parseLevel(level)
	if parsed == nil {
		return false
	}
	GetLogger(module)

	mutex.Lock()
	defer mutex.Unlock()
	if globalConfig.Modules == nil {
		globalConfig.Modules = make(map[string]string)
	}
	globalConfig.Modules[module] = level
	moduleLevelVars[module].Set(*parsed)
	return true
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	// Double-check in case another goroutine created it
	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(moduleLevel(module))

	h := &swapHandler{}
	h.swap(moduleHandler(module, levelVar))

	logger := slog.New(h)
	moduleLoggers[module] = logger
	moduleHandlers[module] = h
	moduleLevelVars[module] = levelVar
	return logger
}

// moduleLevel resolves a module's level from the current config. Caller holds mutex.
func moduleLevel(module string) slog.Level {
	if !isInitialized {
		return slog.LevelInfo
	}
	if levelStr, exists := globalConfig.Modules[module]; exists {
		if parsed := parseLevel(levelStr); parsed != nil {
			return *parsed
		}
	}
	return levelOrInfo(globalConfig.Level)
}

// moduleHandler builds the full handler chain for a module. Caller holds mutex.
func moduleHandler(module string, level slog.Leveler) slog.Handler {
	format := "text"
	if isInitialized {
		format = globalConfig.Format
	}
	return createHandler(format, level).WithAttrs([]slog.Attr{slog.String("module", module)})
}

// createHandler creates a slog handler with the specified format and level.
// Logs to the console output and to the journal when available.
// Caller holds mutex.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var consoleHandler slog.Handler
	if format == "json" {
		consoleHandler = slog.NewJSONHandler(output, opts)
	} else {
		consoleHandler = slog.NewTextHandler(output, opts)
	}

	var handlers []slog.Handler
	if isOutputAvailable(output) {
		handlers = append(handlers, consoleHandler)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}

	switch len(handlers) {
	case 0:
		return consoleHandler // Fallback
	case 1:
		return handlers[0]
	default:
		return NewMultiHandler(handlers...)
	}
}

// isOutputAvailable reports whether w is worth writing to. Files are
// available if they are a terminal, pipe, socket, or regular file (not
// /dev/null which is a device); any other writer is assumed available.
func isOutputAvailable(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

func levelOrInfo(level string) slog.Level {
	if parsed := parseLevel(level); parsed != nil {
		return *parsed
	}
	return slog.LevelInfo
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}

// swapHandler lets a cached module logger change its handler chain when
// Initialize or SetOutput runs.
type swapHandler struct {
	inner atomic.Pointer[slog.Handler]
}

func (s *swapHandler) swap(h slog.Handler) {
	s.inner.Store(&h)
}

func (s *swapHandler) current() slog.Handler {
	return *s.inner.Load()
}

func (s *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.current().Enabled(ctx, level)
}

func (s *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.current().Handle(ctx, r)
}

func (s *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return s.current().WithAttrs(attrs)
}

func (s *swapHandler) WithGroup(name string) slog.Handler {
	return s.current().WithGroup(name)
}
