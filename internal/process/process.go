package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/debezel/internal/logging"
)

// Stream names passed to OutputHandler.
const (
	SourceStdout = "stdout"
	SourceStderr = "stderr"
)

// maxStderrBytes bounds the captured diagnostic text.
const maxStderrBytes = 1 << 20

// killedExitCode is reported when the process had to be killed (128 + SIGKILL).
const killedExitCode = 137

// OutputHandler receives stdout lines from the subprocess.
type OutputHandler interface {
	HandleLine(source, line string)
}

// LineFunc adapts a plain function to OutputHandler.
type LineFunc func(line string)

// HandleLine implements OutputHandler.
func (f LineFunc) HandleLine(_ string, line string) { f(line) }

// LogParser parses a log line and returns the log level and message.
type LogParser func(line string) (level, msg string)

// Result is the outcome of a finished process.
type Result struct {
	ExitCode int
	// Stderr is the process's stderr, verbatim, up to the first 1 MiB
	// (maxStderrBytes). Anything past the cap is still logged but dropped
	// from Result.
	Stderr string
}

// Process is one run of an external program.
type Process struct {
	id              string
	argv            []string
	cmd             *exec.Cmd
	logger          logging.Logger
	processLogger   logging.Logger // logger for stderr lines (nil = use logger)
	logParser       LogParser      // nil = log everything at info
	outputHandler   OutputHandler
	gracefulTimeout time.Duration // SIGINT to SIGKILL
	killTimeout     time.Duration // SIGKILL to giving up
}

// NewProcess creates a process for argv. argv[0] is the executable.
func NewProcess(id string, argv []string, logger logging.Logger, handler OutputHandler) *Process {
	return &Process{
		id:              id,
		argv:            append([]string(nil), argv...),
		logger:          logger,
		outputHandler:   handler,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
}

// Args returns a copy of the argv.
func (p *Process) Args() []string {
	return append([]string(nil), p.argv...)
}

// SetLogParser sets the logger and parser used for stderr lines.
func (p *Process) SetLogParser(logger logging.Logger, parser LogParser) {
	p.processLogger = logger
	p.logParser = parser
}

// SetGracefulTimeout sets how long to wait after SIGINT before killing.
func (p *Process) SetGracefulTimeout(d time.Duration) {
	if d > 0 {
		p.gracefulTimeout = d
	}
}

// Run starts the process and blocks until it exits. A non-zero exit is not
// an error; inspect Result.ExitCode. When ctx is cancelled the process is
// interrupted and Run returns ctx.Err() alongside whatever was captured.
func (p *Process) Run(ctx context.Context) (Result, error) {
	if len(p.argv) == 0 || p.argv[0] == "" {
		return Result{ExitCode: 1}, errors.New("empty command")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	p.cmd = exec.Command(p.argv[0], p.argv[1:]...)
	setProcAttr(p.cmd)

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: 1}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		return Result{ExitCode: 1}, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		p.logger.Error("Failed to start process", "id", p.id, "error", err)
		return Result{ExitCode: 1}, fmt.Errorf("start %s: %w", p.argv[0], err)
	}
	p.logger.Debug("Process started", "id", p.id, "pid", p.cmd.Process.Pid)

	var (
		wg      sync.WaitGroup
		errBuf  cappedBuffer
		outDone = make(chan struct{})
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.streamStdout(stdout)
	}()
	go func() {
		defer wg.Done()
		p.captureStderr(stderr, &errBuf)
	}()
	go func() {
		wg.Wait()
		close(outDone)
	}()

	// Pipes must be drained before Wait.
	processDone := make(chan error, 1)
	go func() {
		<-outDone
		processDone <- p.cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		p.logger.Info("Context cancelled, interrupting process", "id", p.id)
		p.sendStopSignal()
		code := p.waitForExit(processDone)
		return Result{ExitCode: code, Stderr: errBuf.String()}, ctx.Err()
	case processErr := <-processDone:
		code := exitCodeFromError(processErr)
		if processErr != nil && !isExitError(processErr) {
			p.logger.Error("Process wait failed", "id", p.id, "error", processErr)
		}
		p.logger.Debug("Process exited", "id", p.id, "exit_code", code)
		return Result{ExitCode: code, Stderr: errBuf.String()}, nil
	}
}

func (p *Process) sendStopSignal() {
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	if err := interrupt(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to interrupt process", "id", p.id, "error", err)
	}
}

func (p *Process) waitForExit(processDone <-chan error) int {
	select {
	case err := <-processDone:
		return exitCodeFromError(err)
	case <-time.After(p.gracefulTimeout):
		p.logger.Warn("Graceful shutdown timeout, forcing kill", "id", p.id, "timeout", p.gracefulTimeout)
		if err := kill(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.logger.Error("Failed to kill process", "id", p.id, "error", err)
		}
		select {
		case <-processDone:
		case <-time.After(p.killTimeout):
			p.logger.Error("Process did not exit after kill signal", "id", p.id)
		}
		return killedExitCode
	}
}

// streamStdout hands each stdout line to the output handler. It reads
// until EOF whatever the line length, so a long line never leaves the
// child blocked on a full pipe.
func (p *Process) streamStdout(r io.Reader) {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" && p.outputHandler != nil {
			p.outputHandler.HandleLine(SourceStdout, strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.logger.Warn("Error reading output", "source", SourceStdout, "error", err)
			}
			return
		}
	}
}

func (p *Process) captureStderr(r io.Reader, buf *cappedBuffer) {
	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			buf.WriteString(line)
			p.logLine(logger, strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.logger.Warn("Error reading output", "source", SourceStderr, "error", err)
			}
			return
		}
	}
}

func (p *Process) logLine(logger logging.Logger, line string) {
	if line == "" {
		return
	}
	level, msg := "info", line
	if p.logParser != nil {
		level, msg = p.logParser(line)
	}
	switch level {
	case "panic", "fatal", "error":
		logger.Error(msg, "id", p.id)
	case "warning":
		logger.Warn(msg, "id", p.id)
	case "verbose", "debug", "trace":
		logger.Debug(msg, "id", p.id)
	default:
		logger.Info(msg, "id", p.id)
	}
}

func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		return killedExitCode
	}
	return 1
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// cappedBuffer keeps the first maxStderrBytes written to it.
type cappedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *cappedBuffer) WriteString(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if room := maxStderrBytes - c.buf.Len(); room > 0 {
		if len(s) > room {
			s = s[:room]
		}
		c.buf.WriteString(s)
	}
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}
