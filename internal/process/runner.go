package process

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/debezel/internal/logging"
)

// Runner runs an argv to completion.
type Runner interface {
	Run(ctx context.Context, argv []string, handler OutputHandler) (Result, error)
}

// ExecRunner is the Runner backed by real subprocesses.
type ExecRunner struct {
	Logger          logging.Logger
	ProcessLogger   logging.Logger // stderr lines; nil uses Logger
	LogParser       LogParser
	GracefulTimeout time.Duration
}

// NewExecRunner creates a runner that logs through logger.
func NewExecRunner(logger logging.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.GetLogger("process")
	}
	return &ExecRunner{Logger: logger}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, argv []string, handler OutputHandler) (Result, error) {
	p := NewProcess(uuid.NewString()[:8], argv, r.Logger, handler)
	if r.ProcessLogger != nil || r.LogParser != nil {
		p.SetLogParser(r.ProcessLogger, r.LogParser)
	}
	p.SetGracefulTimeout(r.GracefulTimeout)
	return p.Run(ctx)
}
