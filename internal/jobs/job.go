// Package jobs queues encode requests and runs them one at a time.
package jobs

import (
	"time"

	"github.com/smazurov/debezel/internal/encode"
)

// State is a job's lifecycle position.
type State string

// Job states. A job moves queued -> running -> one of the terminal states,
// or straight from queued to canceled.
const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCanceled
}

// Job is a snapshot of one queued or finished run.
type Job struct {
	ID         string         `json:"id" doc:"Job identifier"`
	Request    encode.Request `json:"request" doc:"Run parameters"`
	Output     string         `json:"output" doc:"Resolved output path"`
	State      State          `json:"state" enum:"queued,running,succeeded,failed,canceled" doc:"Lifecycle state"`
	Percent    *float64       `json:"percent,omitempty" doc:"Last reported progress, absent when unknown"`
	Message    string         `json:"message,omitempty" doc:"Last progress message"`
	ErrorKind  string         `json:"error_kind,omitempty" doc:"Failure kind"`
	Error      string         `json:"error,omitempty" doc:"Failure summary"`
	Diagnostic string         `json:"diagnostic,omitempty" doc:"Encoder error output, verbatim"`
	Result     *encode.Result `json:"result,omitempty" doc:"Run details on success"`
	CreatedAt  time.Time      `json:"created_at" doc:"Submission time"`
	StartedAt  *time.Time     `json:"started_at,omitempty" doc:"Worker pickup time"`
	FinishedAt *time.Time     `json:"finished_at,omitempty" doc:"Completion time"`
}

// entry is the manager's mutable record behind a Job snapshot.
type entry struct {
	job    Job
	cancel func()
}

func (e *entry) snapshot() Job {
	j := e.job
	if j.Percent != nil {
		p := *j.Percent
		j.Percent = &p
	}
	return j
}
