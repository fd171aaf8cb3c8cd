package events

// Event type constants for kelindar/event.
const (
	TypeJobQueued uint32 = iota + 1
	TypeJobStarted
	TypeProgress
	TypeJobFinished
	TypeProfilesReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// JobEvent is implemented by events that belong to a job.
type JobEvent interface {
	Event
	GetJobID() string
}

// JobQueuedEvent is published when a run is accepted.
type JobQueuedEvent struct {
	JobID     string `json:"job_id" example:"7f9c2ba4-e88f-4a3e-9c1d-2b8f2d1c0e11" doc:"Job identifier"`
	Input     string `json:"input" example:"/videos/wall.mp4" doc:"Source video"`
	Output    string `json:"output" example:"/videos/wall_bezel_removed.mp4" doc:"Destination file"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobQueuedEvent.
func (e JobQueuedEvent) Type() uint32 { return TypeJobQueued }

// GetJobID returns the job identifier.
func (e JobQueuedEvent) GetJobID() string { return e.JobID }

// JobStartedEvent is published when the worker picks a job up.
type JobStartedEvent struct {
	JobID     string `json:"job_id" doc:"Job identifier"`
	Input     string `json:"input" doc:"Source video"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobStartedEvent.
func (e JobStartedEvent) Type() uint32 { return TypeJobStarted }

// GetJobID returns the job identifier.
func (e JobStartedEvent) GetJobID() string { return e.JobID }

// ProgressEvent carries one progress notification of a running job.
type ProgressEvent struct {
	JobID     string   `json:"job_id" doc:"Job identifier"`
	Percent   *float64 `json:"percent,omitempty" example:"42.5" doc:"Overall progress 0-100, absent when unknown"`
	Message   string   `json:"message" example:"Pass 1..." doc:"Phase label"`
	Timestamp string   `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProgressEvent.
func (e ProgressEvent) Type() uint32 { return TypeProgress }

// GetJobID returns the job identifier.
func (e ProgressEvent) GetJobID() string { return e.JobID }

// JobFinishedEvent is published once per job with its terminal state.
type JobFinishedEvent struct {
	JobID      string `json:"job_id" doc:"Job identifier"`
	State      string `json:"state" example:"succeeded" doc:"Terminal state: succeeded, failed, canceled"`
	Output     string `json:"output,omitempty" doc:"Written file on success"`
	ErrorKind  string `json:"error_kind,omitempty" example:"ENCODE_FAILED" doc:"Failure kind"`
	Error      string `json:"error,omitempty" doc:"Failure summary"`
	Diagnostic string `json:"diagnostic,omitempty" doc:"Encoder error output, verbatim"`
	Timestamp  string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobFinishedEvent.
func (e JobFinishedEvent) Type() uint32 { return TypeJobFinished }

// GetJobID returns the job identifier.
func (e JobFinishedEvent) GetJobID() string { return e.JobID }

// ProfilesReloadedEvent is published after the wall profile file changed.
type ProfilesReloadedEvent struct {
	Path      string `json:"path" doc:"Profile file"`
	Count     int    `json:"count" doc:"Number of profiles loaded"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProfilesReloadedEvent.
func (e ProfilesReloadedEvent) Type() uint32 { return TypeProfilesReloaded }
