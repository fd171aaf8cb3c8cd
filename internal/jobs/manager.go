package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/events"
	"github.com/smazurov/debezel/internal/history"
	"github.com/smazurov/debezel/internal/logging"
	"github.com/smazurov/debezel/internal/metrics"
)

// Errors returned by the manager.
var (
	ErrNotFound  = errors.New("job not found")
	ErrFinished  = errors.New("job already finished")
	ErrQueueFull = errors.New("job queue full")
	ErrDuplicate = errors.New("output already queued")
	ErrStopped   = errors.New("job manager stopped")
)

const (
	defaultQueueSize   = 64
	defaultMaxRetained = 200
)

// Encoder runs one encode. *encode.Orchestrator satisfies it.
type Encoder interface {
	Run(ctx context.Context, req encode.Request, notify encode.Notifier) (encode.Result, error)
}

// Recorder persists finished jobs. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (int64, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithBus publishes job events on bus.
func WithBus(bus *events.Bus) Option {
	return func(m *Manager) { m.bus = bus }
}

// WithHistory records finished jobs.
func WithHistory(r Recorder) Option {
	return func(m *Manager) { m.history = r }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithQueueSize bounds the number of waiting jobs.
func WithQueueSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.queueSize = n
		}
	}
}

// WithMaxRetained bounds how many finished jobs stay listed.
func WithMaxRetained(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxRetained = n
		}
	}
}

// Manager owns the job queue and its single worker. Encodes never overlap.
type Manager struct {
	encoder     Encoder
	bus         *events.Bus
	history     Recorder
	logger      logging.Logger
	queueSize   int
	maxRetained int

	mu      sync.Mutex
	jobs    map[string]*entry
	order   []string
	queue   chan string
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a manager. Call Start to begin processing.
func NewManager(encoder Encoder, opts ...Option) *Manager {
	m := &Manager{
		encoder:     encoder,
		logger:      logging.GetLogger("jobs"),
		queueSize:   defaultQueueSize,
		maxRetained: defaultMaxRetained,
		jobs:        make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.queue = make(chan string, m.queueSize)
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Start launches the worker. Calling it twice is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return
	}
	m.started = true
	m.wg.Add(1)
	go m.worker()
	m.logger.Info("Job manager started", "queue_size", m.queueSize)
}

// Stop cancels the running job, marks queued jobs canceled and waits for
// the worker to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	var pending []string
	for _, id := range m.order {
		if m.jobs[id].job.State == StateQueued {
			pending = append(pending, id)
		}
	}
	m.mu.Unlock()
	for _, id := range pending {
		m.finishQueued(id)
	}
	m.logger.Info("Job manager stopped")
}

// Submit validates and enqueues req. An empty output is resolved next to
// the input.
func (m *Manager) Submit(req encode.Request) (Job, error) {
	if strings.TrimSpace(req.Input) == "" {
		return Job{}, encode.NewError(encode.KindInputNotFound, "no input file given", nil)
	}
	if err := req.Bezel.Validate(); err != nil {
		return Job{}, encode.NewError(encode.KindInvalidBezelSpec, "bezel values rejected", err)
	}
	if abs, err := filepath.Abs(req.Input); err == nil {
		req.Input = abs
	}
	output := req.Output
	if strings.TrimSpace(output) == "" {
		output = encode.ResolveOutputPath(req.Input, "")
	} else if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}
	req.Output = output

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return Job{}, ErrStopped
	}
	for _, e := range m.jobs {
		if !e.job.State.Terminal() && e.job.Output == output {
			m.mu.Unlock()
			return Job{}, fmt.Errorf("%w: %s (job %s)", ErrDuplicate, output, e.job.ID)
		}
	}

	e := &entry{job: Job{
		ID:        uuid.NewString(),
		Request:   req,
		Output:    output,
		State:     StateQueued,
		CreatedAt: time.Now(),
	}}
	select {
	case m.queue <- e.job.ID:
	default:
		m.mu.Unlock()
		return Job{}, ErrQueueFull
	}
	m.jobs[e.job.ID] = e
	m.order = append(m.order, e.job.ID)
	m.pruneLocked()
	snap := e.snapshot()
	m.mu.Unlock()

	m.logger.Info("Job queued", "job_id", snap.ID, "input", snap.Request.Input, "output", snap.Output)
	m.publish(events.JobQueuedEvent{
		JobID:     snap.ID,
		Input:     snap.Request.Input,
		Output:    snap.Output,
		Timestamp: timestamp(snap.CreatedAt),
	})
	return snap, nil
}

// Get returns a job snapshot.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.snapshot(), true
}

// List returns all retained jobs in submission order.
func (m *Manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id].snapshot())
	}
	return out
}

// Active returns the running job, if any.
func (m *Manager) Active() (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if e := m.jobs[id]; e.job.State == StateRunning {
			return e.snapshot(), true
		}
	}
	return Job{}, false
}

// Cancel stops a job. A queued job is finished immediately; a running job
// is interrupted and finishes once the encoder returns. The state check and
// the transition happen under one lock, so a job picked up by the worker
// in between is still interrupted.
func (m *Manager) Cancel(id string) (Job, error) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var (
		canceled *Job
		cancel   context.CancelFunc
	)
	switch state := e.job.State; {
	case state.Terminal():
		m.mu.Unlock()
		return Job{}, fmt.Errorf("%w: %s is %s", ErrFinished, id, state)
	case state == StateQueued:
		snap := m.cancelQueuedLocked(e)
		canceled = &snap
	default:
		cancel = e.cancel
	}
	snap := e.snapshot()
	m.mu.Unlock()

	if canceled != nil {
		m.queuedCanceled(*canceled)
		return snap, nil
	}
	if cancel != nil {
		m.logger.Info("Canceling running job", "job_id", id)
		cancel()
	}
	return snap, nil
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case id := <-m.queue:
			m.run(id)
		}
	}
}

func (m *Manager) run(id string) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	if !ok || e.job.State != StateQueued {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(m.ctx)
	defer cancel()
	now := time.Now()
	e.job.State = StateRunning
	e.job.StartedAt = &now
	e.cancel = cancel
	req := e.job.Request
	m.mu.Unlock()

	m.logger.Info("Job started", "job_id", id, "input", req.Input)
	m.publish(events.JobStartedEvent{JobID: id, Input: req.Input, Timestamp: timestamp(now)})

	result, err := m.encoder.Run(ctx, req, func(p encode.Progress) {
		m.progress(id, p)
	})
	m.finish(id, result, err)
}

func (m *Manager) progress(id string, p encode.Progress) {
	m.mu.Lock()
	if e, ok := m.jobs[id]; ok {
		if p.Percent != nil {
			v := *p.Percent
			e.job.Percent = &v
		}
		e.job.Message = p.Message
	}
	m.mu.Unlock()

	if p.HasPercent() {
		metrics.SetProgress(id, p.Value())
	}
	m.publish(events.ProgressEvent{
		JobID:     id,
		Percent:   p.Percent,
		Message:   p.Message,
		Timestamp: timestamp(time.Now()),
	})
}

func (m *Manager) finish(id string, result encode.Result, err error) {
	now := time.Now()

	m.mu.Lock()
	e := m.jobs[id]
	e.cancel = nil
	e.job.FinishedAt = &now
	switch {
	case err == nil:
		e.job.State = StateSucceeded
		e.job.Result = &result
	case encode.KindOf(err) == encode.KindCanceled:
		e.job.State = StateCanceled
		e.job.ErrorKind = string(encode.KindCanceled)
		e.job.Error = err.Error()
	default:
		e.job.State = StateFailed
		e.job.ErrorKind = string(encode.KindOf(err))
		e.job.Error = err.Error()
		e.job.Diagnostic = encode.Diagnostic(err)
	}
	snap := e.snapshot()
	m.mu.Unlock()

	metrics.DeleteProgress(id)
	metrics.RecordRun(string(snap.State))
	if err == nil {
		for i, d := range result.PassDurations {
			metrics.ObservePass(i+1, d.Seconds())
		}
		metrics.SetBitrate(result.Plan.VideoBitrateKbps, result.Plan.Bitrate.Clamped)
	}

	switch snap.State {
	case StateSucceeded:
		m.logger.Info("Job succeeded", "job_id", id, "output", snap.Output)
	case StateCanceled:
		m.logger.Info("Job canceled", "job_id", id)
	default:
		m.logger.Warn("Job failed", "job_id", id, "kind", snap.ErrorKind, "error", snap.Error)
	}

	m.record(snap)
	m.publishFinished(snap)
}

// finishQueued cancels a job that never started.
func (m *Manager) finishQueued(id string) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	if !ok || e.job.State != StateQueued {
		m.mu.Unlock()
		return
	}
	snap := m.cancelQueuedLocked(e)
	m.mu.Unlock()

	m.queuedCanceled(snap)
}

// cancelQueuedLocked moves a queued job to canceled. Caller holds mu.
func (m *Manager) cancelQueuedLocked(e *entry) Job {
	now := time.Now()
	e.job.State = StateCanceled
	e.job.ErrorKind = string(encode.KindCanceled)
	e.job.Error = "canceled before start"
	e.job.FinishedAt = &now
	return e.snapshot()
}

func (m *Manager) queuedCanceled(snap Job) {
	metrics.RecordRun(metrics.OutcomeCanceled)
	m.logger.Info("Queued job canceled", "job_id", snap.ID)
	m.record(snap)
	m.publishFinished(snap)
}

func (m *Manager) record(j Job) {
	if m.history == nil {
		return
	}
	entry := history.Entry{
		JobID:      j.ID,
		Input:      j.Request.Input,
		State:      string(j.State),
		ErrorKind:  j.ErrorKind,
		Error:      j.Error,
		StartedAt:  j.CreatedAt,
		FinishedAt: time.Now(),
	}
	if j.StartedAt != nil {
		entry.StartedAt = *j.StartedAt
	}
	if j.FinishedAt != nil {
		entry.FinishedAt = *j.FinishedAt
	}
	if r := j.Result; r != nil {
		entry.Output = r.OutputPath
		entry.Layout = string(r.Layout)
		entry.VideoKbps = r.Plan.VideoBitrateKbps
		entry.BitrateClamped = r.Plan.Bitrate.Clamped
		entry.DurationSeconds = r.DurationSeconds
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.history.Record(ctx, entry); err != nil {
		m.logger.Warn("Failed to record job history", "job_id", j.ID, "error", err)
	}
}

func (m *Manager) publishFinished(j Job) {
	m.publish(FinishedEvent(j))
}

// FinishedEvent describes a terminal job as the event published when it
// finished.
func FinishedEvent(j Job) events.JobFinishedEvent {
	at := time.Now()
	if j.FinishedAt != nil {
		at = *j.FinishedAt
	}
	ev := events.JobFinishedEvent{
		JobID:      j.ID,
		State:      string(j.State),
		ErrorKind:  j.ErrorKind,
		Error:      j.Error,
		Diagnostic: j.Diagnostic,
		Timestamp:  timestamp(at),
	}
	if j.State == StateSucceeded {
		ev.Output = j.Output
	}
	return ev
}

func (m *Manager) publish(ev events.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}

// pruneLocked drops the oldest finished jobs beyond maxRetained.
func (m *Manager) pruneLocked() {
	excess := len(m.order) - m.maxRetained
	if excess <= 0 {
		return
	}
	kept := m.order[:0]
	for _, id := range m.order {
		if excess > 0 && m.jobs[id].job.State.Terminal() {
			delete(m.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
