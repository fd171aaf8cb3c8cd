package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/debezel/internal/api/models"
	"github.com/smazurov/debezel/internal/events"
	"github.com/smazurov/debezel/internal/jobs"
)

// eventTypes maps SSE event names to payloads for the OpenAPI document.
var eventTypes = map[string]any{
	"connected":         models.ConnectedEvent{},
	"job-queued":        events.JobQueuedEvent{},
	"job-started":       events.JobStartedEvent{},
	"progress":          events.ProgressEvent{},
	"job-finished":      events.JobFinishedEvent{},
	"profiles-reloaded": events.ProfilesReloadedEvent{},
}

func connected() models.ConnectedEvent {
	return models.ConnectedEvent{
		Message:   "SSE connection established",
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// registerSSERoutes registers the native Huma SSE endpoints.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of job lifecycle, progress and profile reload events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, eventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.JobQueuedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ProgressEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobFinishedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ProfilesReloadedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		if err := send.Data(connected()); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "job-events-stream",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{id}/events",
		Summary:     "Job Event Stream",
		Description: "Progress of one job. The stream ends after the job's job-finished event; an unknown job ends it immediately.",
		Tags:        []string{"events", "jobs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, eventTypes, func(ctx context.Context, input *models.JobIDRequest, send sse.Sender) {
		eventCh := make(chan any, 32)

		// Subscribe before reading the job so a finish in between is not lost.
		unsubscribers := []func(){
			events.SubscribeJob[events.JobStartedEvent](s.eventBus, input.ID, eventCh),
			events.SubscribeJob[events.ProgressEvent](s.eventBus, input.ID, eventCh),
			events.SubscribeJob[events.JobFinishedEvent](s.eventBus, input.ID, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		job, ok := s.options.Jobs.Get(input.ID)
		if !ok {
			return
		}
		if err := send.Data(connected()); err != nil {
			return
		}
		if job.State.Terminal() {
			_ = send.Data(jobs.FinishedEvent(job))
			return
		}
		if job.Percent != nil || job.Message != "" {
			if err := send.Data(events.ProgressEvent{
				JobID:     job.ID,
				Percent:   job.Percent,
				Message:   job.Message,
				Timestamp: time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
				if _, done := event.(events.JobFinishedEvent); done {
					return
				}
			}
		}
	})
}
