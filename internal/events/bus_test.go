package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func pct(v float64) *float64 { return &v }

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ProgressEvent, 1)

	unsub := bus.Subscribe(func(e ProgressEvent) {
		received <- e
	})
	defer unsub()

	event := ProgressEvent{
		JobID:     "job-1",
		Percent:   pct(25),
		Message:   "Pass 1...",
		Timestamp: "2026-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.JobID != event.JobID || *got.Percent != 25 {
		t.Errorf("received %+v, want %+v", got, event)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan JobQueuedEvent, 1)
	received2 := make(chan JobQueuedEvent, 1)

	unsub1 := bus.Subscribe(func(e JobQueuedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e JobQueuedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(JobQueuedEvent{JobID: "job-1", Input: "/videos/wall.mp4"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan JobFinishedEvent, 1)

	unsub := bus.Subscribe(func(e JobFinishedEvent) {
		received <- e
	})

	bus.Publish(JobFinishedEvent{JobID: "a", State: "succeeded"})
	<-received

	unsub()

	bus.Publish(JobFinishedEvent{JobID: "b", State: "failed"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	progressReceived := make(chan bool, 1)
	finishedReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ ProgressEvent) {
		progressReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ JobFinishedEvent) {
		finishedReceived <- true
	})
	defer unsub2()

	bus.Publish(ProgressEvent{JobID: "x", Message: "Pass 1..."})
	<-progressReceived

	select {
	case <-finishedReceived:
		t.Fatal("finished subscriber should NOT have received ProgressEvent")
	case <-time.After(10 * time.Millisecond):
	}

	bus.Publish(JobFinishedEvent{JobID: "x", State: "succeeded"})
	<-finishedReceived

	select {
	case <-progressReceived:
		t.Fatal("progress subscriber should NOT have received JobFinishedEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ ProgressEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range eventsPerGoroutine {
				bus.Publish(ProgressEvent{
					Percent:   pct(float64(i)),
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"JobQueued", JobQueuedEvent{JobID: "1"}},
		{"JobStarted", JobStartedEvent{JobID: "1"}},
		{"Progress", ProgressEvent{JobID: "1"}},
		{"JobFinished", JobFinishedEvent{JobID: "1", State: "failed"}},
		{"ProfilesReloaded", ProfilesReloadedEvent{Count: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case JobQueuedEvent:
				unsub = bus.Subscribe(func(e JobQueuedEvent) { received <- e })
			case JobStartedEvent:
				unsub = bus.Subscribe(func(e JobStartedEvent) { received <- e })
			case ProgressEvent:
				unsub = bus.Subscribe(func(e ProgressEvent) { received <- e })
			case JobFinishedEvent:
				unsub = bus.Subscribe(func(e JobFinishedEvent) { received <- e })
			case ProfilesReloadedEvent:
				unsub = bus.Subscribe(func(e ProfilesReloadedEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestBus_UnknownHandler(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestProgressEventOmitsUnknownPercent(t *testing.T) {
	data, err := json.Marshal(ProgressEvent{JobID: "1", Message: "Pass 2 (final)..."})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if _, ok := result["percent"]; ok {
		t.Errorf("percent present in %s", data)
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[JobFinishedEvent](bus, ch)
	defer unsub()

	bus.Publish(JobFinishedEvent{JobID: "job-9", State: "succeeded"})

	received := <-ch
	finished, ok := received.(JobFinishedEvent)
	if !ok {
		t.Fatalf("Expected JobFinishedEvent, got %T", received)
	}
	if finished.JobID != "job-9" {
		t.Errorf("JobID = %s, want job-9", finished.JobID)
	}
}

func TestSubscribeJobFilters(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeJob[ProgressEvent](bus, "mine", ch)
	defer unsub()

	bus.Publish(ProgressEvent{JobID: "other", Message: "skip"})
	bus.Publish(ProgressEvent{JobID: "mine", Message: "keep"})

	select {
	case got := <-ch:
		if got.(ProgressEvent).Message != "keep" {
			t.Errorf("received %+v, want only job 'mine'", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no event for subscribed job")
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra event %+v", extra)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any) // No buffer

	unsub := SubscribeToChannel[JobQueuedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(JobQueuedEvent{JobID: "x"})
		done <- true
	}()

	<-done
}
