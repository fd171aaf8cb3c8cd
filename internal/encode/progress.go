package encode

import (
	"sync"
)

// Progress is one notification to the caller. Percent is nil when only a
// phase label is known. Values are never mutated after construction.
type Progress struct {
	Percent *float64 `json:"percent,omitempty"`
	Message string   `json:"message"`
}

// At creates a progress value with a percentage.
func At(percent float64, message string) Progress {
	return Progress{Percent: &percent, Message: message}
}

// Label creates a progress value without a percentage.
func Label(message string) Progress {
	return Progress{Message: message}
}

// HasPercent reports whether p carries a percentage.
func (p Progress) HasPercent() bool {
	return p.Percent != nil
}

// Value returns the percentage, or -1 when unknown.
func (p Progress) Value() float64 {
	if p.Percent == nil {
		return -1
	}
	return *p.Percent
}

// Notifier receives progress. All calls happen before Run returns.
type Notifier func(Progress)

func (n Notifier) notify(p Progress) {
	if n != nil {
		n(p)
	}
}

// monotonic drops percentages below the highest one already forwarded.
// Label-only events always pass.
type monotonic struct {
	next Notifier
	last float64
}

func (m *monotonic) notify(p Progress) {
	if p.Percent != nil {
		if *p.Percent < m.last {
			return
		}
		m.last = *p.Percent
	}
	m.next.notify(p)
}

// Dedup wraps n so that an event identical to the previous one (same
// message and same percent, or same message with no percent) is dropped.
// The orchestrator itself never deduplicates.
func Dedup(n Notifier) Notifier {
	var (
		mu      sync.Mutex
		seen    bool
		prevMsg string
		prevPct float64
	)
	return func(p Progress) {
		mu.Lock()
		dup := seen && p.Message == prevMsg && p.Value() == prevPct
		seen, prevMsg, prevPct = true, p.Message, p.Value()
		mu.Unlock()
		if !dup {
			n.notify(p)
		}
	}
}

// AsyncNotifier delivers progress to a Notifier on its own goroutine, in
// order. Close drains pending events, so everything sent before Close is
// delivered before Close returns.
type AsyncNotifier struct {
	ch     chan Progress
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// Async starts an AsyncNotifier feeding n. buffer is the channel depth.
func Async(n Notifier, buffer int) *AsyncNotifier {
	a := &AsyncNotifier{
		ch:   make(chan Progress, max(buffer, 0)),
		done: make(chan struct{}),
	}
	go func() {
		defer close(a.done)
		for p := range a.ch {
			n.notify(p)
		}
	}()
	return a
}

// Notify enqueues p. It blocks while the buffer is full and is a no-op after
// Close.
func (a *AsyncNotifier) Notify(p Progress) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.ch <- p
}

// Notifier returns Notify as a Notifier.
func (a *AsyncNotifier) Notifier() Notifier {
	return a.Notify
}

// Close stops accepting events and waits until all queued ones are
// delivered.
func (a *AsyncNotifier) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	<-a.done
}
