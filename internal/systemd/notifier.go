// Package systemd reports service readiness and job status to the service
// manager over the sd_notify socket. Outside systemd every call is a no-op.
package systemd

import (
	"fmt"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/debezel/internal/events"
	"github.com/smazurov/debezel/internal/logging"
)

// NotifyFunc sends one sd_notify state string. It matches daemon.SdNotify.
type NotifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Notifier mirrors the job queue into the unit's STATUS line.
type Notifier struct {
	notify NotifyFunc
	logger logging.Logger

	mu        sync.Mutex
	queued    int
	running   string
	succeeded int
	failed    int
	unsubs    []func()
}

// NewNotifier creates a notifier. A nil notify uses daemon.SdNotify.
func NewNotifier(notify NotifyFunc, logger logging.Logger) *Notifier {
	if notify == nil {
		notify = daemon.SdNotify
	}
	if logger == nil {
		logger = logging.GetLogger("systemd")
	}
	return &Notifier{notify: notify, logger: logger}
}

// Ready signals READY=1 and starts following job events on bus.
func (n *Notifier) Ready(bus *events.Bus) {
	if bus != nil {
		n.mu.Lock()
		n.unsubs = append(n.unsubs,
			bus.Subscribe(n.onQueued),
			bus.Subscribe(n.onStarted),
			bus.Subscribe(n.onFinished),
		)
		n.mu.Unlock()
	}
	n.send(daemon.SdNotifyReady + "\nSTATUS=" + n.status())
}

// Stopping signals STOPPING=1 and detaches from the bus.
func (n *Notifier) Stopping() {
	n.mu.Lock()
	unsubs := n.unsubs
	n.unsubs = nil
	n.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
	n.send(daemon.SdNotifyStopping)
}

// Status returns the current STATUS text.
func (n *Notifier) Status() string {
	return n.status()
}

func (n *Notifier) onQueued(events.JobQueuedEvent) {
	n.mu.Lock()
	n.queued++
	n.mu.Unlock()
	n.send("STATUS=" + n.status())
}

func (n *Notifier) onStarted(e events.JobStartedEvent) {
	n.mu.Lock()
	if n.queued > 0 {
		n.queued--
	}
	n.running = e.Input
	n.mu.Unlock()
	n.send("STATUS=" + n.status())
}

func (n *Notifier) onFinished(e events.JobFinishedEvent) {
	n.mu.Lock()
	// A job canceled while queued never started.
	if n.running == "" && n.queued > 0 {
		n.queued--
	}
	n.running = ""
	if e.State == "succeeded" {
		n.succeeded++
	} else {
		n.failed++
	}
	n.mu.Unlock()
	n.send("STATUS=" + n.status())
}

func (n *Notifier) status() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running != "" {
		return fmt.Sprintf("Encoding %s, %d queued, %d done, %d failed", n.running, n.queued, n.succeeded, n.failed)
	}
	return fmt.Sprintf("Idle, %d queued, %d done, %d failed", n.queued, n.succeeded, n.failed)
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "error", err)
		return
	}
	if sent {
		n.logger.Debug("sd_notify", "state", state)
	}
}
