package api

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/debezel/internal/events"
	"github.com/smazurov/debezel/internal/jobs"
)

// readEvents collects "event:" and "data:" lines from an SSE response.
func readEvents(resp *http.Response) <-chan string {
	lines := make(chan string, 32)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "data:") || strings.HasPrefix(line, "event:") {
				lines <- line
			}
		}
	}()
	return lines
}

// waitFor returns the first line containing want.
func waitFor(t *testing.T, lines <-chan string, want string) string {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream closed before %q", want)
			}
			if strings.Contains(line, want) {
				return line
			}
		case <-timeout:
			t.Fatalf("timeout waiting for %q", want)
		}
	}
}

// newSSEServer starts a test server over the API mux. It is closed through
// t.Cleanup so that streams opened afterwards are closed before it.
func newSSEServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(env.server.GetMux())
	t.Cleanup(ts.Close)
	return ts
}

// openStream connects to an SSE endpoint. The body is closed on cleanup,
// ahead of the server opened by newSSEServer.
func openStream(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s%s?auth=%s", ts.URL, path, credentials()))
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("Expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}
	return resp
}

func TestSSEConnectionAndEvents(t *testing.T) {
	env := newTestEnv(t)
	ts := newSSEServer(t, env)

	lines := readEvents(openStream(t, ts, "/api/events"))
	waitFor(t, lines, "SSE connection established")

	pct := 42.5
	env.bus.Publish(events.ProgressEvent{JobID: "job-7", Percent: &pct, Message: "Pass 1..."})

	waitFor(t, lines, "event: progress")
	msg := waitFor(t, lines, "job-7")
	if !strings.Contains(msg, `"percent":42.5`) || !strings.Contains(msg, "Pass 1...") {
		t.Errorf("unexpected progress payload: %s", msg)
	}

	env.bus.Publish(events.ProfilesReloadedEvent{Path: "/etc/debezel/walls.toml", Count: 3})
	waitFor(t, lines, "event: profiles-reloaded")
	waitFor(t, lines, `"count":3`)
}

func TestSSEJobStreamEndsOnFinish(t *testing.T) {
	env := newTestEnv(t)
	env.jobs.put(jobs.Job{ID: "job-1", State: jobs.StateRunning})
	ts := newSSEServer(t, env)

	lines := readEvents(openStream(t, ts, "/api/jobs/job-1/events"))
	waitFor(t, lines, "SSE connection established")

	pct := 75.0
	env.bus.Publish(events.ProgressEvent{JobID: "other", Percent: &pct, Message: "Pass 2 (final)..."})
	env.bus.Publish(events.ProgressEvent{JobID: "job-1", Percent: &pct, Message: "Pass 2 (final)..."})
	msg := waitFor(t, lines, "Pass 2 (final)...")
	if !strings.Contains(msg, "job-1") {
		t.Errorf("received another job's event: %s", msg)
	}

	env.bus.Publish(events.JobFinishedEvent{JobID: "job-1", State: "succeeded"})
	waitFor(t, lines, `"state":"succeeded"`)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream did not end after job-finished")
		}
	}
}

func TestSSEJobStreamFinishedJob(t *testing.T) {
	env := newTestEnv(t)
	env.jobs.put(jobs.Job{ID: "done", State: jobs.StateFailed, ErrorKind: "ENCODE_FAILED", Diagnostic: "Invalid argument"})
	ts := newSSEServer(t, env)

	lines := readEvents(openStream(t, ts, "/api/jobs/done/events"))
	msg := waitFor(t, lines, "ENCODE_FAILED")
	if !strings.Contains(msg, "Invalid argument") {
		t.Errorf("missing diagnostic: %s", msg)
	}
}

func TestSSEAuthFailure(t *testing.T) {
	env := newTestEnv(t)
	ts := newSSEServer(t, env)

	resp, err := http.Get(ts.URL + "/api/events")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected status 401, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/events?auth=d3Jvbmc6d3Jvbmc=")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected status 401 for wrong auth, got %d", resp.StatusCode)
	}
}

func TestSSEClientDisconnectReleasesServer(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.GetMux())

	resp, err := http.Get(fmt.Sprintf("%s/api/events?auth=%s", ts.URL, credentials()))
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	waitFor(t, readEvents(resp), "SSE connection established")
	resp.Body.Close()

	closed := make(chan struct{})
	go func() {
		ts.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down after the client disconnected")
	}
}
