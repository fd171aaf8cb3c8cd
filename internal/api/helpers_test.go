package api

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/events"
	"github.com/smazurov/debezel/internal/geometry"
	"github.com/smazurov/debezel/internal/history"
	"github.com/smazurov/debezel/internal/jobs"
	"github.com/smazurov/debezel/internal/planner"
	"github.com/smazurov/debezel/internal/profiles"
)

const (
	testUser = "test"
	testPass = "test"
)

func credentials() string {
	return base64.StdEncoding.EncodeToString([]byte(testUser + ":" + testPass))
}

func authHeader() string {
	return "Authorization: Basic " + credentials()
}

// fakeJobs records submissions and serves canned jobs.
type fakeJobs struct {
	mu        sync.Mutex
	jobs      map[string]jobs.Job
	submitted []encode.Request
	submitErr error
	cancelErr error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]jobs.Job)}
}

func (f *fakeJobs) Submit(req encode.Request) (jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return jobs.Job{}, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	j := jobs.Job{ID: "job-1", Request: req, Output: req.Output, State: jobs.StateQueued, CreatedAt: time.Now()}
	f.jobs[j.ID] = j
	return j, nil
}

func (f *fakeJobs) Get(id string) (jobs.Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	return j, ok
}

func (f *fakeJobs) List() []jobs.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]jobs.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out
}

func (f *fakeJobs) Cancel(id string) (jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return jobs.Job{}, f.cancelErr
	}
	j, ok := f.jobs[id]
	if !ok {
		return jobs.Job{}, jobs.ErrNotFound
	}
	j.State = jobs.StateCanceled
	f.jobs[id] = j
	return j, nil
}

func (f *fakeJobs) put(j jobs.Job) {
	f.mu.Lock()
	f.jobs[j.ID] = j
	f.mu.Unlock()
}

func (f *fakeJobs) lastSubmitted(t *testing.T) encode.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.submitted) == 0 {
		t.Fatal("nothing submitted")
	}
	return f.submitted[len(f.submitted)-1]
}

// fakePlanner previews without probing.
type fakePlanner struct {
	engine string
}

func (f fakePlanner) Engine() (string, bool) {
	return f.engine, f.engine != ""
}

func (f fakePlanner) Preview(_ context.Context, req encode.Request) (encode.Preview, error) {
	if f.engine == "" {
		return encode.Preview{}, encode.NewError(encode.KindEngineNotFound, "ffmpeg not found", nil)
	}
	if _, err := os.Stat(req.Input); err != nil {
		return encode.Preview{}, encode.NewError(encode.KindInputNotFound, "input file not found: "+req.Input, err)
	}
	output := req.Output
	if output == "" {
		output = encode.ResolveOutputPath(req.Input, "")
	}
	plan := planner.NewPlan(geometry.Build(geometry.LayoutHorizontal, req.Bezel), planner.PlanBitrate(req.TargetSizeMB, nil))
	return encode.Preview{
		Engine: f.engine,
		Input:  req.Input,
		Output: output,
		Layout: geometry.LayoutHorizontal,
		Plan:   plan,
	}, nil
}

type fakeHistory struct {
	entries []history.Entry
	err     error
}

func (f fakeHistory) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

type testEnv struct {
	server  *Server
	jobs    *fakeJobs
	store   *profiles.Store
	bus     *events.Bus
	dir     string
	input   string
	options *Options
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "wall.mp4")
	if err := os.WriteFile(input, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		jobs:  newFakeJobs(),
		store: profiles.NewStore(filepath.Join(dir, "walls.toml")),
		bus:   events.New(),
		dir:   dir,
		input: input,
	}
	env.options = &Options{
		AuthUsername: testUser,
		AuthPassword: testPass,
		Jobs:         env.jobs,
		Planner:      fakePlanner{engine: "/usr/bin/ffmpeg"},
		Profiles:     env.store,
		History:      fakeHistory{},
		EventBus:     env.bus,
	}
	for _, m := range mutate {
		m(env.options)
	}
	env.server = NewServer(env.options)
	return env
}
