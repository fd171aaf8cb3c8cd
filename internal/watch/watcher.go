// Package watch submits videos dropped into a directory as encode jobs.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/jobs"
	"github.com/smazurov/debezel/internal/logging"
)

// DefaultSettle is how long a file must stay unchanged before it is queued.
const DefaultSettle = 2 * time.Second

// Extensions lists the file extensions picked up, lowercase.
var Extensions = []string{".mp4", ".mov", ".mkv", ".m4v"}

// Submitter accepts encode requests. *jobs.Manager satisfies it.
type Submitter interface {
	Submit(req encode.Request) (jobs.Job, error)
}

// RequestFunc builds the request for a settled file.
type RequestFunc func(path string) (encode.Request, error)

// Config configures a Watcher.
type Config struct {
	Dir       string
	OutputDir string // empty: next to each input
	Settle    time.Duration
	// Existing queues files already present when the watcher starts.
	Existing bool
}

// Watcher turns new files in a directory into jobs.
type Watcher struct {
	cfg     Config
	submit  Submitter
	request RequestFunc
	logger  logging.Logger

	mu      sync.Mutex
	pending map[string]*pendingFile
	seen    map[string]struct{}

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// pendingFile is a file waiting out its settle period. size is the size
// seen when the timer was last armed; -1 when the file could not be read.
type pendingFile struct {
	timer *time.Timer
	size  int64
}

// New creates a watcher. A nil logger uses the "watch" module logger.
func New(cfg Config, submit Submitter, request RequestFunc, logger logging.Logger) *Watcher {
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if logger == nil {
		logger = logging.GetLogger("watch")
	}
	return &Watcher{
		cfg:     cfg,
		submit:  submit,
		request: request,
		logger:  logger,
		pending: make(map[string]*pendingFile),
		seen:    make(map[string]struct{}),
	}
}

// Eligible reports whether path looks like a wall recording to process.
// Hidden files and this tool's own outputs are skipped.
func Eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if !slices.Contains(Extensions, strings.ToLower(filepath.Ext(base))) {
		return false
	}
	return !encode.IsOutputName(path)
}

// Run watches until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.cfg.Dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("watch: not a directory: " + w.cfg.Dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.cfg.Dir); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw
	w.logger.Info("Watching drop folder", "dir", w.cfg.Dir, "settle", w.cfg.Settle)

	if w.cfg.Existing {
		w.queueExisting()
	}

	defer func() {
		fsw.Close()
		w.mu.Lock()
		for path, p := range w.pending {
			p.timer.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.logger.Info("Drop folder watcher stopped", "dir", w.cfg.Dir)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Drop folder watcher error", "error", err)
		}
	}
}

func (w *Watcher) queueExisting() {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.logger.Warn("Failed to list drop folder", "dir", w.cfg.Dir, "error", err)
		return
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			w.schedule(filepath.Join(w.cfg.Dir, e.Name()))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.schedule(ev.Name)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.mu.Lock()
		if p, ok := w.pending[ev.Name]; ok {
			p.timer.Stop()
			delete(w.pending, ev.Name)
		}
		delete(w.seen, ev.Name)
		w.mu.Unlock()
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	if !Eligible(path) {
		return
	}
	size := fileSize(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, done := w.seen[path]; done {
		return
	}
	if p, ok := w.pending[path]; ok {
		p.size = size
		p.timer.Reset(w.cfg.Settle)
		return
	}
	w.pending[path] = &pendingFile{
		size:  size,
		timer: time.AfterFunc(w.cfg.Settle, func() { w.settled(path) }),
	}
}

// settled runs when path has had no events for a settle period. The file
// is queued only if its size also held still over that period; a writer
// that grows it without raising events (network shares, missed inotify
// events) pushes the check out by another period.
func (w *Watcher) settled(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if !ok {
		w.mu.Unlock()
		return
	}
	size := fileSize(path)
	if size > 0 && size != p.size {
		w.logger.Debug("Dropped file still growing", "path", path, "size", size)
		p.size = size
		p.timer.Reset(w.cfg.Settle)
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.seen[path] = struct{}{}
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		w.forget(path)
		return
	}

	req, err := w.request(path)
	if err != nil {
		w.logger.Warn("Skipping dropped file", "path", path, "error", err)
		return
	}
	req.Input = path
	if w.cfg.OutputDir != "" && req.Output == "" {
		req.Output = encode.ResolveOutputPath(path, w.cfg.OutputDir)
	}

	job, err := w.submit.Submit(req)
	if err != nil {
		w.logger.Warn("Failed to queue dropped file", "path", path, "error", err)
		if errors.Is(err, jobs.ErrQueueFull) {
			w.forget(path)
		}
		return
	}
	w.logger.Info("Queued dropped file", "path", path, "job_id", job.ID)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.seen, path)
	w.mu.Unlock()
}
