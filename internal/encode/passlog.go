package encode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// ErrPassLogBusy is returned when another run holds the same pass-log prefix.
var ErrPassLogBusy = errors.New("pass log in use by another run")

const lockSuffix = ".lock"

// PassLog owns the two-pass statistics files for one run. It is held from
// before pass 1 until Release, which always removes every artifact.
type PassLog struct {
	prefix string
	lock   *flock.Flock
}

// AcquirePassLog takes an exclusive lock on prefix.
func AcquirePassLog(prefix string) (*PassLog, error) {
	lock := flock.New(prefix + lockSuffix)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock pass log %s: %w", prefix, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrPassLogBusy, prefix)
	}
	return &PassLog{prefix: prefix, lock: lock}, nil
}

// Prefix is the value passed to -passlogfile.
func (p *PassLog) Prefix() string {
	return p.prefix
}

// Release deletes all pass-log artifacts and drops the lock. It returns the
// removed paths.
func (p *PassLog) Release() ([]string, error) {
	removed, cleanErr := CleanupPassLogs(p.prefix)
	unlockErr := p.lock.Unlock()
	if err := os.Remove(p.lock.Path()); err != nil && !errors.Is(err, os.ErrNotExist) && unlockErr == nil {
		unlockErr = err
	}
	return removed, errors.Join(cleanErr, unlockErr)
}

// CleanupPassLogs removes the statistics files ffmpeg writes for prefix:
// prefix-N.log and its .log.mbtree / .log.temp companions. Other files that
// happen to share the prefix are left alone.
func CleanupPassLogs(prefix string) ([]string, error) {
	matches, err := filepath.Glob(globEscape(prefix) + "*.log*")
	if err != nil {
		return nil, err
	}

	var (
		removed []string
		errs    []error
	)
	for _, m := range matches {
		if m == prefix+lockSuffix {
			continue
		}
		info, err := os.Lstat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, m)
	}
	return removed, errors.Join(errs...)
}

func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			if r == '\\' && filepath.Separator == '\\' {
				b.WriteRune(r)
				continue
			}
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
