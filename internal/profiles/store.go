package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is used when no path is configured.
const DefaultFile = "walls.toml"

// file is the on-disk layout.
type file struct {
	Version  int                `toml:"version"`
	Profiles map[string]Profile `toml:"profiles"`
}

// Store is a TOML-backed profile collection. It is safe for concurrent use.
type Store struct {
	path     string
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewStore creates a store for path. Nothing is read until Load.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultFile
	}
	return &Store{path: path, profiles: make(map[string]Profile)}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// ReadFile parses a profile file. A missing file yields an empty set.
// Entries that fail validation are rejected as a whole.
func ReadFile(path string) (map[string]Profile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse profiles %s: %w", path, err)
	}
	if f.Version > 1 {
		return nil, fmt.Errorf("profiles %s: unsupported version %d", path, f.Version)
	}

	out := make(map[string]Profile, len(f.Profiles))
	for name, p := range f.Profiles {
		p.Name = name
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out[name] = p
	}
	return out, nil
}

// Load replaces the in-memory set with the file's contents.
func (s *Store) Load() error {
	m, err := ReadFile(s.path)
	if err != nil {
		return err
	}
	s.Replace(m)
	return nil
}

// Replace swaps in a new set, e.g. from a file watcher.
func (s *Store) Replace(m map[string]Profile) {
	cp := make(map[string]Profile, len(m))
	for k, v := range m {
		cp[k] = v
	}
	s.mu.Lock()
	s.profiles = cp
	s.mu.Unlock()
}

// Save writes the current set. The file is replaced atomically.
func (s *Store) Save() error {
	s.mu.RLock()
	f := file{Version: 1, Profiles: make(map[string]Profile, len(s.profiles))}
	for k, v := range s.profiles {
		f.Profiles[k] = v
	}
	s.mu.RUnlock()

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}

// Get returns a profile by name. The built-in default is returned for
// DefaultName when the file does not define it.
func (s *Store) Get(name string) (Profile, error) {
	s.mu.RLock()
	p, ok := s.profiles[name]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}
	if name == DefaultName {
		return Default(), nil
	}
	return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Put validates, stores and saves a profile.
func (s *Store) Put(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.profiles[p.Name] = p
	s.mu.Unlock()
	return s.Save()
}

// Delete removes a profile and saves.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	if _, ok := s.profiles[name]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(s.profiles, name)
	s.mu.Unlock()
	return s.Save()
}

// All returns every stored profile sorted by name.
func (s *Store) All() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Profile, 0, len(s.profiles))
	for _, name := range sortedNames(s.profiles) {
		out = append(out, s.profiles[name])
	}
	return out
}

// Len returns the number of stored profiles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
