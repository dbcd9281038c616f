package ratelimit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrVersionConflict is returned by CompareAndSwap when the stored state has
// changed since it was loaded.
var ErrVersionConflict = errors.New("rate limit state changed since load")

// Store persists rate limit state. Load returns the current state together
// with an opaque version token; CompareAndSwap only writes when the token
// still matches, which keeps concurrent load-decide-persist cycles from
// losing updates.
type Store interface {
	Load() (State, uint64, error)
	CompareAndSwap(version uint64, state State) error
}

// persistedState is the on-disk / on-wire envelope around State
type persistedState struct {
	Version uint64 `json:"version"`
	State   State  `json:"state"`
}

// MemoryStore is an in-process Store used in tests and as a fallback when no
// state path is configured.
type MemoryStore struct {
	mu      sync.Mutex
	version uint64
	state   State
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the current state and version
func (m *MemoryStore) Load() (State, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.version, nil
}

// CompareAndSwap writes the state if the version still matches
func (m *MemoryStore) CompareAndSwap(version uint64, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version != m.version {
		return ErrVersionConflict
	}
	m.version++
	m.state = state
	return nil
}

// FileStore persists rate limit state as a JSON file, written atomically via
// a temp file and rename. The version lives inside the envelope.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at the given path
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// DefaultStatePath returns the per-platform default location for the rate
// limit state file.
func DefaultStatePath(platform string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Sprintf("%s_rate_limit.json", platform)
	}
	return filepath.Join(home, ".local", "share", "socialingest", fmt.Sprintf("%s_rate_limit.json", platform))
}

// Load reads the state file, returning a zero state when none exists yet
func (f *FileStore) Load() (State, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileStore) load() (State, uint64, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, 0, nil
		}
		return State{}, 0, fmt.Errorf("failed to read state file: %w", err)
	}

	var envelope persistedState
	if err := json.Unmarshal(data, &envelope); err != nil {
		return State{}, 0, fmt.Errorf("failed to decode state file: %w", err)
	}
	return envelope.State, envelope.Version, nil
}

// CompareAndSwap writes the state atomically if the stored version still matches
func (f *FileStore) CompareAndSwap(version uint64, state State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, current, err := f.load()
	if err != nil {
		return err
	}
	if current != version {
		return ErrVersionConflict
	}

	envelope := persistedState{Version: version + 1, State: state}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tempPath := f.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write state: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}
