package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore implements SessionStore as one plain JSON file per username
// inside a directory. It backs explicit session-file configuration where
// the operator wants the blob inspectable and portable.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates a directory-backed session store
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(username string) string {
	return filepath.Join(f.dir, "session-"+username+".json")
}

// Save writes the session blob for its username
func (f *FileStore) Save(session *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if session == nil || session.Username == "" {
		return ErrInvalidSession
	}
	if strings.ContainsAny(session.Username, "/\\") {
		return ErrInvalidSession
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	target := f.path(session.Username)
	temp := target + ".tmp"
	if err := os.WriteFile(temp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Rename(temp, target)
}

// Load reads the session blob for a username
func (f *FileStore) Load(username string) (*Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if username == "" {
		return nil, ErrInvalidSession
	}
	return LoadSessionFile(f.path(username))
}

// List returns every session file in the directory
func (f *FileStore) List() ([]*Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	var sessions []*Session
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "session-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		session, err := LoadSessionFile(filepath.Join(f.dir, name))
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Delete removes the session file for a username
func (f *FileStore) Delete(username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if username == "" {
		return ErrInvalidSession
	}
	if err := os.Remove(f.path(username)); err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// Exists reports whether a session file is present for a username
func (f *FileStore) Exists(username string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, err := os.Stat(f.path(username))
	return err == nil
}

// LoadSessionFile reads a session blob from an explicit path
func LoadSessionFile(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if !session.Valid() {
		return nil, ErrInvalidSession
	}
	return &session, nil
}

// SaveSessionFile writes a session blob to an explicit path
func SaveSessionFile(path string, session *Session) error {
	if !session.Valid() {
		return ErrInvalidSession
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	temp := path + ".tmp"
	if err := os.WriteFile(temp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Rename(temp, path)
}
