package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Session is the serialized authenticated-session state for one platform
// account, reusable across process restarts without re-entering credentials.
type Session struct {
	Username  string    `json:"username"`
	SessionID string    `json:"session_id"`
	CSRFToken string    `json:"csrf_token"`
	UserID    string    `json:"user_id,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Valid reports whether the session carries the cookie values a request needs
func (s *Session) Valid() bool {
	return s != nil && s.Username != "" && s.SessionID != ""
}

// SessionStore persists session blobs keyed by username
type SessionStore interface {
	// Save stores the session for its username
	Save(session *Session) error

	// Load retrieves the session for a username
	Load(username string) (*Session, error)

	// List returns all stored sessions
	List() ([]*Session, error)

	// Delete removes the session for a username
	Delete(username string) error

	// Exists reports whether a session is stored for a username
	Exists(username string) bool
}

// Errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session")
)

// Manager routes session storage through a chain of backends, preferring
// the system keychain and falling back to an encrypted file.
type Manager struct {
	stores []SessionStore
}

// NewManager creates a session manager with the available storage backends
func NewManager() (*Manager, error) {
	var stores []SessionStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over an explicit backend chain
func NewManagerWithStores(stores ...SessionStore) *Manager {
	return &Manager{stores: stores}
}

// Save stores the session in the first backend that accepts it
func (m *Manager) Save(session *Session) error {
	if !session.Valid() {
		return ErrInvalidSession
	}

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	var lastErr error
	for _, store := range m.stores {
		if err := store.Save(session); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to save session: %w", lastErr)
	}
	return errors.New("no available session stores")
}

// Load retrieves the session from the first backend that has it
func (m *Manager) Load(username string) (*Session, error) {
	for _, store := range m.stores {
		if session, err := store.Load(username); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, ErrSessionNotFound
}

// List merges sessions across backends, keeping the newest per username
func (m *Manager) List() ([]*Session, error) {
	byUser := make(map[string]*Session)

	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, session := range sessions {
			if existing, ok := byUser[session.Username]; !ok || session.UpdatedAt.After(existing.UpdatedAt) {
				byUser[session.Username] = session
			}
		}
	}

	var result []*Session
	for _, session := range byUser {
		result = append(result, session)
	}
	return result, nil
}

// Delete removes the session from every backend that holds it
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	return ErrSessionNotFound
}

// Exists reports whether any backend holds a session for the username
func (m *Manager) Exists(username string) bool {
	for _, store := range m.stores {
		if store.Exists(username) {
			return true
		}
	}
	return false
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "socialingest")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "socialingest")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "socialingest")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "socialingest")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize returns a copy of the session with cookie values masked for logs
func Sanitize(session *Session) *Session {
	if session == nil {
		return nil
	}
	return &Session{
		Username:  session.Username,
		SessionID: maskString(session.SessionID),
		CSRFToken: maskString(session.CSRFToken),
		UserID:    session.UserID,
		UserAgent: session.UserAgent,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
}

// maskString masks all but the first and last 4 characters
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
