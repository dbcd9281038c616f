package auth

import "sync"

// MockStore implements SessionStore for tests
type MockStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	// Error injection
	SaveError   error
	LoadError   error
	ListError   error
	DeleteError error
}

// NewMockStore creates an empty mock session store
func NewMockStore() *MockStore {
	return &MockStore{sessions: make(map[string]*Session)}
}

// Save stores the session in memory
func (m *MockStore) Save(session *Session) error {
	if m.SaveError != nil {
		return m.SaveError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session == nil || session.Username == "" {
		return ErrInvalidSession
	}

	copied := *session
	m.sessions[session.Username] = &copied
	return nil
}

// Load retrieves a session from memory
func (m *MockStore) Load(username string) (*Session, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[username]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := *session
	return &copied, nil
}

// List returns all stored sessions
func (m *MockStore) List() ([]*Session, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var sessions []*Session
	for _, session := range m.sessions {
		copied := *session
		sessions = append(sessions, &copied)
	}
	return sessions, nil
}

// Delete removes a session from memory
func (m *MockStore) Delete(username string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[username]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, username)
	return nil
}

// Exists reports whether a session is stored
func (m *MockStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.sessions[username]
	return ok
}

// Count returns the number of stored sessions
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}
