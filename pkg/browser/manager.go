package browser

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/entrhq/wpdriver/pkg/logging"
)

// SessionManager creates sessions against one site and keeps track of the
// ones still open so they can be reaped or shut down together.
type SessionManager struct {
	mu          sync.RWMutex
	driver      Driver
	cfg         SessionConfig
	logger      *logging.Logger
	sessions    map[string]*Session
	maxSessions int
	idleTimeout time.Duration
}

// NewSessionManager creates a new session manager.
func NewSessionManager(driver Driver, cfg SessionConfig, logger *logging.Logger) *SessionManager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SessionManager{
		driver:      driver,
		cfg:         cfg,
		logger:      logger,
		sessions:    make(map[string]*Session),
		maxSessions: DefaultMaxSessions,
		idleTimeout: time.Duration(DefaultIdleTimeout) * time.Second,
	}
}

// NewSession registers a new closed session.
func (m *SessionManager) NewSession() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", m.maxSessions)
	}

	session, err := NewSession(m.driver, m.cfg, m.logger)
	if err != nil {
		return nil, err
	}
	m.sessions[session.ID] = session
	return session, nil
}

// WithSession runs fn with a fresh session and closes it afterwards,
// whether fn returns, fails or panics. A close error is returned only when
// fn itself succeeded.
func (m *SessionManager) WithSession(ctx context.Context, fn func(context.Context, *Session) error) (err error) {
	session, err := m.NewSession()
	if err != nil {
		return err
	}

	defer func() {
		closeErr := m.CloseSession(session.ID)
		if err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close session: %w", closeErr)
		}
	}()

	return fn(ctx, session)
}

// CloseSession closes and removes a session.
func (m *SessionManager) CloseSession(id string) error {
	m.mu.Lock()
	session, exists := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("session %q not found", id)
	}
	return session.Close()
}

// GetSession retrieves an active session by ID.
func (m *SessionManager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, fmt.Errorf("session %q not found", id)
	}
	return session, nil
}

// ListSessions returns information about all tracked sessions, oldest first.
func (m *SessionManager) ListSessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, session := range m.sessions {
		info := SessionInfo{
			ID:            session.ID,
			State:         session.State(),
			Authenticated: session.Authenticated(),
			CreatedAt:     session.CreatedAt,
		}
		session.mu.Lock()
		info.LastUsedAt = session.LastUsedAt
		if session.page != nil {
			info.CurrentURL = session.page.URL()
		}
		session.mu.Unlock()
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// HasSessions returns true if there are any tracked sessions.
func (m *SessionManager) HasSessions() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions) > 0
}

// CloseAll closes all tracked sessions.
func (m *SessionManager) CloseAll() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, session := range sessions {
		if err := session.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing sessions: %v", errs)
	}
	return nil
}

// CleanupIdleSessions closes sessions that have been idle for longer than the
// timeout and are not in use.
func (m *SessionManager) CleanupIdleSessions() error {
	m.mu.Lock()
	now := time.Now()
	var idle []*Session
	for id, session := range m.sessions {
		session.mu.Lock()
		lastUsed := session.LastUsedAt
		session.mu.Unlock()

		if now.Sub(lastUsed) <= m.idleTimeout {
			continue
		}
		if !session.use.TryLock() {
			continue
		}
		session.use.Unlock()
		idle = append(idle, session)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, session := range idle {
		m.logger.Infof("closing idle session %s", session.ID)
		if err := session.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during cleanup: %v", errs)
	}
	return nil
}

// SetMaxSessions sets the maximum number of concurrent sessions.
func (m *SessionManager) SetMaxSessions(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxSessions = max
}

// SetIdleTimeout sets the idle timeout duration.
func (m *SessionManager) SetIdleTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleTimeout = timeout
}

// Shutdown closes all sessions and stops the driver when it supports it.
func (m *SessionManager) Shutdown() error {
	closeErr := m.CloseAll()

	if stopper, ok := m.driver.(interface{ Stop() error }); ok {
		if err := stopper.Stop(); err != nil {
			return err
		}
	}
	return closeErr
}

// SessionInfo contains metadata about a browser session.
type SessionInfo struct {
	ID            string    `json:"id"`
	State         State     `json:"-"`
	Authenticated bool      `json:"authenticated"`
	CurrentURL    string    `json:"current_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastUsedAt    time.Time `json:"last_used_at"`
}
