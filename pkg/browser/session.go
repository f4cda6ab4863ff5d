package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/wpdriver/pkg/logging"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateClosed State = iota
	StateLaunching
	StateOpen
	StateAuthenticating
	StateAuthenticated
	StateNavigating
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateLaunching:
		return "launching"
	case StateOpen:
		return "open"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateNavigating:
		return "navigating"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionConfig is everything a Session needs besides its driver.
type SessionConfig struct {
	Site     SiteConfig
	Launch   LaunchOptions
	Timeouts Timeouts
	Login    LoginSurface
}

// Session is one exclusive-use browser process and page with its own
// authentication state. Sessions are created by a SessionManager and must be
// ended with Close.
type Session struct {
	// ID is a unique identifier for this session
	ID string

	driver   Driver
	cfg      SessionConfig
	logger   *logging.Logger
	console  *ConsoleLog
	matchers *loginMatcher

	// mu guards lifecycle fields; use serializes operations
	mu            sync.Mutex
	use           sync.Mutex
	process       Process
	page          Page
	authenticated bool
	state         State

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	// LastUsedAt is the timestamp of the last operation on this session
	LastUsedAt time.Time
}

// NewSession creates a closed session. The browser starts on first use.
func NewSession(driver Driver, cfg SessionConfig, logger *logging.Logger) (*Session, error) {
	if driver == nil {
		return nil, fmt.Errorf("driver is required")
	}
	if cfg.Site.BaseURL == "" {
		return nil, fmt.Errorf("site base URL is required")
	}
	if cfg.Site.AdminPath == "" {
		cfg.Site.AdminPath = DefaultAdminPath
	}
	cfg.Site.BaseURL = strings.TrimRight(cfg.Site.BaseURL, "/")
	cfg.Site.AdminPath = strings.Trim(cfg.Site.AdminPath, "/")
	cfg.Timeouts = cfg.Timeouts.withDefaults()
	cfg.Login = cfg.Login.withDefaults()
	if logger == nil {
		logger = logging.Discard()
	}

	matchers, err := newLoginMatcher(cfg.Login)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := time.Now()
	return &Session{
		ID:         id,
		driver:     driver,
		cfg:        cfg,
		logger:     logger.With("session " + id[:8]),
		console:    NewConsoleLog(0),
		matchers:   matchers,
		state:      StateClosed,
		CreatedAt:  now,
		LastUsedAt: now,
	}, nil
}

// UpdateLastUsed updates the LastUsedAt timestamp to the current time.
func (s *Session) UpdateLastUsed() {
	s.mu.Lock()
	s.LastUsedAt = time.Now()
	s.mu.Unlock()
}

// Launch starts the browser if it is not running and returns the page.
// Calling it on an open session returns the existing page.
// Launch failures are returned as KindLaunchFailure and never retried.
func (s *Session) Launch(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		return s.page, nil
	}

	s.state = StateLaunching
	opts := s.cfg.Launch
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	s.logger.Infof("launching browser (headless=%v, slowmo=%.0fms, viewport=%dx%d)",
		opts.Headless, opts.SlowMo, opts.Viewport.Width, opts.Viewport.Height)

	process, err := s.driver.Launch(ctx, opts)
	if err != nil {
		s.state = StateClosed
		s.logger.Errorf("launch failed: %v", err)
		return nil, newError(KindLaunchFailure, "launch", err, "failed to launch browser")
	}

	page := process.Page()
	page.OnConsole(func(entry ConsoleEntry) {
		s.console.Add(entry)
		s.logger.Debugf("console %s: %s", entry.Type, entry.Text)
	})

	s.process = process
	s.page = page
	s.authenticated = false
	s.state = StateOpen
	s.LastUsedAt = time.Now()
	return page, nil
}

// Close tears down the browser process and resets authentication. It is a
// no-op on a closed session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.process == nil {
		return nil
	}

	s.state = StateClosing
	err := s.process.Close()
	if err != nil {
		s.logger.Warnf("browser close reported: %v", err)
	}

	s.process = nil
	s.page = nil
	s.authenticated = false
	s.state = StateClosed
	s.logger.Infof("session closed")
	return err
}

// acquire claims exclusive use of the session for one operation.
func (s *Session) acquire() (func(), error) {
	if !s.use.TryLock() {
		return nil, newError(KindSessionBusy, "acquire", nil, "session %s is in use by another operation", s.ID)
	}
	return s.use.Unlock, nil
}

// Page returns the current page, nil when closed.
func (s *Session) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Authenticated reports whether the session holds an admin login.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Console returns the captured console log.
func (s *Session) Console() *ConsoleLog {
	return s.console
}

// Config returns the session configuration.
func (s *Session) Config() SessionConfig {
	return s.cfg
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) setAuthenticated(v bool) {
	s.mu.Lock()
	s.authenticated = v
	if v {
		s.state = StateAuthenticated
	} else if s.page != nil {
		s.state = StateOpen
	}
	s.mu.Unlock()
}

// openPage returns the live page or a SessionClosed error.
func (s *Session) openPage(op string) (Page, error) {
	page := s.Page()
	if page == nil {
		return nil, newError(KindSessionClosed, op, nil, "session %s is closed", s.ID)
	}
	return page, nil
}
