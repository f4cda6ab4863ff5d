package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// LoginSurface describes the remote login page.
type LoginSurface struct {
	// Path is the login page relative to the site root
	Path string

	// URLPattern is a glob matched against the page URL to tell whether the
	// browser is (still) on the login surface
	URLPattern string

	Form          string
	UserField     string
	PasswordField string
	Submit        string
	ErrorMarker   string

	// SuccessMarkers are admin-only elements proving a logged-in page
	SuccessMarkers []string
}

// DefaultLoginSurface returns the WordPress login page layout.
func DefaultLoginSurface() LoginSurface {
	return LoginSurface{
		Path:           "wp-login.php",
		URLPattern:     "*wp-login.php*",
		Form:           "#loginform",
		UserField:      "#user_login",
		PasswordField:  "#user_pass",
		Submit:         "#wp-submit",
		ErrorMarker:    "#login_error",
		SuccessMarkers: []string{"#wpadminbar", "#adminmenu"},
	}
}

func (l LoginSurface) withDefaults() LoginSurface {
	d := DefaultLoginSurface()
	if l.Path == "" {
		l.Path = d.Path
	}
	if l.URLPattern == "" {
		l.URLPattern = d.URLPattern
	}
	if l.Form == "" {
		l.Form = d.Form
	}
	if l.UserField == "" {
		l.UserField = d.UserField
	}
	if l.PasswordField == "" {
		l.PasswordField = d.PasswordField
	}
	if l.Submit == "" {
		l.Submit = d.Submit
	}
	if l.ErrorMarker == "" {
		l.ErrorMarker = d.ErrorMarker
	}
	if len(l.SuccessMarkers) == 0 {
		l.SuccessMarkers = d.SuccessMarkers
	}
	return l
}

type loginMatcher struct {
	pattern glob.Glob
}

func newLoginMatcher(l LoginSurface) (*loginMatcher, error) {
	g, err := glob.Compile(l.URLPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid login URL pattern %q: %w", l.URLPattern, err)
	}
	return &loginMatcher{pattern: g}, nil
}

func (m *loginMatcher) onLoginPage(url string) bool {
	return m.pattern.Match(url)
}

// Login ensures the session holds an admin login. It returns immediately when
// already authenticated. A failed attempt leaves the session open and
// unauthenticated.
func (s *Session) Login(ctx context.Context) error {
	if s.Authenticated() {
		return nil
	}

	page, err := s.Launch(ctx)
	if err != nil {
		return err
	}
	s.UpdateLastUsed()
	s.setState(StateAuthenticating)

	if err := s.login(ctx, page); err != nil {
		s.setAuthenticated(false)
		s.logger.Warnf("login failed: %v", err)
		return err
	}

	s.setAuthenticated(true)
	s.logger.Infof("authenticated as %s", s.cfg.Site.Username)
	return nil
}

func (s *Session) login(ctx context.Context, page Page) error {
	surface := s.cfg.Login
	timeout := s.cfg.Timeouts.Auth
	loginURL := s.cfg.Site.BaseURL + "/" + strings.TrimLeft(surface.Path, "/")

	status, err := page.Goto(loginURL, ms(timeout))
	if err != nil {
		if IsTimeout(err) {
			return newError(KindAuthTimeout, "login", err, "login page did not load within %s", timeout)
		}
		return newError(KindAuthFailure, "login", err, "could not open login page")
	}
	if status >= 400 {
		return newError(KindAuthFailure, "login", nil, "login page answered HTTP %d", status)
	}

	// A live admin cookie redirects away from the login page
	if !s.matchers.onLoginPage(page.URL()) {
		s.logger.Debugf("already authenticated, landed on %s", page.URL())
		return nil
	}

	if _, err := WaitForAny(ctx, page, []string{surface.Form}, DefaultWaitPolicy(timeout)); err != nil {
		return waitError(KindAuthTimeout, "login", err, "login form did not appear within %s", timeout)
	}

	action := ms(s.cfg.Timeouts.Action)
	if err := page.Fill(surface.UserField, s.cfg.Site.Username, action); err != nil {
		return actionError("login", surface.UserField, err)
	}
	if err := page.Fill(surface.PasswordField, s.cfg.Site.Password, action); err != nil {
		return actionError("login", surface.PasswordField, err)
	}
	if err := page.Click(surface.Submit, action); err != nil {
		return actionError("login", surface.Submit, err)
	}

	outcomes := append([]string{surface.ErrorMarker}, surface.SuccessMarkers...)
	idx, err := WaitForAny(ctx, page, outcomes, DefaultWaitPolicy(timeout))
	if err != nil {
		return waitError(KindAuthTimeout, "login", err, "no login outcome within %s", timeout)
	}
	if idx == 0 {
		text, textErr := page.TextContent(surface.ErrorMarker, action)
		if textErr != nil {
			text = "login rejected"
		}
		return newError(KindAuthFailure, "login", nil, "%s", strings.TrimSpace(text))
	}
	return nil
}
