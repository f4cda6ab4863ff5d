package browser

import (
	"context"
	"strings"
)

// AdminURL resolves a path against the site's admin prefix. Absolute URLs are
// returned unchanged; a path already carrying the admin prefix is not
// prefixed twice.
func (s *Session) AdminURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	admin := s.cfg.Site.AdminPath
	p := strings.TrimLeft(strings.TrimSpace(path), "/")
	if p == admin || strings.HasPrefix(p, admin+"/") {
		p = strings.TrimPrefix(strings.TrimPrefix(p, admin), "/")
	}
	return s.cfg.Site.BaseURL + "/" + admin + "/" + p
}

// NavigateTo moves the page to an admin screen and returns once it has
// settled: one of target.Markers is present, or the network went idle when no
// markers are given. It logs in first when needed, and re-authenticates once
// if the site bounces the session back to the login page.
func (s *Session) NavigateTo(ctx context.Context, target NavigationTarget) error {
	if err := s.Login(ctx); err != nil {
		return err
	}

	err := s.navigate(ctx, target)
	if err != errLoginRedirect {
		return err
	}

	s.logger.Warnf("redirected to login while opening %s; re-authenticating", target.Path)
	s.setAuthenticated(false)
	if err := s.Login(ctx); err != nil {
		return err
	}

	err = s.navigate(ctx, target)
	if err == errLoginRedirect {
		s.setAuthenticated(false)
		return newError(KindAuthFailure, "navigate", nil, "session expired again after re-authentication while opening %s", target.Path)
	}
	return err
}

// errLoginRedirect signals an unexpected bounce to the login surface.
var errLoginRedirect = &Error{Kind: KindAuthFailure, Message: "redirected to login"}

func (s *Session) navigate(ctx context.Context, target NavigationTarget) error {
	page, err := s.openPage("navigate")
	if err != nil {
		return err
	}
	s.UpdateLastUsed()
	s.setState(StateNavigating)
	defer func() {
		if s.Authenticated() {
			s.setState(StateAuthenticated)
		}
	}()

	timeout := target.Timeout
	if timeout <= 0 {
		timeout = s.cfg.Timeouts.Navigation
	}
	url := s.AdminURL(target.Path)
	s.logger.Infof("navigating to %s", url)

	status, err := page.Goto(url, ms(timeout))
	if err != nil {
		if IsTimeout(err) {
			return newError(KindNavigationTimeout, "navigate", err, "%s did not load within %s", url, timeout)
		}
		return newError(KindInteraction, "navigate", err, "could not open %s", url)
	}

	if s.matchers.onLoginPage(page.URL()) && !s.matchers.onLoginPage(url) {
		return errLoginRedirect
	}

	// An error page never becomes the requested screen
	if status >= 400 {
		return newError(KindNavigationTimeout, "navigate", nil, "%s answered HTTP %d", url, status)
	}

	if len(target.Markers) > 0 {
		if _, err := WaitForAny(ctx, page, target.Markers, DefaultWaitPolicy(timeout)); err != nil {
			if s.matchers.onLoginPage(page.URL()) {
				return errLoginRedirect
			}
			return waitError(KindNavigationTimeout, "navigate", err, "%s never showed [%s]", url, strings.Join(target.Markers, ", "))
		}
		return nil
	}

	if err := page.WaitForNetworkIdle(ms(timeout)); err != nil {
		return newError(KindNavigationTimeout, "navigate", err, "%s did not settle within %s", url, timeout)
	}
	return nil
}
