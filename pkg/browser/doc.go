// Package browser drives a WordPress-style admin UI through a headless browser.
//
// It is used for capabilities the remote site exposes only through its
// interactive admin screens: saving settings, publishing content through
// whichever editor is active, toggling plugins and themes, editing menus.
//
// # Architecture
//
// The package is built around a few cooperating pieces:
//
//  1. Session: one browser process and page with its own login state
//  2. SessionManager: creates sessions and guarantees they are closed
//  3. Navigator and Auth: reach an admin screen, logging in on demand
//  4. EditorStrategy: one implementation per editing surface, resolved once per screen
//  5. FieldEngine: sets form fields and verifies them by reading them back
//  6. Engine: runs a Request end to end and returns an ActionResult
//
// All waiting goes through WaitForAny, which polls a list of selectors with a
// bounded budget and backoff.
//
// # Session Lifecycle
//
// Sessions move through these states:
//
//	Closed → Launching → Open → Authenticating → Authenticated
//	Authenticated → Navigating → Authenticated (repeat)
//	any → Closing → Closed
//
// A failed login returns the session to Open. The manager's WithSession
// closes the session on every exit path, panics included.
//
// # Drivers
//
// The engine talks to the browser through the Driver, Process and Page
// interfaces. PlaywrightDriver is the production implementation; tests use
// an in-memory DOM double.
//
// # Errors
//
// Failures are *Error values with a Kind. Compare with errors.Is against the
// Err* sentinels:
//
//	if errors.Is(err, browser.ErrAuthFailure) { ... }
//
// Field failures do not abort a request. They are collected in BatchResult
// and the ActionResult reports a partial success.
//
// # Example Usage
//
//	driver := browser.NewPlaywrightDriver(logger)
//	manager := browser.NewSessionManager(driver, browser.SessionConfig{
//	    Site: browser.SiteConfig{BaseURL: "https://example.com", Username: "admin", Password: pw},
//	    Launch: browser.LaunchOptions{Headless: true},
//	}, logger)
//	defer manager.Shutdown()
//
//	engine := browser.NewEngine(manager, browser.NewRecorder("screenshots", 0), logger)
//	result := engine.Execute(ctx, browser.Request{
//	    Entity: "blogname",
//	    Target: browser.NavigationTarget{Path: "options-general.php", Markers: []string{"#blogname"}},
//	    Fields: []browser.FieldDescriptor{browser.TextField("#blogname", "My Site")},
//	    Actions: []browser.Action{{Name: "save", Selector: "#submit", Await: []string{"#setting-error-settings_updated"}}},
//	})
package browser
