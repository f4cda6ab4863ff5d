package browser

import (
	"context"
	"errors"
)

// ErrDeadlineExceeded is returned (wrapped) by Page and Driver implementations
// when a primitive hits its timeout.
var ErrDeadlineExceeded = errors.New("browser: deadline exceeded")

// Driver starts browser processes.
type Driver interface {
	Launch(ctx context.Context, opts LaunchOptions) (Process, error)
}

// Process is one running browser with a single page.
type Process interface {
	Page() Page

	// Close tears the process down. Errors are informational; the process is
	// considered gone afterwards.
	Close() error
}

// ElementInfo is the declared kind of a DOM element.
type ElementInfo struct {
	Tag             string
	Type            string
	ContentEditable bool
}

// ConsoleEntry is one message from the page console or an uncaught page error.
type ConsoleEntry struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Page is the set of DOM primitives the engine drives. Timeouts are in
// milliseconds. Selectors are CSS and may be comma-separated lists.
type Page interface {
	// Goto returns the HTTP status of the main document, or 0 when the
	// navigation produced no response.
	Goto(url string, timeout float64) (int, error)
	URL() string
	WaitForNetworkIdle(timeout float64) error

	// Count returns how many elements match without waiting.
	Count(selector string) (int, error)
	Describe(selector string, timeout float64) (ElementInfo, error)

	Clear(selector string, timeout float64) error
	Fill(selector, value string, timeout float64) error
	Type(selector, text string, timeout float64) error
	// KeyboardType types into whatever element holds focus.
	KeyboardType(text string, timeout float64) error
	Click(selector string, timeout float64) error
	IsChecked(selector string, timeout float64) (bool, error)
	SelectOption(selector, value string, timeout float64) error

	InputValue(selector string, timeout float64) (string, error)
	TextContent(selector string, timeout float64) (string, error)
	AllText(selector string) ([]string, error)

	// FrameFill replaces the content of an element inside an embedded frame.
	FrameFill(frameSelector, selector, value string, timeout float64) error
	FrameHTML(frameSelector, selector string, timeout float64) (string, error)

	Evaluate(script string, arg interface{}) (interface{}, error)
	Screenshot(path string, fullPage bool, timeout float64) error

	OnConsole(fn func(ConsoleEntry))
}
