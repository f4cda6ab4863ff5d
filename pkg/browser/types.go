package browser

import (
	"time"
)

// LaunchOptions configures the browser process started for a Session.
type LaunchOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// SlowMo delays every browser operation by this many milliseconds
	SlowMo float64

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// NoSandbox disables the Chromium sandbox (containers, CI runners)
	NoSandbox bool

	// Timeout sets the default timeout for page operations (in milliseconds)
	Timeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// SiteConfig identifies the remote application and the credentials used to
// administer it.
type SiteConfig struct {
	// BaseURL is the site root, e.g. https://example.com
	BaseURL string

	// AdminPath is the admin prefix relative to BaseURL, e.g. wp-admin
	AdminPath string

	Username string
	Password string
}

// Timeouts bounds every long-latency step of the engine.
type Timeouts struct {
	Navigation      time.Duration
	Auth            time.Duration
	Action          time.Duration
	EditorDetection time.Duration
	FieldLocate     time.Duration
	Screenshot      time.Duration
}

// NavigationTarget describes an admin screen to reach.
type NavigationTarget struct {
	// Path is relative to the admin prefix (e.g. options-general.php) or an absolute URL
	Path string `yaml:"path" json:"path"`

	// Markers confirm arrival; any one of them being present is enough.
	// Without markers the navigator waits for network idle. An HTTP error
	// status fails the navigation either way.
	Markers []string `yaml:"markers,omitempty" json:"markers,omitempty"`

	// Timeout overrides Timeouts.Navigation when non-zero
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// FieldType is the semantic type a caller declares for a field.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldEnum    FieldType = "enum"
)

// FieldDescriptor is a request to set one UI field to a desired value.
// It is consumed once by the field engine.
type FieldDescriptor struct {
	// Name labels the field in results; defaults to Selector
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	Selector string    `yaml:"selector" json:"selector"`
	Type     FieldType `yaml:"type" json:"type"`

	// Value is the desired value; booleans use "true"/"false"
	Value string `yaml:"value" json:"value"`
}

// Label returns the name used for this field in results and logs.
func (d FieldDescriptor) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Selector
}

// TextField builds a text field descriptor.
func TextField(selector, value string) FieldDescriptor {
	return FieldDescriptor{Selector: selector, Type: FieldText, Value: value}
}

// BoolField builds a checkbox field descriptor.
func BoolField(selector string, checked bool) FieldDescriptor {
	value := "false"
	if checked {
		value = "true"
	}
	return FieldDescriptor{Selector: selector, Type: FieldBoolean, Value: value}
}

// EnumField builds a select field descriptor.
func EnumField(selector, option string) FieldDescriptor {
	return FieldDescriptor{Selector: selector, Type: FieldEnum, Value: option}
}

// Action is a terminal click on the current screen (save, activate, add to
// menu). It is skipped when SkipIfPresent already matches, which keeps state
// changes idempotent.
type Action struct {
	Name          string   `yaml:"name" json:"name"`
	Selector      string   `yaml:"selector" json:"selector"`
	SkipIfPresent string   `yaml:"skip_if_present,omitempty" json:"skip_if_present,omitempty"`
	Await         []string `yaml:"await,omitempty" json:"await,omitempty"`
}

// Request is one unit of work for the engine: reach a screen, then mutate it.
type Request struct {
	// Entity identifies what is being changed; it names the screenshot
	Entity string `yaml:"entity" json:"entity"`

	Target NavigationTarget `yaml:"target" json:"target"`

	// Title and Content are structured body fields applied through the
	// active editor strategy
	Title   *string `yaml:"title,omitempty" json:"title,omitempty"`
	Content *string `yaml:"content,omitempty" json:"content,omitempty"`

	Fields  []FieldDescriptor `yaml:"fields,omitempty" json:"fields,omitempty"`
	Actions []Action          `yaml:"actions,omitempty" json:"actions,omitempty"`

	// Publish runs the editor's publish sequence after content is applied
	Publish bool `yaml:"publish,omitempty" json:"publish,omitempty"`
}

// NeedsEditor reports whether the request targets a content-editing surface.
func (r Request) NeedsEditor() bool {
	return r.Title != nil || r.Content != nil || r.Publish
}

// Mutating reports whether the request changes remote state.
func (r Request) Mutating() bool {
	return r.NeedsEditor() || len(r.Fields) > 0 || len(r.Actions) > 0
}

// Default values for various operations
const (
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultMaxSessions    = 5
	DefaultIdleTimeout    = 300 // 5 minutes in seconds
	DefaultAdminPath      = "wp-admin"
)

// DefaultTimeouts returns the timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigation:      30 * time.Second,
		Auth:            20 * time.Second,
		Action:          10 * time.Second,
		EditorDetection: 15 * time.Second,
		FieldLocate:     3 * time.Second,
		Screenshot:      15 * time.Second,
	}
}

// withDefaults fills zero-valued timeouts.
func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Navigation <= 0 {
		t.Navigation = d.Navigation
	}
	if t.Auth <= 0 {
		t.Auth = d.Auth
	}
	if t.Action <= 0 {
		t.Action = d.Action
	}
	if t.EditorDetection <= 0 {
		t.EditorDetection = d.EditorDetection
	}
	if t.FieldLocate <= 0 {
		t.FieldLocate = d.FieldLocate
	}
	if t.Screenshot <= 0 {
		t.Screenshot = d.Screenshot
	}
	return t
}

// ms converts a duration to the millisecond float the driver expects.
func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
