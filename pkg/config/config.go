// Package config loads wpdriver settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/wpdriver/pkg/browser"
	"github.com/entrhq/wpdriver/pkg/logging"
)

// Environment variables that override file values.
const (
	EnvBaseURL     = "WPDRIVER_BASE_URL"
	EnvUsername    = "WPDRIVER_USERNAME"
	EnvAppPassword = "WPDRIVER_APP_PASSWORD"
	EnvHeadless    = "WPDRIVER_HEADLESS"
)

// Config represents the configuration of a wpdriver run
type Config struct {
	// Remote site and credentials
	Site SiteConfig `yaml:"site" json:"site"`

	// Browser process settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Per-step time budgets
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Screenshot and report output
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig identifies the remote site
type SiteConfig struct {
	BaseURL     string `yaml:"base_url" json:"base_url"`
	AdminPath   string `yaml:"admin_path" json:"admin_path"`
	Username    string `yaml:"username" json:"username"`
	AppPassword string `yaml:"app_password" json:"-"`
}

// BrowserConfig controls the launched browser
type BrowserConfig struct {
	Headless  bool             `yaml:"headless" json:"headless"`
	SlowMoMS  float64          `yaml:"slow_mo_ms" json:"slow_mo_ms"`
	Viewport  browser.Viewport `yaml:"viewport" json:"viewport"`
	NoSandbox bool             `yaml:"no_sandbox" json:"no_sandbox"`
	TimeoutMS float64          `yaml:"timeout_ms" json:"timeout_ms"`
}

// TimeoutConfig bounds each long-latency step
type TimeoutConfig struct {
	Navigation      time.Duration `yaml:"navigation" json:"navigation"`
	Auth            time.Duration `yaml:"auth" json:"auth"`
	Action          time.Duration `yaml:"action" json:"action"`
	EditorDetection time.Duration `yaml:"editor_detection" json:"editor_detection"`
	FieldLocate     time.Duration `yaml:"field_locate" json:"field_locate"`
	Screenshot      time.Duration `yaml:"screenshot" json:"screenshot"`
}

// ArtifactConfig defines where run output goes
type ArtifactConfig struct {
	ScreenshotDir string `yaml:"screenshot_dir" json:"screenshot_dir"`
	OutputDir     string `yaml:"output_dir" json:"output_dir"`

	// PDFBundle also packs the run's screenshots into audit.pdf
	PDFBundle bool `yaml:"pdf_bundle" json:"pdf_bundle"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`

	// Dir holds the run log; defaults to ~/.wpdriver/logs
	Dir string `yaml:"dir" json:"dir"`

	// MaxSizeMB rotates the log file past this size; 0 disables rotation
	MaxSizeMB  int `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int `yaml:"max_backups" json:"max_backups"`
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	t := browser.DefaultTimeouts()
	return &Config{
		Site: SiteConfig{
			AdminPath: browser.DefaultAdminPath,
		},
		Browser: BrowserConfig{
			Headless: true,
			Viewport: browser.Viewport{
				Width:  browser.DefaultViewportWidth,
				Height: browser.DefaultViewportHeight,
			},
			TimeoutMS: browser.DefaultTimeout,
		},
		Timeouts: TimeoutConfig{
			Navigation:      t.Navigation,
			Auth:            t.Auth,
			Action:          t.Action,
			EditorDetection: t.EditorDetection,
			FieldLocate:     t.FieldLocate,
			Screenshot:      t.Screenshot,
		},
		Artifacts: ArtifactConfig{
			ScreenshotDir: ".wpdriver/screenshots",
			OutputDir:     ".wpdriver/artifacts",
		},
		Logging: LoggingConfig{
			Verbosity:  "normal",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides site credentials and headless mode from the environment.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		c.Site.BaseURL = v
	}
	if v, ok := lookup(EnvUsername); ok && v != "" {
		c.Site.Username = v
	}
	if v, ok := lookup(EnvAppPassword); ok && v != "" {
		c.Site.AppPassword = v
	}
	if v, ok := lookup(EnvHeadless); ok && v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvHeadless, v)
		}
		c.Browser.Headless = headless
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid site.base_url: %s (must be an http or https URL)", c.Site.BaseURL)
	}

	if c.Site.Username == "" {
		return fmt.Errorf("site.username is required")
	}
	if c.Site.AppPassword == "" {
		return fmt.Errorf("site.app_password is required (or set %s)", EnvAppPassword)
	}

	if c.Browser.SlowMoMS < 0 {
		return fmt.Errorf("browser.slow_mo_ms cannot be negative")
	}
	if c.Browser.Viewport.Width < 0 || c.Browser.Viewport.Height < 0 {
		return fmt.Errorf("browser.viewport cannot be negative")
	}

	for name, d := range map[string]time.Duration{
		"navigation":       c.Timeouts.Navigation,
		"auth":             c.Timeouts.Auth,
		"action":           c.Timeouts.Action,
		"editor_detection": c.Timeouts.EditorDetection,
		"field_locate":     c.Timeouts.FieldLocate,
		"screenshot":       c.Timeouts.Screenshot,
	} {
		if d < 0 {
			return fmt.Errorf("timeouts.%s cannot be negative", name)
		}
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		return fmt.Errorf("logging.max_size_mb and logging.max_backups cannot be negative")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	if _, err := logging.ParseLevel(c.Logging.Verbosity); err != nil {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// SessionConfig converts the configuration for the browser engine.
func (c *Config) SessionConfig() browser.SessionConfig {
	viewport := c.Browser.Viewport
	return browser.SessionConfig{
		Site: browser.SiteConfig{
			BaseURL:   strings.TrimRight(c.Site.BaseURL, "/"),
			AdminPath: c.Site.AdminPath,
			Username:  c.Site.Username,
			Password:  c.Site.AppPassword,
		},
		Launch: browser.LaunchOptions{
			Headless:  c.Browser.Headless,
			SlowMo:    c.Browser.SlowMoMS,
			Viewport:  &viewport,
			NoSandbox: c.Browser.NoSandbox,
			Timeout:   c.Browser.TimeoutMS,
		},
		Timeouts: browser.Timeouts{
			Navigation:      c.Timeouts.Navigation,
			Auth:            c.Timeouts.Auth,
			Action:          c.Timeouts.Action,
			EditorDetection: c.Timeouts.EditorDetection,
			FieldLocate:     c.Timeouts.FieldLocate,
			Screenshot:      c.Timeouts.Screenshot,
		},
	}
}

// LoggerOptions converts the logging section for logging.NewLogger.
func (c *Config) LoggerOptions() logging.Options {
	return logging.Options{
		Dir:        c.Logging.Dir,
		Level:      c.LogLevel(),
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
}

// LogLevel returns the parsed logging verbosity.
func (c *Config) LogLevel() logging.Level {
	level, err := logging.ParseLevel(c.Logging.Verbosity)
	if err != nil {
		return logging.LevelNormal
	}
	return level
}
