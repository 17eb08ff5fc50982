// CLAUDE:SUMMARY Defines domreplay config structs and parses YAML configuration files with defaults.
// Package config handles domreplay configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/domreplay/internal/privacy"
)

// Config is the top-level domreplay configuration.
type Config struct {
	Recorder RecorderConfig `yaml:"recorder"`
	Privacy  PrivacyConfig  `yaml:"privacy"`
	Browser  BrowserConfig  `yaml:"browser"`
	Pages    []PageConfig   `yaml:"pages"`
	Sinks    []SinkConfig   `yaml:"sinks"`
	Admin    AdminConfig    `yaml:"admin"`
}

// RecorderConfig holds the segment and tracker limits.
type RecorderConfig struct {
	ApplicationID        string        `yaml:"application_id"`
	SegmentDurationLimit time.Duration `yaml:"segment_duration_limit"`
	SegmentBytesLimit    int64         `yaml:"segment_bytes_limit"`
	MutationMaxDelay     time.Duration `yaml:"mutation_max_delay"`
	MutationMinSpacing   time.Duration `yaml:"mutation_min_spacing"`
	MoveThrottle         time.Duration `yaml:"move_throttle"`
	ScrollThrottle       time.Duration `yaml:"scroll_throttle"`
	ViewportThrottle     time.Duration `yaml:"viewport_throttle"`
	WorkerStartTimeout   time.Duration `yaml:"worker_start_timeout"`
	CompressionLevel     int           `yaml:"compression_level"`
}

// PrivacyConfig holds the default level, selector rules and ignore policy.
// A nil Ignore keeps the built-in policy.
type PrivacyConfig struct {
	DefaultLevel privacy.Level         `yaml:"default_level"`
	Rules        []privacy.Rule        `yaml:"rules"`
	Ignore       *privacy.IgnorePolicy `yaml:"ignore"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Headless         *bool         `yaml:"headless"`
	Stealth          bool          `yaml:"stealth"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
}

// PageConfig defines a page to record.
type PageConfig struct {
	ID       string        `yaml:"id"`
	URL      string        `yaml:"url"`
	Mode     string        `yaml:"mode"` // browser | http | auto
	Duration time.Duration `yaml:"duration"`
}

// SinkConfig defines a delivery backend.
type SinkConfig struct {
	Type        string        `yaml:"type"` // http | spool | jsonl
	URL         string        `yaml:"url"`  // for http
	Path        string        `yaml:"path"` // for spool and jsonl
	Retries     int           `yaml:"retries"`
	Backoff     time.Duration `yaml:"backoff"`
	ExitTimeout time.Duration `yaml:"exit_timeout"`
}

// AdminConfig controls the admin HTTP server. An empty Addr disables it.
type AdminConfig struct {
	Addr string `yaml:"addr"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	r := &c.Recorder
	if r.ApplicationID == "" {
		r.ApplicationID = "domreplay"
	}
	if r.SegmentDurationLimit <= 0 {
		r.SegmentDurationLimit = 30 * time.Second
	}
	if r.SegmentBytesLimit <= 0 {
		r.SegmentBytesLimit = 60_000
	}
	if r.MutationMaxDelay <= 0 {
		r.MutationMaxDelay = 100 * time.Millisecond
	}
	if r.MutationMinSpacing <= 0 {
		r.MutationMinSpacing = 16 * time.Millisecond
	}
	if r.MoveThrottle <= 0 {
		r.MoveThrottle = 50 * time.Millisecond
	}
	if r.ScrollThrottle <= 0 {
		r.ScrollThrottle = 100 * time.Millisecond
	}
	if r.ViewportThrottle <= 0 {
		r.ViewportThrottle = 200 * time.Millisecond
	}
	if r.WorkerStartTimeout <= 0 {
		r.WorkerStartTimeout = 30 * time.Second
	}
	if c.Privacy.DefaultLevel == "" {
		c.Privacy.DefaultLevel = privacy.Mask
	}
	if c.Browser.Headless == nil {
		h := true
		c.Browser.Headless = &h
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	for i := range c.Pages {
		if c.Pages[i].Mode == "" {
			c.Pages[i].Mode = "browser"
		}
		if c.Pages[i].ID == "" {
			c.Pages[i].ID = fmt.Sprintf("page-%d", i+1)
		}
	}
	for i := range c.Sinks {
		s := &c.Sinks[i]
		if s.Type == "http" && s.Retries <= 0 {
			s.Retries = 3
		}
		if s.Backoff <= 0 {
			s.Backoff = time.Second
		}
		if s.ExitTimeout <= 0 {
			s.ExitTimeout = 5 * time.Second
		}
	}
}

// Validate checks levels, page modes and sink types.
func (c *Config) Validate() error {
	if _, err := privacy.ParseLevel(string(c.Privacy.DefaultLevel)); err != nil {
		return fmt.Errorf("config: privacy.default_level: %w", err)
	}
	for i, r := range c.Privacy.Rules {
		if r.Selector == "" {
			return fmt.Errorf("config: privacy.rules[%d]: empty selector", i)
		}
		if _, err := privacy.ParseLevel(string(r.Level)); err != nil {
			return fmt.Errorf("config: privacy.rules[%d]: %w", i, err)
		}
	}
	for _, p := range c.Pages {
		if p.URL == "" {
			return fmt.Errorf("config: page %s: url is required", p.ID)
		}
		switch p.Mode {
		case "browser", "http", "auto":
		default:
			return fmt.Errorf("config: page %s: unknown mode %q", p.ID, p.Mode)
		}
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "http":
			if s.URL == "" {
				return fmt.Errorf("config: sinks[%d]: http sink needs url", i)
			}
		case "spool":
			if s.Path == "" {
				return fmt.Errorf("config: sinks[%d]: spool sink needs path", i)
			}
		case "jsonl":
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}
