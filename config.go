package domreplay

import (
	"github.com/hazyhaar/domreplay/internal/config"
)

// Config is the top-level domreplay configuration. Re-exported from internal.
type Config = config.Config

// RecorderConfig holds segment and tracker limits.
type RecorderConfig = config.RecorderConfig

// PrivacyConfig holds the default privacy level and selector rules.
type PrivacyConfig = config.PrivacyConfig

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig defines a page to record.
type PageConfig = config.PageConfig

// SinkConfig defines a delivery backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
