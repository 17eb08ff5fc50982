// CLAUDE:SUMMARY Manages the Chrome instance recordings run in: local launch or remote connect via Rod.
// Package browser manages the Chrome instance recorded pages run in: launch
// a local headless Chrome or connect to a remote one via Rod, then open
// tabs with stealth and resource blocking applied.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultNavigateTimeout bounds navigation and load of a new tab.
const DefaultNavigateTimeout = 30 * time.Second

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	Headless bool

	// Stealth opens tabs through go-rod/stealth.
	Stealth bool

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = DefaultNavigateTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one Chrome connection.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance).
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}
	b, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Browser returns the current Rod browser handle.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Close shuts Chrome down.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return err
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger
	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(m.cfg.Headless)
		// Anti-detection flags.
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headless", m.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return b, nil
}
