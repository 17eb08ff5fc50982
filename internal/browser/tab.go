package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab is a Rod page opened for recording.
type Tab struct {
	Page    *rod.Page
	PageURL string
	PageID  string
}

// OpenTab creates a tab, applies stealth and resource blocking, navigates
// to pageURL and waits for load.
func (m *Manager) OpenTab(ctx context.Context, pageURL, pageID string) (*Tab, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if m.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	blockResources(page, newBlockList(m.cfg.ResourceBlocking, m.cfg.Logger))

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigateTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL, PageID: pageID}, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
