package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Page is a Mirror kept in sync with a live rod page.
type Page struct {
	*Mirror
	page   *rod.Page
	cancel context.CancelFunc
	done   chan struct{}
}

// Attach seeds a mirror from the page's current DOM, subscribes to DOM
// events and installs the event forwarding script. The subscription ends
// with ctx or Close.
func Attach(ctx context.Context, page *rod.Page, logger *slog.Logger) (*Page, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := (proto.DOMEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("cdp: DOM.enable: %w", err)
	}
	// Without depth -1 mutations on deep nodes are not reported.
	depth := -1
	doc, err := proto.DOMGetDocument{Depth: &depth, Pierce: true}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("cdp: DOM.getDocument: %w", err)
	}

	m := NewMirror(doc.Root, logger)
	tracked := m.Len()
	ctx, cancel := context.WithCancel(ctx)
	p := &Page{Mirror: m, page: page, cancel: cancel, done: make(chan struct{})}

	if err := (proto.RuntimeAddBinding{Name: BindingName}).Call(page); err != nil {
		logger.Warn("cdp: addBinding failed (may already exist)", "error", err)
	}
	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{Source: eventsJS}).Call(page); err != nil {
		logger.Warn("cdp: script on new document failed", "error", err)
	}

	wait := page.Context(ctx).EachEvent(
		func(e *proto.DOMChildNodeInserted) {
			var need bool
			m.doc.Run(func() { need = m.ChildNodeInserted(e) })
			if need {
				go p.requestChildren(e.Node.NodeID)
			}
		},
		func(e *proto.DOMChildNodeRemoved) { m.doc.Run(func() { m.ChildNodeRemoved(e) }) },
		func(e *proto.DOMSetChildNodes) { m.doc.Run(func() { m.SetChildNodes(e) }) },
		func(e *proto.DOMAttributeModified) { m.doc.Run(func() { m.AttributeModified(e) }) },
		func(e *proto.DOMAttributeRemoved) { m.doc.Run(func() { m.AttributeRemoved(e) }) },
		func(e *proto.DOMCharacterDataModified) { m.doc.Run(func() { m.CharacterDataModified(e) }) },
		func(e *proto.DOMShadowRootPushed) { m.doc.Run(func() { m.ShadowRootPushed(e) }) },
		func(e *proto.DOMShadowRootPopped) { m.doc.Run(func() { m.ShadowRootPopped(e) }) },
		func(e *proto.DOMDocumentUpdated) { m.DocumentUpdated() },
		func(e *proto.RuntimeBindingCalled) {
			if e.Name != BindingName {
				return
			}
			var evt UserEvent
			if err := json.Unmarshal([]byte(e.Payload), &evt); err != nil {
				logger.Warn("cdp: parse binding payload", "error", err)
				return
			}
			m.doc.Run(func() { m.Event(evt) })
		},
	)
	go func() {
		defer close(p.done)
		wait()
	}()

	if _, err := (proto.RuntimeEvaluate{Expression: eventsJS}).Call(page); err != nil {
		p.Close()
		return nil, fmt.Errorf("cdp: inject events script: %w", err)
	}
	logger.Info("cdp: mirror attached", "url", m.doc.Href(), "nodes", tracked)
	return p, nil
}

func (p *Page) requestChildren(id proto.DOMNodeID) {
	depth := -1
	if err := (proto.DOMRequestChildNodes{NodeID: id, Depth: &depth, Pierce: true}).Call(p.page); err != nil {
		p.logger.Debug("cdp: request child nodes", "node", id, "error", err)
	}
}

// Close ends the event subscription.
func (p *Page) Close() {
	p.cancel()
	<-p.done
}
