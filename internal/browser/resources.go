package browser

import (
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceAliases are the plural names accepted in browser.resource_blocking.
// Any other entry is taken as a CDP resource type name (xhr, ping, ...).
var resourceAliases = map[string]proto.NetworkResourceType{
	"images": proto.NetworkResourceTypeImage,
	"fonts":  proto.NetworkResourceTypeFont,
	"media":  proto.NetworkResourceTypeMedia,
}

// replayCritical are never blocked: full snapshots inline stylesheet rules
// and scripts produce the mutations being recorded.
var replayCritical = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeDocument:   true,
	proto.NetworkResourceTypeStylesheet: true,
	proto.NetworkResourceTypeScript:     true,
}

// blockList is a set of lower-cased CDP resource types.
type blockList map[string]bool

func newBlockList(names []string, logger *slog.Logger) blockList {
	b := make(blockList, len(names))
	for _, name := range names {
		typ, ok := resourceAliases[strings.ToLower(name)]
		if !ok {
			typ = proto.NetworkResourceType(name)
		}
		if replayCritical[canonical(typ)] {
			logger.Warn("browser: resource type kept for replay", "type", name)
			continue
		}
		b[strings.ToLower(string(typ))] = true
	}
	return b
}

// canonical matches a user-written type name against the CDP spelling.
func canonical(typ proto.NetworkResourceType) proto.NetworkResourceType {
	for critical := range replayCritical {
		if strings.EqualFold(string(critical), string(typ)) {
			return critical
		}
	}
	return typ
}

func (b blockList) blocks(typ proto.NetworkResourceType) bool {
	return b[strings.ToLower(string(typ))]
}

// blockResources fails the tab's requests for the listed resource types
// with BlockedByClient. It is a no-op when nothing is blocked.
func blockResources(page *rod.Page, b blockList) {
	if len(b) == 0 {
		return
	}
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if b.blocks(h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}
