package browser

import (
	"log/slog"
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestBlockList(t *testing.T) {
	b := newBlockList([]string{"images", "Fonts", "xhr", "stylesheets", "Script"}, slog.Default())
	cases := []struct {
		typ  proto.NetworkResourceType
		want bool
	}{
		{proto.NetworkResourceTypeImage, true},
		{proto.NetworkResourceTypeFont, true},
		{proto.NetworkResourceTypeXHR, true},
		{proto.NetworkResourceTypeMedia, false},
		{proto.NetworkResourceTypeStylesheet, false},
		{proto.NetworkResourceTypeScript, false},
		{proto.NetworkResourceTypeDocument, false},
	}
	for _, c := range cases {
		if got := b.blocks(c.typ); got != c.want {
			t.Errorf("blocks(%q) = %v, want %v", c.typ, got, c.want)
		}
	}
	if len(newBlockList(nil, slog.Default())) != 0 {
		t.Error("empty configuration blocks something")
	}
}

func TestConfigDefaults(t *testing.T) {
	m := NewManager(Config{})
	if m.cfg.NavigateTimeout != DefaultNavigateTimeout {
		t.Errorf("navigate timeout = %v", m.cfg.NavigateTimeout)
	}
	if m.Browser() != nil {
		t.Error("browser before Start")
	}
	if err := m.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if _, err := m.Start(t.Context()); err == nil {
		t.Error("start after close succeeded")
	}
}
