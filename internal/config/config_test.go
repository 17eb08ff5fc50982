package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/domreplay/internal/privacy"
)

func TestLoadFile_DefaultsAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domreplay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
recorder:
  segment_bytes_limit: 1000
privacy:
  default_level: allow
  rules:
    - selector: ".secret"
      level: hidden
pages:
  - url: https://example.com
    mode: http
sinks:
  - type: http
    url: https://intake.example.com/v2/replay
  - type: spool
    path: /tmp/spool.db
admin:
  addr: ":9090"
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), cfg.Recorder.SegmentBytesLimit)
	assert.Equal(t, 30*time.Second, cfg.Recorder.SegmentDurationLimit)
	assert.Equal(t, 16*time.Millisecond, cfg.Recorder.MutationMinSpacing)
	assert.Equal(t, privacy.Allow, cfg.Privacy.DefaultLevel)
	assert.Equal(t, privacy.Hidden, cfg.Privacy.Rules[0].Level)
	assert.Nil(t, cfg.Privacy.Ignore)
	assert.Equal(t, "page-1", cfg.Pages[0].ID)
	assert.Equal(t, 3, cfg.Sinks[0].Retries)
	assert.Equal(t, 0, cfg.Sinks[1].Retries)
	require.NotNil(t, cfg.Browser.Headless)
	assert.True(t, *cfg.Browser.Headless)
	assert.Equal(t, ":9090", cfg.Admin.Addr)
}

func TestParse_IgnorePolicyOverride(t *testing.T) {
	cfg, err := Parse([]byte(`
privacy:
  ignore:
    tags: [script, noscript]
    meta_http_equiv: false
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Privacy.Ignore)
	assert.Equal(t, []string{"script", "noscript"}, cfg.Privacy.Ignore.Tags)
	assert.False(t, cfg.Privacy.Ignore.MetaHTTPEquiv)
}

func TestParse_Rejects(t *testing.T) {
	for name, doc := range map[string]string{
		"level":     "privacy:\n  default_level: secret\n",
		"rule":      "privacy:\n  rules:\n    - selector: a\n      level: nope\n",
		"mode":      "pages:\n  - url: https://x\n    mode: ftp\n",
		"no url":    "pages:\n  - id: p\n",
		"sink type": "sinks:\n  - type: kafka\n",
		"http url":  "sinks:\n  - type: http\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, privacy.Mask, cfg.Privacy.DefaultLevel)
	assert.Equal(t, 30*time.Second, cfg.Recorder.WorkerStartTimeout)
	assert.NoError(t, cfg.Validate())
}
