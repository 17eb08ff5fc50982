package fetcher

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/domreplay/dom"
)

const article = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
<main>
<article>
<h1>Article Title</h1>
<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur.</p>
</article>
</main>
</body>
</html>`

func sufficient(t *testing.T, src string) bool {
	t.Helper()
	d, err := dom.ParseString(src, "https://example.com/")
	require.NoError(t, err)
	return IsSufficient(d, len(src))
}

func TestIsSufficient(t *testing.T) {
	assert.True(t, sufficient(t, article), "static article")

	shell := `<!DOCTYPE html><html><head><meta charset="utf-8"><title>App</title></head>
<body><div id="root"></div><script src="/static/js/main.chunk.js"></script>` +
		strings.Repeat("<!-- padding -->", 20) + `</body></html>`
	assert.False(t, sufficient(t, shell), "SPA shell")

	assert.False(t, sufficient(t, `<html><body>hi</body></html>`), "too short")

	noscript := strings.Replace(article, "<main>", "<noscript>You need to enable JavaScript to run this app.</noscript><main>", 1)
	assert.False(t, sufficient(t, noscript), "noscript marker")
}

func TestFetch_ParsesDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "DOMReplay")
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(article))
	}))
	defer srv.Close()

	res, err := New().Fetch(t.Context(), srv.URL+"/post")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `"v1"`, res.ETag)
	assert.True(t, res.Sufficient)
	assert.Equal(t, srv.URL+"/post", res.Doc.Href())
	require.NotNil(t, res.Doc.Body())
	assert.Contains(t, res.Doc.Body().TextContent(), "Article Title")
}

func TestFetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := New().Fetch(t.Context(), srv.URL)
	assert.ErrorContains(t, err, "status 404")
}
