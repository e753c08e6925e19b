package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceWorkerIsPassthroughAndUncached(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sw.js", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/javascript", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "/", resp.Header.Get("Service-Worker-Allowed"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "fetch(event.request)")
	// No caching logic is shipped, on purpose.
	assert.NotContains(t, string(body), "caches.open")
}

func TestManifest(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/manifest.webmanifest", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/manifest+json", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"start_url": "/"`)
}

func TestLandingPageRegistersServiceWorker(t *testing.T) {
	t.Parallel()

	c := newClient(t, newTestApp(t))
	doc := parseHTML(t, c.get("/"))
	assert.Contains(t, doc.Find("script").Text(), "serviceWorker.register('/sw.js')")
}
