// Package passthrough forwards intercepted requests to the network
// unmodified and hands back exactly what the network produced. It is the
// server-side counterpart of the app's passthrough service worker: no
// cache, no retry, no fallback response.
package passthrough

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Hop-by-hop headers are owned by the transport, not the request, and
// must not be replayed on the outbound call.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// IsHopByHop reports whether a header key is transport-owned and must
// not be copied between the intercepted and the forwarded message.
func IsHopByHop(key string) bool {
	for _, h := range hopByHopHeaders {
		if http.CanonicalHeaderKey(key) == h {
			return true
		}
	}
	return false
}

// Forwarder issues one outbound request per inbound one. The zero value
// is not usable; construct it with New.
type Forwarder struct {
	client *http.Client
}

// New builds a Forwarder. The client carries no timeout of its own: the
// caller's context governs the request lifecycle, and redirects follow
// the client's platform-default behavior.
func New() *Forwarder {
	return &Forwarder{client: &http.Client{}}
}

// Forward sends the described request to targetURL and returns the
// network's response untouched. The caller owns the response body. A
// network failure is returned as-is with no synthetic response.
func (f *Forwarder) Forward(ctx context.Context, method, targetURL string, header http.Header, body io.Reader) (*http.Response, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing target URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q in target URL", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}

	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	for _, key := range hopByHopHeaders {
		req.Header.Del(key)
	}
	// Host travels on the URL, never as a replayed header.
	req.Header.Del("Host")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching site: %w", err)
	}
	return resp, nil
}
