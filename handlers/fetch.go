package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dverhoef/treasurehunt/pkg/passthrough"
)

// FetchThrough relays an intercepted request to the network unmodified
// and returns exactly what the network produced. There is no retry, no
// cache, and no fallback: a network failure becomes a plain 502.
func (h *Hunt) FetchThrough(c *fiber.Ctx) error {
	target, err := extractTargetURL(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	header := make(http.Header)
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})

	var body io.Reader
	if raw := c.Body(); len(raw) > 0 {
		body = bytes.NewReader(raw)
	}

	resp, err := h.fetch.Forward(c.Context(), c.Method(), target, header, body)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).SendString(err.Error())
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if passthrough.IsHopByHop(key) {
			continue
		}
		for _, value := range values {
			c.Response().Header.Add(key, value)
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).SendString(err.Error())
	}
	return c.Status(resp.StatusCode).Send(data)
}

// extractTargetURL pulls the forward target out of the request path. If
// the path is relative, the full URL is reconstructed from the referer,
// so assets requested by a relayed page resolve against their own site.
func extractTargetURL(c *fiber.Ctx) (string, error) {
	path := c.Params("*")

	target, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("error parsing request path '%s': %w", path, err)
	}

	if target.Scheme == "http" || target.Scheme == "https" {
		if query := c.Request().URI().QueryString(); len(query) > 0 {
			target.RawQuery = string(query)
		}
		return target.String(), nil
	}

	referer := c.Get(fiber.HeaderReferer)
	if referer == "" {
		return "", fmt.Errorf("cannot resolve relative path without a referer: %s", path)
	}

	refererURL, err := url.Parse(referer)
	if err != nil {
		return "", fmt.Errorf("error parsing referer URL '%s': %w", referer, err)
	}

	// The real site hides in the referer's path, after the relay prefix.
	realTarget, err := url.Parse(strings.TrimPrefix(refererURL.Path, "/fetch/"))
	if err != nil {
		return "", fmt.Errorf("error parsing real target from referer path '%s': %w", refererURL.Path, err)
	}
	if realTarget.Scheme != "http" && realTarget.Scheme != "https" {
		return "", fmt.Errorf("referer path '%s' does not carry an absolute target", refererURL.Path)
	}

	fullURL := &url.URL{
		Scheme:   realTarget.Scheme,
		Host:     realTarget.Host,
		Path:     "/" + path,
		RawQuery: string(c.Request().URI().QueryString()),
	}
	return fullURL.String(), nil
}
