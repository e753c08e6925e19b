package handlers

import (
	"embed"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

//go:embed static/sw.js static/manifest.webmanifest
var staticFS embed.FS

// ServiceWorker serves the passthrough service worker. It must come from
// the origin root so its scope covers the whole app, and it must never be
// cached so clients pick up updates on the next visit.
func (h *Hunt) ServiceWorker(c *fiber.Ctx) error {
	sw, err := staticFS.ReadFile("static/sw.js")
	if err != nil {
		return fmt.Errorf("read embedded sw.js: %w", err)
	}
	c.Set(fiber.HeaderContentType, "application/javascript")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("Service-Worker-Allowed", "/")
	return c.Send(sw)
}

// Manifest serves the web app manifest that makes the hunt installable.
func (h *Hunt) Manifest(c *fiber.Ctx) error {
	manifest, err := staticFS.ReadFile("static/manifest.webmanifest")
	if err != nil {
		return fmt.Errorf("read embedded manifest: %w", err)
	}
	c.Set(fiber.HeaderContentType, "application/manifest+json")
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(manifest)
}
