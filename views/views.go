// Package views embeds the HTML templates rendered by the hunt app.
package views

import (
	"embed"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed *.html layouts/*.html
var templates embed.FS

// Engine builds the fiber template engine backed by the embedded views.
func Engine() *html.Engine {
	return html.NewFileSystem(http.FS(templates), ".html")
}
