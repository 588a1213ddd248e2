// Package web serves the embedded browser UI.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// Handler returns an http.Handler serving the bundled single-page UI.
func Handler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// embed guarantees the directory exists at build time.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
