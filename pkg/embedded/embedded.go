// Package embedded provides embedded static assets for the application.
package embedded

import (
	"embed"
	"io/fs"
)

// Files contains all files embedded in the Go binary:
//   - templates/ - page templates, parsed by the pages module
//   - static/    - stylesheets served under /static
//
//go:embed templates static
var Files embed.FS

// Static returns the static/ subtree, rooted so that /static/css/app.css maps to css/app.css
func Static() fs.FS {
	sub, err := fs.Sub(Files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
