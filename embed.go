package main

import (
	"embed"
	"io/fs"
)

//go:embed web/static
var staticFS embed.FS

// Static returns the dashboard bundle rooted at web/static.
func Static() fs.FS {
	if sub, err := fs.Sub(staticFS, "web/static"); err == nil {
		return sub
	}
	return staticFS
}
