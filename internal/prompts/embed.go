// Package prompts holds the chat prompts used to describe clusters.
package prompts

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.txt.tmpl
var templates embed.FS

// FS returns the template directory with the templates/ prefix stripped.
func FS() fs.FS {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		return templates
	}
	return sub
}

// PathFor maps a logical prompt name to its file name. Variants keep their
// suffix: "cluster_user@v2" is cluster_user@v2.txt.tmpl.
func PathFor(name string) string {
	return name + ".txt.tmpl"
}
