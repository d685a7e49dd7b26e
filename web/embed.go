// Package web embeds the page templates and static assets served by the
// HTTP server.
//
// Usage in the API server:
//
//	import "github.com/seenimoa/stockqa/web"
//	tmpl, err := web.Templates(funcs)
//	static := web.StaticFS()
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"log"
)

//go:embed templates/*.tmpl
var templates embed.FS

//go:embed static
var static embed.FS

// Templates parses every embedded page template with the given functions.
func Templates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("pages").Funcs(funcs).ParseFS(templates, "templates/*.tmpl")
}

// StaticFS returns a filesystem rooted at the embedded static/ directory.
func StaticFS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		log.Fatalf("web.StaticFS: %v", err)
	}
	return sub
}
