// Package site serves the embedded marketing pages.
package site

import (
	"context"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Register attaches the embedded site at / on mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /", NewRootHandler())
}

// RootHandler serves pages by clean URL: /terms maps to terms.html.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

// ServeHTTP implements http.Handler.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(path.Clean(r.URL.Path), "/")
	if name != "" && path.Ext(name) == "" {
		page := name + ".html"
		if _, err := fs.Stat(pagesFS, page); err == nil {
			http.ServeFileFS(w, r, pagesFS, page)
			return
		}
	}
	h.files.ServeHTTP(w, r)
}
