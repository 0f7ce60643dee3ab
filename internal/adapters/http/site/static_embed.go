package site

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var staticFS embed.FS

// pagesFS is the embedded site rooted at static/.
var pagesFS fs.FS = func() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return staticFS
	}
	return sub
}()

// FS returns an http.FileSystem for the embedded marketing site.
func FS() http.FileSystem {
	return http.FS(pagesFS)
}
