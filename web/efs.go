package web

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed static/*
var staticFS embed.FS

// GetFileSystem returns the static files to serve.
func GetFileSystem() (fs.FS, error) {
	// Dev mode: serve from disk so page edits don't need a rebuild.
	if dir := os.Getenv("FRONTEND_DIR"); dir != "" {
		return os.DirFS(dir), nil
	}

	return fs.Sub(staticFS, "static")
}
