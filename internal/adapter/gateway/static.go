package gateway

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
)

//go:embed web
var embeddedWeb embed.FS

const indexFile = "index.html"

// staticFS returns the UI file tree: dir when set, the embedded UI otherwise.
func staticFS(dir string) (fs.FS, error) {
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
		return os.DirFS(dir), nil
	}
	return fs.Sub(embeddedWeb, "web")
}

func serveIndex(fsys fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, fsys, indexFile)
	}
}
