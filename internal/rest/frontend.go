package rest

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FrontendHandler serves the built single-page dashboard. Unknown paths fall
// back to index.html so client-side routing keeps working after a refresh.
type FrontendHandler struct {
	staticDir string
	indexFile string
}

func NewFrontendHandler(staticDir string, indexFile string) *FrontendHandler {
	return &FrontendHandler{staticDir: staticDir, indexFile: indexFile}
}

func (h *FrontendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestPath := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
	fullPath := filepath.Join(h.staticDir, requestPath)

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(h.staticDir, h.indexFile))
		return
	}

	http.ServeFile(w, r, fullPath)
}
