package rpc

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StaticFileHandler serves the web UI's static assets, guarding against
// path traversal and stamping Date/Expires headers.
type StaticFileHandler struct {
	root string
	now  func() time.Time
}

// NewStaticFileHandler serves files rooted at dir.
func NewStaticFileHandler(dir string) *StaticFileHandler {
	return &StaticFileHandler{root: dir, now: time.Now}
}

func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.URL.Path, "..") {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/")
	if rel == "" {
		rel = "index.html"
	}
	path := filepath.Join(h.root, filepath.FromSlash(rel))

	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)

	now := h.now()
	w.Header().Set("Date", now.UTC().Format(http.TimeFormat))
	w.Header().Set("Expires", now.Add(24*time.Hour).UTC().Format(http.TimeFormat))

	// ServeContent rather than ServeFile: ServeFile redirects any request
	// ending in "/index.html" instead of serving it.
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
