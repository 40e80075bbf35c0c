package assets

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// IndexPath is served for requests to "/".
const IndexPath = "/index.html"

// Handler serves files from reg.
type Handler struct {
	registry *Registry
	logger   *zap.Logger
}

// NewHandler creates an HTTP handler backed by reg.
func NewHandler(reg *Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: reg, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.serve(w, r)

	h.logger.Debug("HTTP request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)))
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) int {
	h.setHeaders(w)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return http.StatusMethodNotAllowed
	}

	file, ok := h.registry.Lookup(normalizePath(r.URL.Path))
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return http.StatusNotFound
	}

	etag := `"` + file.Checksum + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return http.StatusNotModified
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(file.Size))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		if _, err := io.WriteString(w, file.Data); err != nil {
			h.logger.Warn("Failed to write response", zap.String("path", file.Path), zap.Error(err))
		}
	}
	return http.StatusOK
}

// setHeaders disables client caching for every response.
func (h *Handler) setHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p == "/" {
		return IndexPath
	}
	return p
}
