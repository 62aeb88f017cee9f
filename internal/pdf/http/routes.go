package pdfhttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the render API and the published file tree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/pdf", func(r chi.Router) {
		r.Get("/templates", h.handleTemplates)
		if h.cfg.RateLimit > 0 {
			r.With(httprate.LimitByIP(h.cfg.RateLimit, time.Minute)).Post("/", h.handleRender)
		} else {
			r.Post("/", h.handleRender)
		}
	})

	if h.cfg.OutputDir == "" {
		return
	}
	prefix := ""
	if trimmed := strings.Trim(h.cfg.URLPrefix, "/"); trimmed != "" {
		prefix = "/" + trimmed
	}
	files := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(h.cfg.OutputDir)))
	r.Handle(prefix+"/*", pdfFileHandler(files))
}

// pdfFileHandler only exposes published .pdf files.
func pdfFileHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ".pdf") || strings.Contains(r.URL.Path, "/.") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "private, max-age=300")
		w.Header().Set("Content-Type", "application/pdf")
		next.ServeHTTP(w, r)
	})
}
