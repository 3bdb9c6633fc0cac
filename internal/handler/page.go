// Package handler contains HTTP request handlers for the glucolog API and
// the SPA shell. Handlers are the glue between HTTP and the service layer:
// they parse requests, call business logic, and write responses — nothing
// else lives here.
package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
)

// PageHandler serves the single-page-application shell. The SPA itself
// talks to /api/*; this handler only delivers the initial HTML document.
//
// Templates are parsed once at startup (expensive) and reused per request
// (cheap), which is why this is a struct rather than a bare function.
type PageHandler struct {
	templates *template.Template
	logger    *slog.Logger
}

// NewPageHandler creates a PageHandler and parses the shell template.
func NewPageHandler(templateDir string, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFiles(
		filepath.Join(templateDir, "index.html"),
	)
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		templates: tmpl,
		logger:    logger,
	}, nil
}

// HandleIndex serves the SPA shell.
//
// HTTP: GET /
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title": "Glucolog — Blood Glucose Tracker",
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
