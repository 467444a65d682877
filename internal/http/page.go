package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// GetPage handles GET /. The first paint is server-rendered from the current
// screen; the page then follows /api/ws.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	h.app.InitTheme(r.Context(), prefersDark(r))

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{Screen: h.app.Snapshot()}); err != nil {
		observability.LoggerFrom(r.Context(), h.logger).Error("render page", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "unable to render dashboard")
		return
	}
	w.Header().Set("Accept-CH", "Sec-CH-Prefers-Color-Scheme")
	w.Header().Set("Vary", "Sec-CH-Prefers-Color-Scheme")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type pageData struct {
	Screen dashboard.Screen
}

// RootClass is the container class list: theme, condition and loading state.
func (p pageData) RootClass() string {
	c := "weather-app " + string(p.Screen.Theme)
	if p.Screen.View != nil {
		c += " " + p.Screen.View.Condition
	}
	if p.Screen.Loading {
		c += " loading"
	}
	return c
}

// Background is the condition gradient. Values come from a fixed table in
// package view, so they are safe to emit as CSS.
func (p pageData) Background() template.CSS {
	if p.Screen.View == nil || p.Screen.View.Background == "" {
		return ""
	}
	return template.CSS("background: " + p.Screen.View.Background)
}
