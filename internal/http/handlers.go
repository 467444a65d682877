package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 4 << 10

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	// StorePing, when set, checks the theme store backend.
	StorePing    func(ctx context.Context) error
	StoreBackend string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	app          *dashboard.App
	client       client.WeatherClient
	state        *lifecycle.State
	healthConfig HealthConfig
	logger       *zap.Logger
	ws           *wsHub

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(app *dashboard.App, c client.WeatherClient, state *lifecycle.State, healthConfig HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if state == nil {
		state = lifecycle.New()
	}
	return &Handler{
		app:          app,
		client:       c,
		state:        state,
		healthConfig: healthConfig,
		logger:       logger,
		ws:           newWSHub(app, logger),
	}
}

// prefersDark reads the viewer's OS colour-scheme hint.
func prefersDark(r *http.Request) bool {
	if r.Header.Get("Sec-CH-Prefers-Color-Scheme") == "dark" {
		return true
	}
	return r.URL.Query().Get("prefers") == "dark"
}

// GetDashboard handles GET /api/dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Snapshot())
}

// PostSearch handles POST /api/search {"city": "..."}.
func (h *Handler) PostSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		City string `json:"city"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}
	if strings.TrimSpace(body.City) == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", validation.ErrCityEmpty.Error())
		return
	}
	h.writeLookupResult(w, r, h.app.SearchCity(r.Context(), body.City))
}

// PostLocate handles POST /api/locate with either a geolocation fix or
// {"denied": true}. Denied or invalid fixes fall back to the default city.
func (h *Handler) PostLocate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Denied    bool     `json:"denied"`
	}
	if err := decodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}
	var fix *dashboard.Coordinates
	if !body.Denied && body.Latitude != nil && body.Longitude != nil {
		fix = &dashboard.Coordinates{Latitude: *body.Latitude, Longitude: *body.Longitude}
	}
	h.writeLookupResult(w, r, h.app.Start(r.Context(), fix))
}

// writeLookupResult maps a lookup outcome to a response. Superseded lookups
// return 202 with the screen of the newer lookup.
func (h *Handler) writeLookupResult(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.app.Snapshot())
	case errors.Is(err, dashboard.ErrSuperseded):
		writeJSON(w, http.StatusAccepted, h.app.Snapshot())
	case errors.Is(err, dashboard.ErrCityNotFound):
		writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND", dashboard.MsgCityNotFound)
	default:
		writeServiceError(w, r, err)
	}
}

// PostThemeToggle handles POST /api/theme/toggle.
func (h *Handler) PostThemeToggle(w http.ResponseWriter, r *http.Request) {
	t := h.app.ToggleTheme(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"theme": string(t)})
}

// ServeWS handles GET /api/ws.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.ws.serve(w, r)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": "healthy"}
	if result.reason == "api_key_invalid" || result.reason == "error_rate_breach" {
		checks["weatherApi"] = "unhealthy"
	}
	if h.healthConfig.StorePing != nil {
		name := "store"
		if h.healthConfig.StoreBackend != "" {
			name = "store:" + h.healthConfig.StoreBackend
		}
		if h.healthConfig.StorePing(r.Context()) == nil {
			checks[name] = "healthy"
		} else {
			checks[name] = "unhealthy"
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "weather-dashboard",
		"version":   "dev",
		"checks":    checks,
		"uptime":    h.state.Uptime().Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates, in order: shutting-down, API key, error rate.
// A failing theme store is reported in checks but does not degrade the
// service; the theme still applies for the session.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if h.state.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if err := h.client.ValidateAPIKey(ctx); err != nil {
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid"}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 &&
		h.app.Tracker().Degraded(h.healthConfig.DegradedWindow, h.healthConfig.DegradedErrorPct) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// writeJSON writes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error":{"code","message","requestId"}}.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError writes a 503 for upstream failures and logs the cause at
// debug; the lookup boundary already logged it at error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", dashboard.MsgFetchFailed)
	observability.LoggerFrom(r.Context(), zap.NewNop()).Debug("upstream error", zap.Error(err))
}
