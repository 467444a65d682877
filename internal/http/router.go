package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
)

// RouterConfig holds the cross-cutting settings applied by NewRouter.
type RouterConfig struct {
	RequestTimeout time.Duration
	Limiter        *rate.Limiter
	Tracker        *traffic.Tracker
	InFlight       *InFlightTracker
	Logger         *zap.Logger
}

// NewRouter wires h behind the standard middleware chain. Lookup routes are
// rate limited and carry a deadline; the WebSocket route carries neither.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	if cfg.InFlight != nil {
		router.Use(cfg.InFlight.Middleware)
	}

	router.HandleFunc("/", h.GetPage).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler())

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)
	api.HandleFunc("/ws", h.ServeWS).Methods(http.MethodGet)

	// Lookup routes live on the root router, after the api subrouter, so a
	// wrong method yields 405 rather than 404.
	lookup := lookupChain(cfg)
	router.Handle("/api/search", lookup(http.HandlerFunc(h.PostSearch))).Methods(http.MethodPost)
	router.Handle("/api/locate", lookup(http.HandlerFunc(h.PostLocate))).Methods(http.MethodPost)
	router.Handle("/api/theme/toggle", lookup(http.HandlerFunc(h.PostThemeToggle))).Methods(http.MethodPost)
	return router
}

// lookupChain wraps a handler in the rate limit and, when configured, the
// request deadline.
func lookupChain(cfg RouterConfig) mux.MiddlewareFunc {
	limit := RateLimitMiddleware(cfg.Limiter, cfg.Tracker)
	return func(next http.Handler) http.Handler {
		if cfg.RequestTimeout > 0 {
			next = TimeoutMiddleware(cfg.RequestTimeout)(next)
		}
		return limit(next)
	}
}
