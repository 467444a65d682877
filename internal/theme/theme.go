// Package theme resolves and persists the dashboard colour theme.
//
// Precedence is stored choice, then the OS dark-mode signal, then light.
package theme

import (
	"context"
	"sync"

	"github.com/kjstillabower/weather-dashboard/internal/kv"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"go.uber.org/zap"
)

// DefaultKey is the storage key for the persisted theme.
const DefaultKey = "weather_theme"

// Store holds the applied theme and writes explicit choices through to kv.
type Store struct {
	kv     kv.Store
	key    string
	logger *zap.Logger

	mu      sync.RWMutex
	current models.Theme
}

// NewStore creates a Store on top of backend. An empty key uses DefaultKey.
func NewStore(backend kv.Store, key string, logger *zap.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: backend, key: key, logger: logger, current: models.ThemeLight}
}

// Initialize applies the stored theme, or the OS preference when nothing
// valid is stored. A backend read error is logged and treated as a miss.
func (s *Store) Initialize(ctx context.Context, prefersDark bool) models.Theme {
	t := s.Resolve(ctx, prefersDark)
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
	return t
}

// Resolve returns the theme a viewer with the given OS preference should see
// without changing the applied theme.
func (s *Store) Resolve(ctx context.Context, prefersDark bool) models.Theme {
	if t, ok := s.stored(ctx); ok {
		return t
	}
	if prefersDark {
		return models.ThemeDark
	}
	return models.ThemeLight
}

func (s *Store) stored(ctx context.Context) (models.Theme, bool) {
	v, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		observability.KVErrorsTotal.WithLabelValues(s.kv.Backend(), "get").Inc()
		s.logger.Warn("theme read failed", zap.String("backend", s.kv.Backend()), zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	t := models.Theme(v)
	if !t.Valid() {
		s.logger.Warn("ignoring invalid stored theme", zap.String("value", v))
		return "", false
	}
	return t, true
}

// Current returns the applied theme.
func (s *Store) Current() models.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Toggle flips the applied theme and persists the new value. The applied
// theme changes even if the write fails; the error is returned for logging.
func (s *Store) Toggle(ctx context.Context) (models.Theme, error) {
	s.mu.Lock()
	next := s.current.Opposite()
	s.current = next
	s.mu.Unlock()

	observability.ThemeTogglesTotal.WithLabelValues(string(next)).Inc()
	if err := s.kv.Set(ctx, s.key, string(next)); err != nil {
		observability.KVErrorsTotal.WithLabelValues(s.kv.Backend(), "set").Inc()
		return next, err
	}
	return next, nil
}
