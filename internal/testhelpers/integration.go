//go:build integration
// +build integration

package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
	"github.com/kjstillabower/weather-dashboard/internal/kv"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/theme"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey        string
	BaseURL       string
	GeoURL        string
	StoreBackend  string // "in_memory", "memcached" or "redis"
	MemcachedAddr string
	RedisAddr     string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}
	cfg := IntegrationTestConfig{
		APIKey:        apiKey,
		BaseURL:       envOr("WEATHER_API_URL", client.DefaultBaseURL),
		GeoURL:        envOr("WEATHER_GEO_URL", client.DefaultGeoURL),
		StoreBackend:  envOr("INTEGRATION_STORE_BACKEND", kv.BackendMemory),
		MemcachedAddr: envOr("MEMCACHED_ADDRS", "localhost:11211"),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// SetupIntegrationClient creates a weather client against the live API.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) client.WeatherClient {
	t.Helper()
	c, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.BaseURL, cfg.GeoURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return c
}

// SetupIntegrationStore returns the configured kv backend, falling back to
// memory when the backend is unreachable. Closed via t.Cleanup.
func SetupIntegrationStore(t *testing.T, cfg IntegrationTestConfig) kv.Store {
	t.Helper()
	var s kv.Store
	switch cfg.StoreBackend {
	case kv.BackendMemcached:
		s = kv.NewMemcachedStore(cfg.MemcachedAddr, 500*time.Millisecond, 2)
	case kv.BackendRedis:
		s = kv.NewRedisStore(kv.RedisOptions{Addr: cfg.RedisAddr})
	default:
		return kv.NewMemoryStore()
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Logf("%s not available (%v), using in-memory store", s.Backend(), err)
		_ = s.Close()
		return kv.NewMemoryStore()
	}
	t.Cleanup(func() { _ = s.Close() })
	t.Logf("Using %s store", s.Backend())
	return s
}

// SetupIntegrationApp builds a dashboard App over the live API.
func SetupIntegrationApp(t *testing.T, cfg IntegrationTestConfig) (*dashboard.App, client.WeatherClient) {
	t.Helper()
	logger, err := observability.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	c := SetupIntegrationClient(t, cfg)
	themes := theme.NewStore(SetupIntegrationStore(t, cfg), "integration_theme", logger)
	app := dashboard.New(c, themes, traffic.NewTracker(), logger.With(zap.String("test", t.Name())), dashboard.Config{
		Location: time.UTC,
	})
	t.Cleanup(app.Close)
	return app, c
}
