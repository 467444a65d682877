package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/clock"
	"github.com/kjstillabower/weather-dashboard/internal/config"
	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
	httphandler "github.com/kjstillabower/weather-dashboard/internal/http"
	"github.com/kjstillabower/weather-dashboard/internal/kv"
	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/theme"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient, err := client.NewOpenWeatherClientWithRetry(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIBaseURL,
		cfg.WeatherGeoURL,
		cfg.WeatherAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	if cfg.CircuitBreakerEnabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			OpenTimeout:      cfg.CircuitBreakerTimeout,
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition(from.String(), to.String(), int(to))
				logger.Warn("circuit breaker transition", zap.String("from", from.String()), zap.String("to", to.String()))
			},
		})
		weatherClient.SetCircuitBreaker(cb)
		logger.Info("circuit breaker enabled", zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold), zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	store := newStore(cfg)
	logger.Info("theme backend", zap.String("backend", store.Backend()))
	themes := theme.NewStore(store, cfg.ThemeKey, logger)

	tracker := traffic.NewTracker()
	state := lifecycle.New()
	observability.RegisterUptimeGauge(func() float64 { return state.Uptime().Seconds() })

	app := dashboard.New(weatherClient, themes, tracker, logger, dashboard.Config{
		DefaultCity:     cfg.DefaultCity,
		Location:        cfg.Timezone,
		ToastDuration:   cfg.ToastDuration,
		IconURLTemplate: cfg.IconURLTemplate,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := &clock.Clock{Interval: cfg.ClockInterval, Location: cfg.Timezone, Sink: app.SetTime}
	go clk.Run(ctx)

	if cfg.RefreshInterval > 0 {
		go func() {
			if err := app.RunRefresh(ctx, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("periodic refresh stopped", zap.Error(err))
			}
		}()
	}

	healthConfig := httphandler.HealthConfig{
		DegradedWindow:   cfg.HealthWindow,
		DegradedErrorPct: cfg.HealthDegradedErrorPct,
		StoreBackend:     store.Backend(),
	}
	if store.Backend() != kv.BackendMemory {
		healthConfig.StorePing = store.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	inFlight := &httphandler.InFlightTracker{}
	handler := httphandler.NewHandler(app, weatherClient, state, healthConfig, logger)
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
		Tracker:        tracker,
		InFlight:       inFlight,
		Logger:         logger,
	})

	// No WriteTimeout: WebSocket connections are long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	state.SetShuttingDown(true)
	// Closing the app ends every WebSocket stream so Shutdown does not wait on them.
	app.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := inFlight.WaitForZero(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	if err := store.Close(); err != nil {
		logger.Error("theme store close", zap.Error(err))
	}
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newStore builds the theme persistence backend named by cfg.StoreBackend.
func newStore(cfg *config.Config) kv.Store {
	switch cfg.StoreBackend {
	case kv.BackendMemcached:
		return kv.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
	case kv.BackendRedis:
		return kv.NewRedisStore(kv.RedisOptions{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  cfg.MemcachedTimeout,
			ReadTimeout:  cfg.MemcachedTimeout,
			WriteTimeout: cfg.MemcachedTimeout,
		})
	default:
		return kv.NewMemoryStore()
	}
}
