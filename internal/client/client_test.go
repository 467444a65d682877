package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

const testKey = "test-api-key-12345"

// newTestClient points both the data and geocoding base URLs at server.
func newTestClient(t *testing.T, server *httptest.Server) *OpenWeatherClient {
	t.Helper()
	c, err := NewOpenWeatherClient(testKey, server.URL+"/data/2.5", server.URL+"/geo/1.0", 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return c
}

func writeJSONBody(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewOpenWeatherClient_InvalidAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr error
	}{
		{"empty API key", "", ErrInvalidAPIKey},
		{"too short API key", "short", ErrInvalidAPIKey},
		{"valid API key", testKey, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewOpenWeatherClient(tt.apiKey, "", "", 2*time.Second)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewOpenWeatherClient() error = %v, want %v", err, tt.wantErr)
				}
				if c != nil {
					t.Errorf("NewOpenWeatherClient() expected nil client on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewOpenWeatherClient() unexpected error: %v", err)
			}
			if c.baseURL != DefaultBaseURL || c.geoURL != DefaultGeoURL {
				t.Errorf("default URLs = %q, %q", c.baseURL, c.geoURL)
			}
		})
	}
}

func TestOpenWeatherClient_Geocode_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geo/1.0/direct" {
			t.Errorf("path = %s, want /geo/1.0/direct", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "São Paulo" || q.Get("limit") != "1" || q.Get("appid") != testKey {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		writeJSONBody(w, []map[string]interface{}{
			{"name": "São Paulo", "lat": -23.55, "lon": -46.63, "country": "BR"},
		})
	}))
	defer server.Close()

	loc, err := newTestClient(t, server).Geocode(context.Background(), "São Paulo")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if loc.Name != "São Paulo" || loc.Country != "BR" || loc.Latitude != -23.55 || loc.Longitude != -46.63 {
		t.Errorf("Geocode() = %+v", loc)
	}
	if loc.DisplayName() != "São Paulo, BR" {
		t.Errorf("DisplayName() = %q", loc.DisplayName())
	}
}

// TestOpenWeatherClient_Geocode_NoMatches verifies that an empty match list is
// reported as ErrLocationNotFound.
func TestOpenWeatherClient_Geocode_NoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, []interface{}{})
	}))
	defer server.Close()

	_, err := newTestClient(t, server).Geocode(context.Background(), "Zzzqx")
	if !errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("Geocode() error = %v, want ErrLocationNotFound", err)
	}
}

// TestOpenWeatherClient_Geocode_HTTPError verifies non-success statuses from
// the geocoder, 404 included, are upstream failures and not "not found".
func TestOpenWeatherClient_Geocode_HTTPError(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusBadRequest} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		_, err := newTestClient(t, server).Geocode(context.Background(), "London")
		server.Close()
		if !errors.Is(err, ErrUpstreamFailure) || errors.Is(err, ErrLocationNotFound) {
			t.Errorf("Geocode() on HTTP %d error = %v, want ErrUpstreamFailure", code, err)
		}
	}
}

func TestOpenWeatherClient_GetCurrent_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("lat") != "47.6" || q.Get("lon") != "-122.33" || q.Get("units") != "metric" || q.Get("appid") == "" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Correlation-ID") != "corr-1" {
			t.Errorf("X-Correlation-ID = %q, want corr-1", r.Header.Get("X-Correlation-ID"))
		}
		writeJSONBody(w, map[string]interface{}{
			"dt":   1792400000,
			"name": "Seattle",
			"sys":  map[string]interface{}{"country": "US"},
			"main": map[string]interface{}{
				"temp": 15.5, "feels_like": 14.9, "temp_min": 12.1, "temp_max": 17.8,
				"pressure": 1013, "humidity": 65,
			},
			"weather": []map[string]interface{}{
				{"main": "Clouds", "description": "scattered clouds", "icon": "03d"},
			},
			"wind": map[string]interface{}{"speed": 3.2},
		})
	}))
	defer server.Close()

	ctx := observability.WithCorrelationID(context.Background(), "corr-1")
	got, err := newTestClient(t, server).GetCurrent(ctx, 47.6, -122.33)
	if err != nil {
		t.Fatalf("GetCurrent() error = %v", err)
	}
	if got.Temperature != 15.5 || got.MinTemp != 12.1 || got.MaxTemp != 17.8 {
		t.Errorf("temperatures = %+v", got)
	}
	if got.Humidity != 65 || got.PressureHPa != 1013 || got.WindSpeedMetersPerSec != 3.2 {
		t.Errorf("humidity/pressure/wind = %+v", got)
	}
	if got.Description != "scattered clouds" || got.IconCode != "03d" {
		t.Errorf("descriptor = %q/%q", got.Description, got.IconCode)
	}
	if got.Name != "Seattle" || got.Country != "US" {
		t.Errorf("name = %q, %q", got.Name, got.Country)
	}
	if !got.ObservedAt.Equal(time.Unix(1792400000, 0)) {
		t.Errorf("ObservedAt = %v", got.ObservedAt)
	}
}

func TestOpenWeatherClient_GetForecast_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/forecast" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeJSONBody(w, map[string]interface{}{
			"list": []map[string]interface{}{
				{"dt": 100, "main": map[string]interface{}{"temp": 10.0}, "weather": []map[string]interface{}{{"icon": "01d", "description": "clear sky"}}},
				{"dt": 200, "main": map[string]interface{}{"temp": 11.5}, "weather": []map[string]interface{}{{"icon": "02n"}}},
				{"dt": 300, "main": map[string]interface{}{"temp": 9.0}, "weather": []map[string]interface{}{}},
			},
		})
	}))
	defer server.Close()

	samples, err := newTestClient(t, server).GetForecast(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("len(samples) = %d, want 3", len(samples))
	}
	if samples[0].Timestamp != 100 || samples[0].IconCode != "01d" || samples[0].Description != "clear sky" {
		t.Errorf("samples[0] = %+v", samples[0])
	}
	if samples[1].Temperature != 11.5 || samples[1].IconCode != "02n" {
		t.Errorf("samples[1] = %+v", samples[1])
	}
	if samples[2].IconCode != "" {
		t.Errorf("samples[2].IconCode = %q, want empty", samples[2].IconCode)
	}
}

func TestOpenWeatherClient_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"401 unauthorized", http.StatusUnauthorized, ErrInvalidAPIKey},
		{"404 not found", http.StatusNotFound, ErrLocationNotFound},
		{"429 rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"500 server error", http.StatusInternalServerError, ErrUpstreamFailure},
		{"502 bad gateway", http.StatusBadGateway, ErrUpstreamFailure},
		{"418 unexpected", http.StatusTeapot, ErrUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			_, err := newTestClient(t, server).GetCurrent(context.Background(), 1, 2)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GetCurrent() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestOpenWeatherClient_SingleAttemptByDefault verifies that the default
// client never retries, even on retryable statuses.
func TestOpenWeatherClient_SingleAttemptByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).GetForecast(context.Background(), 1, 2)
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("GetForecast() error = %v, want ErrUpstreamFailure", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

// TestOpenWeatherClient_RetryRecovers verifies that an opted-in retry policy
// retries 5xx and returns the eventual success.
func TestOpenWeatherClient_RetryRecovers(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSONBody(w, []map[string]interface{}{{"name": "Oslo", "lat": 59.9, "lon": 10.7, "country": "NO"}})
	}))
	defer server.Close()

	c, err := NewOpenWeatherClientWithRetry(testKey, server.URL, server.URL, 2*time.Second, 3, time.Millisecond, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewOpenWeatherClientWithRetry() error = %v", err)
	}
	loc, err := c.Geocode(context.Background(), "Oslo")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if loc.Name != "Oslo" || calls.Load() != 3 {
		t.Errorf("Geocode() = %+v after %d calls", loc, calls.Load())
	}
}

// TestOpenWeatherClient_RetryDoesNotRepeatClientErrors verifies that 401 is final.
func TestOpenWeatherClient_RetryDoesNotRepeatClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c, _ := NewOpenWeatherClientWithRetry(testKey, server.URL, server.URL, 2*time.Second, 3, time.Millisecond, 5*time.Millisecond)
	if _, err := c.GetCurrent(context.Background(), 1, 2); !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("GetCurrent() error = %v, want ErrInvalidAPIKey", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

// TestOpenWeatherClient_CircuitBreaker verifies that repeated upstream failures
// open the breaker and short-circuit further calls.
func TestOpenWeatherClient_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	c.SetCircuitBreaker(circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2, OpenTimeout: time.Hour}))

	for i := 0; i < 2; i++ {
		if _, err := c.GetCurrent(context.Background(), 1, 2); !errors.Is(err, ErrUpstreamFailure) {
			t.Fatalf("call %d error = %v, want ErrUpstreamFailure", i, err)
		}
	}
	if _, err := c.GetCurrent(context.Background(), 1, 2); !errors.Is(err, circuitbreaker.ErrOpen) {
		t.Fatalf("GetCurrent() error = %v, want ErrOpen", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

// TestOpenWeatherClient_Timeout verifies that a slow upstream surfaces as a
// timeout rather than hanging.
func TestOpenWeatherClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c, _ := NewOpenWeatherClient(testKey, server.URL, server.URL, 50*time.Millisecond)
	_, err := c.GetForecast(context.Background(), 1, 2)
	if err == nil {
		t.Fatal("GetForecast() expected timeout error")
	}
	if cat := CategorizeError(err); cat != ErrorCategoryTimeout {
		t.Errorf("CategorizeError() = %v, want timeout (err=%v)", cat, err)
	}
}

func TestOpenWeatherClient_ValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
		ok      bool
	}{
		{"valid", http.StatusOK, nil, true},
		{"unauthorized", http.StatusUnauthorized, ErrInvalidAPIKey, false},
		{"server error", http.StatusInternalServerError, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("[]"))
			}))
			defer server.Close()

			err := newTestClient(t, server).ValidateAPIKey(context.Background())
			if tt.ok {
				if err != nil {
					t.Errorf("ValidateAPIKey() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateAPIKey() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAPIKey() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
