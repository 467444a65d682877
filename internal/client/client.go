package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// WeatherClient resolves city names and fetches weather for coordinates.
type WeatherClient interface {
	Geocode(ctx context.Context, city string) (models.Location, error)
	GetCurrent(ctx context.Context, lat, lon float64) (models.CurrentConditions, error)
	GetForecast(ctx context.Context, lat, lon float64) ([]models.ForecastSample, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
)

// Endpoint labels used in metrics and errors.
const (
	EndpointGeocode  = "geocode"
	EndpointCurrent  = "current"
	EndpointForecast = "forecast"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
	DefaultGeoURL  = "https://api.openweathermap.org/geo/1.0"
)

// OpenWeatherClient talks to the OpenWeatherMap data and geocoding APIs.
type OpenWeatherClient struct {
	apiKey         string
	baseURL        string
	geoURL         string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.Breaker
}

// NewOpenWeatherClient returns a client that makes a single attempt per call.
func NewOpenWeatherClient(apiKey, baseURL, geoURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	return NewOpenWeatherClientWithRetry(apiKey, baseURL, geoURL, timeout, 1, 100*time.Millisecond, 2*time.Second)
}

func NewOpenWeatherClientWithRetry(apiKey, baseURL, geoURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if geoURL == "" {
		geoURL = DefaultGeoURL
	}
	if retryAttempts <= 0 {
		retryAttempts = 1
	}

	return &OpenWeatherClient{
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		geoURL:         strings.TrimRight(geoURL, "/"),
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetCircuitBreaker guards every upstream call with b. Nil disables it.
func (c *OpenWeatherClient) SetCircuitBreaker(b *circuitbreaker.Breaker) {
	c.breaker = b
}

type geocodeMatch struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
}

type weatherDescriptor struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentResponse struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []weatherDescriptor `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Name string `json:"name"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []weatherDescriptor `json:"weather"`
	} `json:"list"`
}

// Geocode resolves city to the provider's first match. Zero matches yield
// ErrLocationNotFound.
func (c *OpenWeatherClient) Geocode(ctx context.Context, city string) (models.Location, error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("limit", "1")

	var matches []geocodeMatch
	if err := c.get(ctx, EndpointGeocode, c.geoURL+"/direct", params, &matches); err != nil {
		return models.Location{}, err
	}
	if len(matches) == 0 {
		return models.Location{}, fmt.Errorf("%w: %q", ErrLocationNotFound, city)
	}
	m := matches[0]
	return models.Location{Latitude: m.Lat, Longitude: m.Lon, Name: m.Name, Country: m.Country}, nil
}

// GetCurrent fetches current conditions for the coordinates in metric units.
func (c *OpenWeatherClient) GetCurrent(ctx context.Context, lat, lon float64) (models.CurrentConditions, error) {
	var resp currentResponse
	if err := c.get(ctx, EndpointCurrent, c.baseURL+"/weather", coordParams(lat, lon), &resp); err != nil {
		return models.CurrentConditions{}, err
	}
	return mapCurrent(resp), nil
}

// GetForecast fetches the 5-day/3-hour forecast for the coordinates.
// Samples are returned in provider order.
func (c *OpenWeatherClient) GetForecast(ctx context.Context, lat, lon float64) ([]models.ForecastSample, error) {
	var resp forecastResponse
	if err := c.get(ctx, EndpointForecast, c.baseURL+"/forecast", coordParams(lat, lon), &resp); err != nil {
		return nil, err
	}
	samples := make([]models.ForecastSample, 0, len(resp.List))
	for _, item := range resp.List {
		s := models.ForecastSample{Timestamp: item.Dt, Temperature: item.Main.Temp}
		if len(item.Weather) > 0 {
			s.IconCode = item.Weather[0].Icon
			s.Description = item.Weather[0].Description
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func coordParams(lat, lon float64) url.Values {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("units", "metric")
	return params
}

// get performs one logical call with retries and the optional breaker.
func (c *OpenWeatherClient) get(ctx context.Context, endpoint, rawURL string, params url.Values, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.WeatherAPIRetriesTotal.WithLabelValues(endpoint).Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		err := c.guarded(func() error { return c.callAPI(ctx, endpoint, rawURL, params, out) })
		if err == nil {
			return nil
		}
		lastErr = err
		observability.WeatherAPIErrorsTotal.WithLabelValues(endpoint, string(CategorizeError(err))).Inc()
		if !c.isRetryable(err) {
			return err
		}
	}
	if c.retryAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("exhausted retries: %w", lastErr)
}

func (c *OpenWeatherClient) guarded(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	// A bad key or an unknown city says nothing about provider health.
	return c.breaker.Execute(fn, func(err error) bool {
		return errors.Is(err, ErrLocationNotFound) || errors.Is(err, ErrInvalidAPIKey)
	})
}

func (c *OpenWeatherClient) callAPI(ctx context.Context, endpoint, rawURL string, params url.Values, out interface{}) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, rawURL, params)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%s: build request: %w", endpoint, err)
	}

	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.WeatherAPIDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: request timeout: %w", endpoint, err)
		}
		return fmt.Errorf("%s: http request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())

	if err := c.handleErrorResponse(endpoint, resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response body: %w", endpoint, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: parse response: %w", endpoint, err)
	}
	return nil
}

func (c *OpenWeatherClient) isRetryable(err error) bool {
	if err == nil || errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *OpenWeatherClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, rawURL string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("appid", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *OpenWeatherClient) handleErrorResponse(endpoint string, resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", endpoint, ErrInvalidAPIKey)
	case http.StatusNotFound:
		// The geocoder reports no match as an empty list, so a 404 there is
		// an upstream fault rather than an unknown city.
		if endpoint != EndpointGeocode {
			return fmt.Errorf("%s: %w", endpoint, ErrLocationNotFound)
		}
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", endpoint, ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %w: HTTP %d", endpoint, ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func mapCurrent(r currentResponse) models.CurrentConditions {
	cur := models.CurrentConditions{
		Temperature:           r.Main.Temp,
		FeelsLike:             r.Main.FeelsLike,
		Humidity:              r.Main.Humidity,
		PressureHPa:           r.Main.Pressure,
		WindSpeedMetersPerSec: r.Wind.Speed,
		MinTemp:               r.Main.TempMin,
		MaxTemp:               r.Main.TempMax,
		Name:                  r.Name,
		Country:               r.Sys.Country,
		ObservedAt:            time.Now(),
	}
	if r.Dt > 0 {
		cur.ObservedAt = time.Unix(r.Dt, 0)
	}
	if len(r.Weather) > 0 {
		cur.Description = r.Weather[0].Description
		if cur.Description == "" {
			cur.Description = r.Weather[0].Main
		}
		cur.IconCode = r.Weather[0].Icon
	}
	return cur
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey makes a cheap geocoding call and reports ErrInvalidAPIKey on 401.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	params := url.Values{}
	params.Set("q", "London")
	params.Set("limit", "1")
	req, err := c.buildRequest(ctx, c.geoURL+"/direct", params)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}
	return nil
}
