// Package dashboard is the application controller. It resolves a location,
// fetches current conditions and forecast, builds the view model and keeps
// the single Screen that every connected page renders.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/forecast"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/theme"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
	"github.com/kjstillabower/weather-dashboard/internal/view"
)

var (
	// ErrCityNotFound means the geocoder returned no match.
	ErrCityNotFound = errors.New("city not found")
	// ErrFetchFailed wraps every other lookup failure.
	ErrFetchFailed = errors.New("unable to fetch weather data")
	// ErrSuperseded means a newer lookup was issued before this one
	// finished; its result was discarded.
	ErrSuperseded = errors.New("lookup superseded")
)

// Lookup kinds, used as metric labels.
const (
	KindSearch  = "search"
	KindCoords  = "coords"
	KindDefault = "default"
	KindRefresh = "refresh"
)

// Defaults for Config zero values.
const (
	DefaultCity          = "New York"
	DefaultToastDuration = 3 * time.Second
)

// Config holds App settings.
type Config struct {
	DefaultCity     string
	Location        *time.Location
	ToastDuration   time.Duration
	IconURLTemplate string
}

// Coordinates is a geolocation fix.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// App owns the dashboard state. Build one in main and share it.
type App struct {
	client  client.WeatherClient
	themes  *theme.Store
	tracker *traffic.Tracker
	logger  *zap.Logger
	cfg     Config
	now     func() time.Time

	mu         sync.Mutex
	screen     Screen
	latest     uint64
	inFlight   int
	toastSeq   uint64
	toastTimer *time.Timer
	last       *models.Location
	subs       map[chan Screen]struct{}
}

// New creates an App. tracker may be nil.
func New(c client.WeatherClient, themes *theme.Store, tracker *traffic.Tracker, logger *zap.Logger, cfg Config) *App {
	if cfg.DefaultCity == "" {
		cfg.DefaultCity = DefaultCity
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ToastDuration <= 0 {
		cfg.ToastDuration = DefaultToastDuration
	}
	if cfg.IconURLTemplate == "" {
		cfg.IconURLTemplate = view.DefaultIconURLTemplate
	}
	if tracker == nil {
		tracker = traffic.NewTracker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		client:  c,
		themes:  themes,
		tracker: tracker,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		screen:  Screen{Status: StatusIdle, Theme: themes.Current()},
		subs:    make(map[chan Screen]struct{}),
	}
}

// Snapshot returns the current screen.
func (a *App) Snapshot() Screen {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

// Start performs the initial lookup. A nil or invalid fix (geolocation
// denied or unavailable) falls back to the default city without a toast.
func (a *App) Start(ctx context.Context, fix *Coordinates) error {
	logger := observability.LoggerFrom(ctx, a.logger)
	if fix != nil {
		if err := validation.ValidateCoordinates(fix.Latitude, fix.Longitude); err == nil {
			return a.LookupCoords(ctx, fix.Latitude, fix.Longitude)
		}
		logger.Info("ignoring invalid geolocation fix", zap.Float64("lat", fix.Latitude), zap.Float64("lon", fix.Longitude))
	}
	logger.Info("geolocation unavailable, using default city", zap.String("city", a.cfg.DefaultCity))
	return a.run(ctx, KindDefault, a.geocodeResolver(a.cfg.DefaultCity))
}

// SearchCity geocodes city and shows its weather. Input that cannot name a
// place fails as not found without a geocoder call, so it still raises the
// usual toast.
func (a *App) SearchCity(ctx context.Context, city string) error {
	name, err := validation.ValidateCity(city)
	if err != nil {
		return a.run(ctx, KindSearch, func(context.Context) (models.Location, error) {
			return models.Location{}, fmt.Errorf("%w: %w", ErrCityNotFound, err)
		})
	}
	return a.run(ctx, KindSearch, a.geocodeResolver(name))
}

// LookupCoords shows the weather at a coordinate pair. The display name comes
// from the current-conditions response.
func (a *App) LookupCoords(ctx context.Context, lat, lon float64) error {
	return a.run(ctx, KindCoords, func(context.Context) (models.Location, error) {
		return models.Location{Latitude: lat, Longitude: lon}, nil
	})
}

// Refresh repeats the last successful lookup. It is a no-op before the first
// success.
func (a *App) Refresh(ctx context.Context) error {
	a.mu.Lock()
	last := a.last
	a.mu.Unlock()
	if last == nil {
		return nil
	}
	loc := *last
	return a.run(ctx, KindRefresh, func(context.Context) (models.Location, error) {
		return loc, nil
	})
}

// RunRefresh calls Refresh every interval until ctx is done.
func (a *App) RunRefresh(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
				a.logger.Warn("periodic refresh failed", zap.Error(err))
			}
		}
	}
}

func (a *App) geocodeResolver(city string) func(context.Context) (models.Location, error) {
	return func(ctx context.Context) (models.Location, error) {
		loc, err := a.client.Geocode(ctx, city)
		if err != nil {
			if errors.Is(err, client.ErrLocationNotFound) {
				return models.Location{}, fmt.Errorf("%w: %q", ErrCityNotFound, city)
			}
			return models.Location{}, fmt.Errorf("%w: geocode: %w", ErrFetchFailed, err)
		}
		return loc, nil
	}
}

// run executes one lookup under a fresh sequence number.
func (a *App) run(ctx context.Context, kind string, resolve func(context.Context) (models.Location, error)) error {
	seq := a.begin()
	logger := observability.LoggerFrom(ctx, a.logger).With(zap.String("kind", kind), zap.Uint64("seq", seq))

	model, loc, err := a.lookup(ctx, resolve)
	applied := a.finish(seq, kind, model, loc, err)

	switch {
	case !applied:
		observability.LookupsSupersededTotal.Inc()
		observability.LookupsTotal.WithLabelValues(kind, "superseded").Inc()
		logger.Debug("discarding superseded lookup", zap.Error(err))
		return ErrSuperseded
	case errors.Is(err, ErrCityNotFound):
		// A user outcome, not an upstream fault.
		a.tracker.RecordSuccess()
		observability.LookupsTotal.WithLabelValues(kind, "not_found").Inc()
		logger.Info("city not found", zap.Error(err))
	case err != nil:
		a.tracker.RecordError()
		observability.LookupsTotal.WithLabelValues(kind, "error").Inc()
		logger.Error("lookup failed", zap.Error(err), zap.String("category", string(client.CategorizeError(err))))
	default:
		a.tracker.RecordSuccess()
		observability.LookupsTotal.WithLabelValues(kind, "success").Inc()
		logger.Info("lookup rendered", zap.String("location", loc.DisplayName()))
	}
	return err
}

// lookup resolves the location and fetches both datasets. It touches no
// shared state.
func (a *App) lookup(ctx context.Context, resolve func(context.Context) (models.Location, error)) (*view.Model, models.Location, error) {
	loc, err := resolve(ctx)
	if err != nil {
		return nil, models.Location{}, err
	}
	cur, samples, err := a.fetch(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return nil, loc, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if loc.Name == "" {
		loc.Name, loc.Country = cur.Name, cur.Country
	}
	m := view.Build(view.Input{
		Location:        loc,
		Current:         cur,
		Days:            forecast.Summarize(samples, a.cfg.Location),
		Hours:           forecast.Hourly(samples, a.cfg.Location),
		IconURLTemplate: a.cfg.IconURLTemplate,
		Loc:             a.cfg.Location,
		Date:            a.now(),
	})
	return &m, loc, nil
}

// fetch requests current conditions and forecast concurrently. The first
// failure cancels the other call.
func (a *App) fetch(ctx context.Context, lat, lon float64) (models.CurrentConditions, []models.ForecastSample, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		cur      models.CurrentConditions
		samples  []models.ForecastSample
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		c, err := a.client.GetCurrent(ctx, lat, lon)
		if err != nil {
			fail(fmt.Errorf("current conditions: %w", err))
			return
		}
		cur = c
	}()
	go func() {
		defer wg.Done()
		s, err := a.client.GetForecast(ctx, lat, lon)
		if err != nil {
			fail(fmt.Errorf("forecast: %w", err))
			return
		}
		samples = s
	}()
	wg.Wait()

	if firstErr != nil {
		return models.CurrentConditions{}, nil, firstErr
	}
	return cur, samples, nil
}

// begin issues the next sequence number and raises the loading flag.
func (a *App) begin() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latest++
	a.inFlight++
	a.screen.Seq = a.latest
	a.screen.Loading = true
	a.screen.Status = StatusLoading
	a.publishLocked()
	return a.latest
}

// finish lowers the in-flight count and, if seq is still the latest, applies
// the result or raises the failure toast. It reports whether seq was applied.
// Previously rendered data stays on screen after a failure.
func (a *App) finish(seq uint64, kind string, m *view.Model, loc models.Location, err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight--
	a.screen.Loading = a.inFlight > 0
	applied := seq == a.latest
	if applied {
		a.screen.UpdatedAt = a.now()
		if err != nil {
			a.screen.Status = StatusFailed
			if errors.Is(err, ErrCityNotFound) {
				a.showToastLocked(ToastCityNotFound, MsgCityNotFound)
			} else {
				a.showToastLocked(ToastFetchFailed, MsgFetchFailed)
			}
		} else {
			a.screen.Status = StatusSuccess
			a.screen.View = m
			l := loc
			a.last = &l
		}
	}
	a.publishLocked()
	return applied
}

// showToastLocked replaces any visible toast and schedules its dismissal.
func (a *App) showToastLocked(kind, msg string) {
	a.toastSeq++
	id := a.toastSeq
	a.screen.Toast = &Toast{ID: id, Kind: kind, Message: msg}
	observability.ToastsTotal.WithLabelValues(kind).Inc()

	if a.toastTimer != nil {
		a.toastTimer.Stop()
	}
	a.toastTimer = time.AfterFunc(a.cfg.ToastDuration, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.screen.Toast != nil && a.screen.Toast.ID == id {
			a.screen.Toast = nil
			a.publishLocked()
		}
	})
}

// SetTime is the clock's display sink. Unchanged values are not published.
func (a *App) SetTime(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.screen.Time == s {
		return
	}
	a.screen.Time = s
	a.publishLocked()
}

// InitTheme applies the stored theme or the viewer's OS preference.
func (a *App) InitTheme(ctx context.Context, prefersDark bool) models.Theme {
	t := a.themes.Initialize(ctx, prefersDark)
	a.setTheme(t)
	return t
}

// ToggleTheme flips and persists the theme. A persistence error is logged;
// the new theme is applied regardless.
func (a *App) ToggleTheme(ctx context.Context) models.Theme {
	t, err := a.themes.Toggle(ctx)
	if err != nil {
		observability.LoggerFrom(ctx, a.logger).Warn("theme not persisted", zap.String("theme", string(t)), zap.Error(err))
	}
	a.setTheme(t)
	return t
}

func (a *App) setTheme(t models.Theme) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.screen.Theme = t
	a.publishLocked()
}

// Tracker exposes the outcome tracker for health reporting.
func (a *App) Tracker() *traffic.Tracker {
	return a.tracker
}

// Close stops the pending toast timer and closes all subscriptions.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.toastTimer != nil {
		a.toastTimer.Stop()
	}
	for ch := range a.subs {
		delete(a.subs, ch)
		close(ch)
	}
}

// UserMessage maps a lookup error to the toast text shown for it.
func UserMessage(err error) string {
	if errors.Is(err, ErrCityNotFound) {
		return MsgCityNotFound
	}
	return MsgFetchFailed
}
