package models

import (
	"strconv"
	"time"
)

// Theme is the dashboard colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Opposite returns the other theme.
func (t Theme) Opposite() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Location is a resolved place. Produced by geolocation or geocoding and
// consumed once per weather fetch.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
	Country   string  `json:"country,omitempty"`
}

// DisplayName returns "Name, CC", or just the name when the country is unknown.
func (l Location) DisplayName() string {
	switch {
	case l.Name == "":
		return strconv.FormatFloat(l.Latitude, 'f', 2, 64) + ", " + strconv.FormatFloat(l.Longitude, 'f', 2, 64)
	case l.Country == "":
		return l.Name
	default:
		return l.Name + ", " + l.Country
	}
}

// CurrentConditions is the current-conditions payload, metric units.
type CurrentConditions struct {
	Temperature           float64   `json:"temperature"`
	FeelsLike             float64   `json:"feelsLike"`
	Humidity              int       `json:"humidity"`
	PressureHPa           int       `json:"pressureHPa"`
	WindSpeedMetersPerSec float64   `json:"windSpeed"`
	MinTemp               float64   `json:"minTemp"`
	MaxTemp               float64   `json:"maxTemp"`
	Description           string    `json:"description"`
	IconCode              string    `json:"iconCode"`
	Name                  string    `json:"name"`
	Country               string    `json:"country,omitempty"`
	ObservedAt            time.Time `json:"observedAt"`
}

// ForecastSample is one 3-hour forecast slot as returned by the provider.
type ForecastSample struct {
	Timestamp   int64   `json:"dt"` // unix seconds
	Temperature float64 `json:"temperature"`
	IconCode    string  `json:"iconCode"`
	Description string  `json:"description,omitempty"`
}

// Time returns the sample timestamp in loc.
func (s ForecastSample) Time(loc *time.Location) time.Time {
	return time.Unix(s.Timestamp, 0).In(loc)
}

// DaySummary is one entry of the daily strip.
type DaySummary struct {
	Label   string    `json:"label"`
	Date    time.Time `json:"date"`
	Icon    string    `json:"icon"`
	MinTemp float64   `json:"minTemp"`
	MaxTemp float64   `json:"maxTemp"`
}

// HourSlot is one entry of the hourly strip.
type HourSlot struct {
	Label       string    `json:"label"`
	Time        time.Time `json:"time"`
	Icon        string    `json:"icon"`
	Temperature float64   `json:"temperature"`
}
