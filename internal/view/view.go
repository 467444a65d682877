// Package view turns fetched weather data into display-ready strings.
// Build is pure; binding the Model to a page or socket is the caller's job.
package view

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/sixdouglas/suncalc"
)

// DefaultIconURLTemplate is the provider icon URL; {icon} is replaced by the code.
const DefaultIconURLTemplate = "https://openweathermap.org/img/wn/{icon}@2x.png"

// Input is everything Build needs.
type Input struct {
	Location models.Location
	Current  models.CurrentConditions
	Days     []models.DaySummary
	Hours    []models.HourSlot

	// IconURLTemplate defaults to DefaultIconURLTemplate.
	IconURLTemplate string
	// Loc is the viewer's timezone for sun times; nil means time.Local.
	Loc *time.Location
	// Date selects the day for sunrise/sunset; zero means Current.ObservedAt.
	Date time.Time
}

// Model is the rendered dashboard.
type Model struct {
	Location    string `json:"location"`
	Temperature string `json:"temperature"`
	FeelsLike   string `json:"feelsLike"`
	Description string `json:"description"`
	IconURL     string `json:"iconUrl"`
	High        string `json:"high"`
	Low         string `json:"low"`
	Humidity    string `json:"humidity"`
	Pressure    string `json:"pressure"`
	Wind        string `json:"wind"`
	Sunrise     string `json:"sunrise"`
	Sunset      string `json:"sunset"`

	Condition  string `json:"condition"`
	Background string `json:"background"`

	Hourly []HourItem `json:"hourly"`
	Daily  []DayItem  `json:"daily"`
}

// HourItem is one cell of the hourly strip.
type HourItem struct {
	Label       string `json:"label"`
	IconURL     string `json:"iconUrl"`
	Temperature string `json:"temperature"`
}

// DayItem is one row of the daily strip.
type DayItem struct {
	Label   string `json:"label"`
	IconURL string `json:"iconUrl"`
	High    string `json:"high"`
	Low     string `json:"low"`
}

// Build maps in to a Model.
func Build(in Input) Model {
	tmpl := in.IconURLTemplate
	if tmpl == "" {
		tmpl = DefaultIconURLTemplate
	}
	loc := in.Loc
	if loc == nil {
		loc = time.Local
	}
	c := in.Current

	m := Model{
		Location:    in.Location.DisplayName(),
		Temperature: strconv.Itoa(Round(c.Temperature)),
		FeelsLike:   degrees(c.FeelsLike),
		Description: c.Description,
		IconURL:     IconURL(tmpl, c.IconCode),
		High:        "H:" + degrees(c.MaxTemp),
		Low:         "L:" + degrees(c.MinTemp),
		Humidity:    strconv.Itoa(c.Humidity) + "%",
		Pressure:    strconv.Itoa(c.PressureHPa) + " hPa",
		Wind:        strconv.Itoa(Round(c.WindSpeedMetersPerSec*3.6)) + " km/h",
		Condition:   ConditionClass(c.IconCode),
		Background:  Gradient(c.IconCode),
		Hourly:      make([]HourItem, 0, len(in.Hours)),
		Daily:       make([]DayItem, 0, len(in.Days)),
	}

	day := in.Date
	if day.IsZero() {
		day = c.ObservedAt
	}
	if !day.IsZero() {
		m.Sunrise, m.Sunset = sunTimes(day, in.Location.Latitude, in.Location.Longitude, loc)
	}

	for _, h := range in.Hours {
		m.Hourly = append(m.Hourly, HourItem{
			Label:       h.Label,
			IconURL:     IconURL(tmpl, h.Icon),
			Temperature: degrees(h.Temperature),
		})
	}
	for _, d := range in.Days {
		m.Daily = append(m.Daily, DayItem{
			Label:   d.Label,
			IconURL: IconURL(tmpl, d.Icon),
			High:    degrees(d.MaxTemp),
			Low:     degrees(d.MinTemp),
		})
	}
	return m
}

// Round rounds half-up to the nearest integer, so -2.5 becomes -2.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

func degrees(x float64) string {
	return strconv.Itoa(Round(x)) + "°"
}

// IconURL substitutes code into tmpl.
func IconURL(tmpl, code string) string {
	return strings.ReplaceAll(tmpl, "{icon}", code)
}

// sunTimes returns local sunrise and sunset for the day of t, or "--" when
// the sun does not rise or set (polar day/night).
func sunTimes(t time.Time, lat, lon float64, loc *time.Location) (string, string) {
	times := suncalc.GetTimes(t, lat, lon)
	format := func(v time.Time) string {
		if v.IsZero() {
			return "--"
		}
		return v.In(loc).Format("3:04 PM")
	}
	return format(times["sunrise"].Value), format(times["sunset"].Value)
}
