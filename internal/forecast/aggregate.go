// Package forecast reduces the provider's 3-hourly samples into the daily and
// hourly strips shown on the dashboard.
package forecast

import (
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

const (
	// MaxDays is the number of day summaries displayed.
	MaxDays = 5
	// HourlySlots is the number of samples shown in the hourly strip.
	HourlySlots = 5
)

// Date is a calendar day in the viewer's timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func dateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight of the date in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// DayBucket holds the samples that fall on one local calendar date, in input order.
type DayBucket struct {
	Date    Date
	Samples []models.ForecastSample
}

// GroupByDay partitions samples by their local calendar date in loc.
// Buckets are returned in the order each date was first seen, not sorted.
func GroupByDay(samples []models.ForecastSample, loc *time.Location) []DayBucket {
	if loc == nil {
		loc = time.Local
	}
	var buckets []DayBucket
	index := make(map[Date]int)
	for _, s := range samples {
		d := dateOf(s.Time(loc))
		i, ok := index[d]
		if !ok {
			i = len(buckets)
			index[d] = i
			buckets = append(buckets, DayBucket{Date: d})
		}
		buckets[i].Samples = append(buckets[i].Samples, s)
	}
	return buckets
}

// Summarize groups samples by day and reduces the first MaxDays buckets to
// day summaries.
//
// Index 0 is labelled "Today" and index 1 "Tomorrow" on the assumption that
// the first sample falls on the current day. Near local midnight the
// provider's first sample may already be tomorrow; the labels are not
// checked against the wall clock.
func Summarize(samples []models.ForecastSample, loc *time.Location) []models.DaySummary {
	if loc == nil {
		loc = time.Local
	}
	buckets := GroupByDay(samples, loc)
	if len(buckets) > MaxDays {
		buckets = buckets[:MaxDays]
	}
	out := make([]models.DaySummary, 0, len(buckets))
	for _, b := range buckets {
		lo, hi, ok := tempRange(b.Samples)
		if !ok {
			continue
		}
		date := b.Date.Time(loc)
		out = append(out, models.DaySummary{
			Label:   DayLabel(len(out), date),
			Date:    date,
			Icon:    RepresentativeIcon(b.Samples),
			MinTemp: lo,
			MaxTemp: hi,
		})
	}
	return out
}

// DayLabel names the day at position index of the daily strip.
func DayLabel(index int, date time.Time) string {
	switch index {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	default:
		return date.Weekday().String()
	}
}

// RepresentativeIcon returns the most frequent icon code among samples.
// Ties go to the code seen first. Returns "" for no samples.
func RepresentativeIcon(samples []models.ForecastSample) string {
	counts := make(map[string]int, len(samples))
	var order []string
	for _, s := range samples {
		if _, seen := counts[s.IconCode]; !seen {
			order = append(order, s.IconCode)
		}
		counts[s.IconCode]++
	}
	best := ""
	bestCount := 0
	for _, code := range order {
		if counts[code] > bestCount {
			best = code
			bestCount = counts[code]
		}
	}
	return best
}

func tempRange(samples []models.ForecastSample) (lo, hi float64, ok bool) {
	if len(samples) == 0 {
		return 0, 0, false
	}
	lo, hi = samples[0].Temperature, samples[0].Temperature
	for _, s := range samples[1:] {
		if s.Temperature < lo {
			lo = s.Temperature
		}
		if s.Temperature > hi {
			hi = s.Temperature
		}
	}
	return lo, hi, true
}
