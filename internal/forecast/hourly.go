package forecast

import (
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// Hourly takes the first HourlySlots samples verbatim. The first slot is
// labelled "Now", the rest with the 12-hour local hour ("3 PM").
func Hourly(samples []models.ForecastSample, loc *time.Location) []models.HourSlot {
	if loc == nil {
		loc = time.Local
	}
	n := len(samples)
	if n > HourlySlots {
		n = HourlySlots
	}
	out := make([]models.HourSlot, 0, n)
	for i, s := range samples[:n] {
		t := s.Time(loc)
		label := "Now"
		if i > 0 {
			label = t.Format("3 PM")
		}
		out = append(out, models.HourSlot{
			Label:       label,
			Time:        t,
			Icon:        s.IconCode,
			Temperature: s.Temperature,
		})
	}
	return out
}
