package forecast

import (
	"testing"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

func TestHourly_LengthAndLabels(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 8, 40} {
		samples := samplesEvery3h(mondayMidnight.Add(15*time.Hour), n, func(i int) float64 { return float64(i) }, constIcon("03d"))

		slots := Hourly(samples, time.UTC)

		want := n
		if want > HourlySlots {
			want = HourlySlots
		}
		if len(slots) != want {
			t.Fatalf("n=%d: len(slots) = %d, want %d", n, len(slots), want)
		}
		if n > 0 && slots[0].Label != "Now" {
			t.Errorf("n=%d: slots[0].Label = %q, want Now", n, slots[0].Label)
		}
	}
}

func TestHourly_FormatsLocalHour(t *testing.T) {
	samples := samplesEvery3h(mondayMidnight.Add(9*time.Hour), 5, func(i int) float64 { return 20 + float64(i) }, constIcon("01d"))

	slots := Hourly(samples, time.UTC)

	want := []string{"Now", "12 PM", "3 PM", "6 PM", "9 PM"}
	for i, s := range slots {
		if s.Label != want[i] {
			t.Errorf("slots[%d].Label = %q, want %q", i, s.Label, want[i])
		}
		if s.Temperature != samples[i].Temperature || s.Icon != samples[i].IconCode {
			t.Errorf("slots[%d] = %+v, not taken verbatim from %+v", i, s, samples[i])
		}
	}
}

func TestHourly_ViewerTimezone(t *testing.T) {
	samples := []models.ForecastSample{
		{Timestamp: mondayMidnight.Unix()},
		{Timestamp: mondayMidnight.Add(3 * time.Hour).Unix()},
	}
	slots := Hourly(samples, time.FixedZone("EDT", -4*60*60))
	if slots[1].Label != "11 PM" {
		t.Errorf("slots[1].Label = %q, want 11 PM", slots[1].Label)
	}
}
