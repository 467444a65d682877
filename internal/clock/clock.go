// Package clock drives the dashboard's live time display.
package clock

import (
	"context"
	"time"
)

// Layout is the 12-hour display format, e.g. "3:04 PM".
const Layout = "3:04 PM"

// DefaultInterval is the tick cadence.
const DefaultInterval = time.Second

// Format renders t in loc using Layout. A nil loc means time.Local.
func Format(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(Layout)
}

// Clock writes the formatted local time to Sink on every tick.
type Clock struct {
	Interval time.Duration
	Location *time.Location
	Sink     func(string)
	Now      func() time.Time
}

// Run writes the time once immediately, then every Interval until ctx is done.
func (c *Clock) Run(ctx context.Context) {
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}

	c.Sink(Format(now(), c.Location))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sink(Format(now(), c.Location))
		}
	}
}
