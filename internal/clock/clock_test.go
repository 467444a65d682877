package clock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	tests := []struct {
		name string
		in   time.Time
		loc  *time.Location
		want string
	}{
		{"afternoon UTC", time.Date(2026, 10, 19, 15, 4, 0, 0, time.UTC), time.UTC, "3:04 PM"},
		{"midnight", time.Date(2026, 10, 19, 0, 7, 0, 0, time.UTC), time.UTC, "12:07 AM"},
		{"noon", time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC), time.UTC, "12:00 PM"},
		{"converted to location", time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC), ny, "11:30 AM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.in, tt.loc); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRun_TicksUntilCanceled verifies an immediate write, further writes on
// each tick, and no writes after ctx ends.
func TestRun_TicksUntilCanceled(t *testing.T) {
	var mu sync.Mutex
	var got []string
	c := &Clock{
		Interval: 10 * time.Millisecond,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2026, 10, 19, 9, 5, 0, 0, time.UTC) },
		Sink: func(s string) {
			mu.Lock()
			got = append(got, s)
			mu.Unlock()
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	time.Sleep(55 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	n := len(got)
	mu.Unlock()
	if n < 2 {
		t.Fatalf("expected at least 2 writes, got %d", n)
	}
	if got[0] != "9:05 AM" {
		t.Errorf("first write = %q, want 9:05 AM", got[0])
	}

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(got) != n {
		t.Errorf("writes after cancel: %d -> %d", n, len(got))
	}
}
