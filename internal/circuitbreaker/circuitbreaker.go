package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds breaker thresholds. Zero values take defaults in New.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
	// OnStateChange is called outside the lock after every transition.
	OnStateChange func(from, to State)
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Breaker stops calling the weather provider after consecutive failures and
// lets probe calls through once OpenTimeout has elapsed.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	cfg       Config
}

// New returns a closed Breaker.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{state: StateClosed, cfg: cfg}
}

// Execute runs fn unless the breaker is open. fn's error counts as a failure
// unless ignore(err) is true; ignored errors are returned but leave the
// counters untouched (e.g. "city not found" says nothing about provider health).
func (b *Breaker) Execute(fn func() error, ignore func(error) bool) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	if err != nil && ignore != nil && ignore(err) {
		return err
	}
	b.after(err)
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) before() error {
	b.mu.Lock()
	if b.state != StateOpen {
		b.mu.Unlock()
		return nil
	}
	if b.cfg.Now().Sub(b.openedAt) < b.cfg.OpenTimeout {
		b.mu.Unlock()
		return ErrOpen
	}
	b.state = StateHalfOpen
	b.successes = 0
	b.mu.Unlock()
	b.notify(StateOpen, StateHalfOpen)
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	from := b.state
	to := from
	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
			to = StateOpen
			b.openedAt = b.cfg.Now()
			b.failures = 0
		}
	} else {
		b.failures = 0
		b.successes++
		if b.state == StateHalfOpen && b.successes >= b.cfg.SuccessThreshold {
			to = StateClosed
			b.successes = 0
		}
	}
	b.state = to
	b.mu.Unlock()
	if to != from {
		b.notify(from, to)
	}
}

func (b *Breaker) notify(from, to State) {
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
