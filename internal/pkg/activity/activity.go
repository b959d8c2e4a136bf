/*
Package activity provides an idle tracker for long-lived entities such as users and areas.

A Tracker records the time of the last activity and reports whether the configured
idle timeout has elapsed since then. A periodic reaper uses it to expire idle entities.
*/
package activity

import (
	"sync"
	"time"
)

// NoTimeout disables idle expiry. It is the default for a new Tracker.
const NoTimeout time.Duration = 0

// Tracker records the last-activity time of its owner.
// The zero value is not usable; construct one with New.
type Tracker struct {
	mu sync.Mutex

	// last is the time of the most recent Touch.
	last time.Time

	// timeout is the idle duration after which TimedOut reports true.
	timeout time.Duration

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithTimeout sets the idle timeout. A non-positive value disables expiry.
func WithTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		t.timeout = d
	}
}

// WithClock replaces the tracker's clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// New returns a Tracker whose last activity is the current time.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		timeout: NoTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.last = t.now()
	return t
}

// Touch records now as the last activity.
func (t *Tracker) Touch() {
	t.mu.Lock()
	t.last = t.now()
	t.mu.Unlock()
}

// LastActivity returns the time of the most recent Touch.
func (t *Tracker) LastActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Idle returns the time elapsed since the last activity.
func (t *Tracker) Idle() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now().Sub(t.last)
}

// SetTimeout changes the idle timeout. A non-positive value disables expiry.
func (t *Tracker) SetTimeout(d time.Duration) {
	t.mu.Lock()
	t.timeout = d
	t.mu.Unlock()
}

// TimedOut reports whether the time since the last activity exceeds the idle timeout.
// It always returns false when no timeout is configured.
func (t *Tracker) TimedOut() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timeout <= 0 {
		return false
	}
	return t.now().Sub(t.last) > t.timeout
}
