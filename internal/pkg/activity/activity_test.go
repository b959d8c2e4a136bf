package activity_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hzarena/internal/pkg/activity"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTracker_TimedOut(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	tr := activity.New(activity.WithTimeout(time.Minute), activity.WithClock(clock.Now))

	assert.False(t, tr.TimedOut())

	clock.Advance(time.Minute)
	assert.False(t, tr.TimedOut(), "the timeout must be exceeded, not just reached")

	clock.Advance(time.Second)
	assert.True(t, tr.TimedOut())
	assert.Equal(t, time.Minute+time.Second, tr.Idle())

	tr.Touch()
	assert.False(t, tr.TimedOut())
	assert.Equal(t, clock.Now(), tr.LastActivity())
}

func TestTracker_NoTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := activity.New(activity.WithClock(clock.Now))

	clock.Advance(24 * time.Hour)
	assert.False(t, tr.TimedOut())

	tr.SetTimeout(time.Hour)
	assert.True(t, tr.TimedOut())

	tr.SetTimeout(activity.NoTimeout)
	assert.False(t, tr.TimedOut())
}
