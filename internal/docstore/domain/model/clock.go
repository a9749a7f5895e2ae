package model

import (
	"sync"
	"time"
)

// ServerClock issues write instants at millisecond precision, the
// resolution every provider and the record codec keep. Each instant is
// later than the one before it, so an update always moves updatedAt
// forward even within the same millisecond.
type ServerClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewServerClock creates a clock over now. A nil now uses time.Now.
func NewServerClock(now func() time.Time) *ServerClock {
	if now == nil {
		now = time.Now
	}
	return &ServerClock{now: now}
}

// Next returns the instant for one write.
func (c *ServerClock) Next() time.Time {
	t := c.now().UTC().Truncate(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}
