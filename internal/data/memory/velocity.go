package memory

import (
	"context"
	"sync"
	"time"
)

// VelocityCounter is an in-memory fraud.VelocityTracker. All counters reset
// together when the window elapses, approximating a rolling window the way
// the Redis counters do with per-key expiry.
type VelocityCounter struct {
	mu        sync.Mutex
	window    time.Duration
	counts    map[string]int
	lastReset time.Time
	now       func() time.Time
}

// NewVelocityCounter creates a counter over the given window.
func NewVelocityCounter(window time.Duration) *VelocityCounter {
	return &VelocityCounter{
		window:    window,
		counts:    make(map[string]int),
		lastReset: time.Now(),
		now:       time.Now,
	}
}

// Hit records one transaction for the account reference and returns the
// count within the current window, the new hit included.
func (c *VelocityCounter) Hit(_ context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now := c.now(); now.Sub(c.lastReset) >= c.window {
		c.counts = make(map[string]int)
		c.lastReset = now
	}

	c.counts[key]++
	return c.counts[key], nil
}
