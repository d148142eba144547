// Package redis provides the Redis-backed velocity counters used by the
// fraud engine.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const velocityKeyPrefix = "velocity:"

// VelocityCounter implements fraud.VelocityTracker on Redis. Each account
// reference gets a counter that expires after the configured window, so the
// count approximates transactions per window without storing timestamps.
type VelocityCounter struct {
	client *redis.Client
	window time.Duration
	logger *slog.Logger
}

// NewVelocityCounter creates a velocity counter over the given rolling window.
func NewVelocityCounter(logger *slog.Logger, client *redis.Client, window time.Duration) *VelocityCounter {
	return &VelocityCounter{
		client: client,
		window: window,
		logger: logger,
	}
}

// Hit records one transaction for the account reference and returns the
// count observed within the current window, the new hit included.
func (c *VelocityCounter) Hit(ctx context.Context, key string) (int, error) {
	redisKey := velocityKeyPrefix + key

	count, err := c.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment velocity counter: %w", err)
	}

	// First hit in a window starts the expiry clock.
	if count == 1 {
		if err := c.client.Expire(ctx, redisKey, c.window).Err(); err != nil {
			c.logger.Warn("Failed to set velocity counter expiry", "key", key, "error", err)
		}
	}

	return int(count), nil
}
