package redis

import (
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/cardswitch/card-switch/internal/fraud"
)

func TestNewVelocityCounter(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	counter := NewVelocityCounter(slog.Default(), client, time.Minute)

	assert.NotNil(t, counter)
	assert.Equal(t, time.Minute, counter.window)
}

// Counter behavior needs a live server; the fraud engine tests cover the
// velocity checks against the in-memory tracker.
var _ fraud.VelocityTracker = (*VelocityCounter)(nil)
