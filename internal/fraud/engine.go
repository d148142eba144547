// Package fraud implements the heuristic screening engine: amount,
// per-account velocity, and time-of-day checks producing a boolean
// suspicion verdict.
package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardswitch/card-switch/internal/config"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
)

// VelocityTracker counts events per account reference within a rolling
// window. Hit records one event for key and returns the count observed in
// the current window, including this one.
type VelocityTracker interface {
	Hit(ctx context.Context, key string) (int, error)
}

// Engine evaluates the configured heuristics. The verdict computation
// never fails hard: any internal fault defaults to "not suspicious" so a
// detector error cannot block legitimate traffic. That fail-open policy is
// deliberate; faults surface as log events, not declines.
type Engine struct {
	highAmount    decimal.Decimal
	velocityLimit int
	hourStart     int
	hourEnd       int
	velocity      VelocityTracker
	logger        *slog.Logger
	now           func() time.Time
}

// NewEngine creates a fraud engine from the configured thresholds.
func NewEngine(cfg config.FraudConfig, velocity VelocityTracker, logger *slog.Logger) (*Engine, error) {
	highAmount, err := decimal.NewFromString(cfg.HighAmountThreshold)
	if err != nil {
		return nil, fmt.Errorf("invalid high amount threshold %q: %w", cfg.HighAmountThreshold, err)
	}

	return &Engine{
		highAmount:    highAmount,
		velocityLimit: cfg.VelocityPerMinute,
		hourStart:     cfg.SuspiciousHourStart,
		hourEnd:       cfg.SuspiciousHourEnd,
		velocity:      velocity,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// IsSuspicious returns true when any heuristic trips. The amount check is
// a strict greater-than: a transaction exactly at the threshold passes.
func (e *Engine) IsSuspicious(ctx context.Context, txn *transaction.Transaction) (verdict bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("fraud detector fault, failing open",
				"panic", r,
				"trace_number", txn.TraceNumber,
			)
			verdict = false
		}
	}()

	if txn.Amount.GreaterThan(e.highAmount) {
		e.logger.Warn("high amount transaction flagged",
			"trace_number", txn.TraceNumber,
			"amount", txn.Amount.String(),
		)
		return true
	}

	if e.isHighVelocity(ctx, txn) {
		e.logger.Warn("velocity limit exceeded",
			"trace_number", txn.TraceNumber,
			"pan_hash", txn.PANHash,
		)
		return true
	}

	if e.isUnusualHour() {
		e.logger.Warn("transaction in suspicious hour window",
			"trace_number", txn.TraceNumber,
			"hour", e.now().Hour(),
		)
		return true
	}

	return false
}

func (e *Engine) isHighVelocity(ctx context.Context, txn *transaction.Transaction) bool {
	if txn.PANHash == "" {
		return false
	}

	count, err := e.velocity.Hit(ctx, txn.PANHash)
	if err != nil {
		// Fail open: a broken counter must not decline real traffic.
		e.logger.Error("velocity tracker fault, failing open",
			"trace_number", txn.TraceNumber,
			"error", err,
		)
		return false
	}

	return count > e.velocityLimit
}

// isUnusualHour checks the [start, end) local-hour window; windows crossing
// midnight (start > end) are supported.
func (e *Engine) isUnusualHour() bool {
	hour := e.now().Hour()
	if e.hourStart <= e.hourEnd {
		return hour >= e.hourStart && hour < e.hourEnd
	}
	return hour >= e.hourStart || hour < e.hourEnd
}
