// Package routing implements rule evaluation: matching the active rule set
// against transaction attributes and picking a destination by priority.
package routing

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cardswitch/card-switch/internal/domain/routing"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
)

// DefaultProcessingCode stands in when the inbound message carried no
// processing code field.
const DefaultProcessingCode = "000000"

// Engine selects a destination for a transaction from the active rule set.
// Rules are read-mostly, so the set is cached for a configured TTL; a
// stale set is acceptable (worst case a mis-route or no-route, never a
// crash) and a failed refresh falls back to the last good set.
type Engine struct {
	store    routing.Store
	cacheTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	cached    []*routing.Rule
	fetchedAt time.Time
}

// NewEngine creates a routing engine. A zero TTL disables caching.
func NewEngine(store routing.Store, cacheTTL time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Route returns the destination for the transaction, or the empty string
// when no active rule matches. Selection is deterministic: active matching
// rules sorted by descending priority, ties broken by rule-set order
// (stable sort), first destination wins.
func (e *Engine) Route(ctx context.Context, txn *transaction.Transaction) (string, error) {
	rules, err := e.activeRules(ctx)
	if err != nil {
		return "", err
	}

	processingCode := txn.ProcessingCode
	if processingCode == "" {
		processingCode = DefaultProcessingCode
	}

	matched := make([]*routing.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Matches(txn.MTI, processingCode, txn.AcquirerID) {
			matched = append(matched, rule)
		}
	}
	if len(matched) == 0 {
		return "", nil
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	return matched[0].Destination, nil
}

// Invalidate drops the cached rule set; the next Route refetches.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cached = nil
	e.fetchedAt = time.Time{}
}

func (e *Engine) activeRules(ctx context.Context) ([]*routing.Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cached != nil && e.cacheTTL > 0 && e.now().Sub(e.fetchedAt) < e.cacheTTL {
		return e.cached, nil
	}

	rules, err := e.store.FindActiveRules(ctx)
	if err != nil {
		if e.cached != nil {
			// Serve the stale set rather than failing the transaction.
			e.logger.Warn("routing rule refresh failed, serving stale rule set",
				"error", err,
				"cached_rules", len(e.cached),
				"fetched_at", e.fetchedAt,
			)
			return e.cached, nil
		}
		return nil, err
	}

	e.cached = rules
	e.fetchedAt = e.now()
	return rules, nil
}
