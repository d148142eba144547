package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cardswitch/card-switch/internal/domain/routing"
)

// RoutingStore is a mutex-guarded in-memory routing.Store. Rules keep
// insertion order, which serves as the tie-break among equal priorities.
type RoutingStore struct {
	mu     sync.Mutex
	nextID int64
	rules  []*routing.Rule
}

// NewRoutingStore creates an in-memory rule store seeded with the given rules.
func NewRoutingStore(rules ...*routing.Rule) *RoutingStore {
	s := &RoutingStore{nextID: 1}
	for _, rule := range rules {
		clone := *rule
		clone.ID = s.nextID
		s.nextID++
		s.rules = append(s.rules, &clone)
	}
	return s
}

// FindActiveRules returns the active rules in insertion order.
func (s *RoutingStore) FindActiveRules(_ context.Context) ([]*routing.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*routing.Rule
	for _, rule := range s.rules {
		if rule.Active {
			clone := *rule
			active = append(active, &clone)
		}
	}
	return active, nil
}

// Save stores a new rule and assigns its id.
func (s *RoutingStore) Save(_ context.Context, rule *routing.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *rule
	clone.ID = s.nextID
	s.nextID++
	s.rules = append(s.rules, &clone)
	rule.ID = clone.ID
	return nil
}

// Update rewrites the stored rule with the same id.
func (s *RoutingStore) Update(_ context.Context, rule *routing.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.rules {
		if existing.ID == rule.ID {
			clone := *rule
			s.rules[i] = &clone
			return nil
		}
	}
	return fmt.Errorf("routing rule %d not found", rule.ID)
}
