package routing

import "context"

// Store provides the active rule set. The returned order is stable and is
// the tie-break order among rules of equal priority.
type Store interface {
	FindActiveRules(ctx context.Context) ([]*Rule, error)
	Save(ctx context.Context, rule *Rule) error
	Update(ctx context.Context, rule *Rule) error
}
