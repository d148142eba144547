package transaction

import "context"

// Store manages transaction persistence. Save happens once at pipeline
// entry; the only later mutation is the reversal flip performed by
// MarkReversed.
type Store interface {
	Save(ctx context.Context, txn *Transaction) error
	Update(ctx context.Context, txn *Transaction) error
	FindByTraceNumber(ctx context.Context, traceNumber string) (*Transaction, error)

	// MarkReversed atomically flips an APPROVED transaction to REVERSED and
	// returns the updated record. The check-and-set must be atomic so two
	// concurrent reversals of the same trace number cannot both succeed:
	// the loser sees ErrAlreadyReversed (or ErrNotFound when no approved
	// original exists).
	MarkReversed(ctx context.Context, traceNumber string) (*Transaction, error)
}

// ErrNotFound indicates no transaction exists for a trace number.
type ErrNotFound struct {
	TraceNumber string
}

func (e ErrNotFound) Error() string {
	return "transaction not found: " + e.TraceNumber
}

// Is implements the errors.Is interface for ErrNotFound
func (e ErrNotFound) Is(target error) bool {
	t, ok := target.(ErrNotFound)
	if !ok {
		return false
	}
	// An empty target trace number matches any ErrNotFound
	if t.TraceNumber == "" {
		return true
	}
	return e.TraceNumber == t.TraceNumber
}

// ErrAlreadyReversed indicates the original transaction was reversed by an
// earlier (possibly concurrent) reversal.
type ErrAlreadyReversed struct {
	TraceNumber string
}

func (e ErrAlreadyReversed) Error() string {
	return "transaction already reversed: " + e.TraceNumber
}

// Is implements the errors.Is interface for ErrAlreadyReversed
func (e ErrAlreadyReversed) Is(target error) bool {
	t, ok := target.(ErrAlreadyReversed)
	if !ok {
		return false
	}
	if t.TraceNumber == "" {
		return true
	}
	return e.TraceNumber == t.TraceNumber
}

// ErrDuplicateTrace indicates trace-number uniqueness violation within the
// store's retention window.
type ErrDuplicateTrace struct {
	TraceNumber string
}

func (e ErrDuplicateTrace) Error() string {
	return "duplicate trace number: " + e.TraceNumber
}

// Is implements the errors.Is interface for ErrDuplicateTrace
func (e ErrDuplicateTrace) Is(target error) bool {
	t, ok := target.(ErrDuplicateTrace)
	if !ok {
		return false
	}
	if t.TraceNumber == "" {
		return true
	}
	return e.TraceNumber == t.TraceNumber
}
