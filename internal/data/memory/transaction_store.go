// Package memory provides in-memory store implementations used in tests and
// in standalone runs without external backends.
package memory

import (
	"context"
	"sync"

	"github.com/cardswitch/card-switch/internal/domain/transaction"
)

// TransactionStore is a mutex-guarded in-memory transaction.Store. Records
// are kept per trace number in arrival order.
type TransactionStore struct {
	mu      sync.Mutex
	byTrace map[string][]*transaction.Transaction
}

// NewTransactionStore creates an empty in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		byTrace: make(map[string][]*transaction.Transaction),
	}
}

// Save stores a new transaction record. A second purchase with the same
// trace number is a duplicate; reversal and echo retries journal freely.
func (s *TransactionStore) Save(_ context.Context, txn *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if txn.IsPurchase() {
		for _, existing := range s.byTrace[txn.TraceNumber] {
			if existing.MTI == txn.MTI {
				return transaction.ErrDuplicateTrace{TraceNumber: txn.TraceNumber}
			}
		}
	}

	clone := *txn
	s.byTrace[txn.TraceNumber] = append(s.byTrace[txn.TraceNumber], &clone)
	return nil
}

// Update rewrites the stored record matching the transaction's ID.
func (s *TransactionStore) Update(_ context.Context, txn *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byTrace[txn.TraceNumber] {
		if existing.ID == txn.ID {
			*existing = *txn
			return nil
		}
	}
	return transaction.ErrNotFound{TraceNumber: txn.TraceNumber}
}

// FindByTraceNumber returns the most recent record for a trace number.
func (s *TransactionStore) FindByTraceNumber(_ context.Context, traceNumber string) (*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.byTrace[traceNumber]
	if len(records) == 0 {
		return nil, transaction.ErrNotFound{TraceNumber: traceNumber}
	}

	clone := *records[len(records)-1]
	return &clone, nil
}

// MarkReversed flips an approved record to REVERSED under the store lock, so
// concurrent reversals of the same trace number serialize and only one wins.
func (s *TransactionStore) MarkReversed(_ context.Context, traceNumber string) (*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.byTrace[traceNumber]
	var reversed bool
	for i := len(records) - 1; i >= 0; i-- {
		// Only the purchase row is reversible; the reversal message's own
		// journal entry never is.
		if !records[i].IsPurchase() {
			continue
		}
		switch records[i].Status {
		case transaction.StatusApproved:
			records[i].Status = transaction.StatusReversed
			clone := *records[i]
			return &clone, nil
		case transaction.StatusReversed:
			reversed = true
		}
	}

	if reversed {
		return nil, transaction.ErrAlreadyReversed{TraceNumber: traceNumber}
	}
	return nil, transaction.ErrNotFound{TraceNumber: traceNumber}
}
