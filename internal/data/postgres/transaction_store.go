// Package postgres provides PostgreSQL implementations of the domain stores.
// It backs the transaction journal and the routing rule table while keeping
// error handling consistent with the domain error types.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cardswitch/card-switch/internal/domain/transaction"
	"github.com/cardswitch/card-switch/internal/platform/persistence"
)

// TransactionStore implements the transaction.Store interface for PostgreSQL
type TransactionStore struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionStore creates a new PostgreSQL transaction store.
// It expects db.Pool() to satisfy persistence.Querier.
func NewTransactionStore(logger *slog.Logger, db *persistence.PostgresDB) transaction.Store {
	return &TransactionStore{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the store with a transaction, allowing for atomic operations
// across multiple store calls.
func (s *TransactionStore) WithTx(tx pgx.Tx) transaction.Store {
	return &TransactionStore{
		querier: tx,
		logger:  s.logger,
	}
}

// Save stores a new transaction record. Trace numbers are unique within the
// journal's retention window; a duplicate maps to ErrDuplicateTrace.
func (s *TransactionStore) Save(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, trace_number, mti, pan_hash, amount, currency_code,
			processing_code, acquirer_id, terminal_id, merchant_id, response_code,
			auth_code, status, created_at, settlement_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.querier.Exec(ctx, query,
		txn.ID,
		txn.TraceNumber,
		txn.MTI,
		txn.PANHash,
		txn.Amount,
		txn.CurrencyCode,
		txn.ProcessingCode,
		txn.AcquirerID,
		txn.TerminalID,
		txn.MerchantID,
		txn.ResponseCode,
		txn.AuthCode,
		txn.Status,
		txn.CreatedAt,
		txn.SettlementDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return transaction.ErrDuplicateTrace{TraceNumber: txn.TraceNumber}
		}
		s.logger.Error("Failed to save transaction", "trace_number", txn.TraceNumber, "error", err)
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	return nil
}

// Update persists the outcome fields of an existing transaction.
func (s *TransactionStore) Update(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET response_code = $1, auth_code = $2, status = $3, settlement_date = $4
		WHERE id = $5
	`

	result, err := s.querier.Exec(ctx, query,
		txn.ResponseCode,
		txn.AuthCode,
		txn.Status,
		txn.SettlementDate,
		txn.ID,
	)
	if err != nil {
		s.logger.Error("Failed to update transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrNotFound{TraceNumber: txn.TraceNumber}
	}

	return nil
}

// FindByTraceNumber retrieves the most recent transaction for a trace number.
func (s *TransactionStore) FindByTraceNumber(ctx context.Context, traceNumber string) (*transaction.Transaction, error) {
	query := `
		SELECT id, trace_number, mti, pan_hash, amount, currency_code, processing_code,
			acquirer_id, terminal_id, merchant_id, response_code, auth_code, status,
			created_at, settlement_date
		FROM transactions
		WHERE trace_number = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	txn, err := s.scanOne(s.querier.QueryRow(ctx, query, traceNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrNotFound{TraceNumber: traceNumber}
		}
		s.logger.Error("Failed to find transaction", "trace_number", traceNumber, "error", err)
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}

	return txn, nil
}

// MarkReversed atomically flips the approved purchase to REVERSED and
// returns the updated record. The conditional UPDATE is the check-and-set:
// of two concurrent reversals only one can match the APPROVED row. Only
// the purchase row is reversible, never a reversal's own journal entry.
func (s *TransactionStore) MarkReversed(ctx context.Context, traceNumber string) (*transaction.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = $1
		WHERE id = (
			SELECT id FROM transactions
			WHERE trace_number = $2 AND mti = '0200' AND status = $3
			LIMIT 1
		)
		RETURNING id, trace_number, mti, pan_hash, amount, currency_code, processing_code,
			acquirer_id, terminal_id, merchant_id, response_code, auth_code, status,
			created_at, settlement_date
	`

	txn, err := s.scanOne(s.querier.QueryRow(ctx, query,
		transaction.StatusReversed,
		traceNumber,
		transaction.StatusApproved,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.classifyReversalMiss(ctx, traceNumber)
		}
		s.logger.Error("Failed to mark transaction reversed", "trace_number", traceNumber, "error", err)
		return nil, fmt.Errorf("failed to mark transaction reversed: %w", err)
	}

	return txn, nil
}

// classifyReversalMiss distinguishes a reversal against a missing original
// from one that lost the race to an earlier reversal.
func (s *TransactionStore) classifyReversalMiss(ctx context.Context, traceNumber string) error {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE trace_number = $1 AND mti = '0200' AND status = $2
		)
	`

	var reversed bool
	err := s.querier.QueryRow(ctx, query, traceNumber, transaction.StatusReversed).Scan(&reversed)
	if err != nil {
		s.logger.Error("Failed to classify reversal miss", "trace_number", traceNumber, "error", err)
		return fmt.Errorf("failed to classify reversal miss: %w", err)
	}
	if reversed {
		return transaction.ErrAlreadyReversed{TraceNumber: traceNumber}
	}
	return transaction.ErrNotFound{TraceNumber: traceNumber}
}

func (s *TransactionStore) scanOne(row pgx.Row) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.TraceNumber,
		&txn.MTI,
		&txn.PANHash,
		&txn.Amount,
		&txn.CurrencyCode,
		&txn.ProcessingCode,
		&txn.AcquirerID,
		&txn.TerminalID,
		&txn.MerchantID,
		&txn.ResponseCode,
		&txn.AuthCode,
		&txn.Status,
		&txn.CreatedAt,
		&txn.SettlementDate,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
