package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cardswitch/card-switch/internal/domain/routing"
	"github.com/cardswitch/card-switch/internal/platform/persistence"
)

// RoutingStore implements the routing.Store interface for PostgreSQL
type RoutingStore struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRoutingStore creates a new PostgreSQL routing rule store.
func NewRoutingStore(logger *slog.Logger, db *persistence.PostgresDB) routing.Store {
	return &RoutingStore{
		querier: db.Pool(),
		logger:  logger,
	}
}

// FindActiveRules loads the active rule set ordered by id, which is the
// tie-break order among rules of equal priority.
func (s *RoutingStore) FindActiveRules(ctx context.Context) ([]*routing.Rule, error) {
	query := `
		SELECT id, mti, processing_code, acquirer_id, destination, priority, active
		FROM routing_rules
		WHERE active = TRUE
		ORDER BY id
	`

	rows, err := s.querier.Query(ctx, query)
	if err != nil {
		s.logger.Error("Failed to load routing rules", "error", err)
		return nil, fmt.Errorf("failed to load routing rules: %w", err)
	}
	defer rows.Close()

	var rules []*routing.Rule
	for rows.Next() {
		var rule routing.Rule
		err := rows.Scan(
			&rule.ID,
			&rule.MTI,
			&rule.ProcessingCode,
			&rule.AcquirerID,
			&rule.Destination,
			&rule.Priority,
			&rule.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan routing rule: %w", err)
		}
		rules = append(rules, &rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read routing rules: %w", err)
	}

	return rules, nil
}

// Save stores a new routing rule and fills in its assigned id.
func (s *RoutingStore) Save(ctx context.Context, rule *routing.Rule) error {
	query := `
		INSERT INTO routing_rules (mti, processing_code, acquirer_id, destination, priority, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := s.querier.QueryRow(ctx, query,
		rule.MTI,
		rule.ProcessingCode,
		rule.AcquirerID,
		rule.Destination,
		rule.Priority,
		rule.Active,
	).Scan(&rule.ID)
	if err != nil {
		s.logger.Error("Failed to save routing rule", "destination", rule.Destination, "error", err)
		return fmt.Errorf("failed to save routing rule: %w", err)
	}

	return nil
}

// Update rewrites an existing routing rule.
func (s *RoutingStore) Update(ctx context.Context, rule *routing.Rule) error {
	query := `
		UPDATE routing_rules
		SET mti = $1, processing_code = $2, acquirer_id = $3, destination = $4, priority = $5, active = $6
		WHERE id = $7
	`

	result, err := s.querier.Exec(ctx, query,
		rule.MTI,
		rule.ProcessingCode,
		rule.AcquirerID,
		rule.Destination,
		rule.Priority,
		rule.Active,
		rule.ID,
	)
	if err != nil {
		s.logger.Error("Failed to update routing rule", "id", rule.ID, "error", err)
		return fmt.Errorf("failed to update routing rule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("routing rule %d not found", rule.ID)
	}

	return nil
}
