package stages

import (
	"context"
	"log/slog"

	"github.com/cardswitch/card-switch/internal/domain/iso"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
	"github.com/cardswitch/card-switch/internal/pipeline"
	"github.com/cardswitch/card-switch/internal/routing"
)

// RoutingStage selects the downstream destination. No matching rule is a
// clean decline (91, switch inoperative); a rule-store failure is handled
// the same way — the stage fails soft and never retries, since a retry
// here could double financial side effects downstream.
type RoutingStage struct {
	engine *routing.Engine
	logger *slog.Logger
}

// NewRoutingStage creates the routing stage.
func NewRoutingStage(engine *routing.Engine, logger *slog.Logger) *RoutingStage {
	return &RoutingStage{engine: engine, logger: logger}
}

func (s *RoutingStage) Name() string { return "routing" }

func (s *RoutingStage) Prepare(ctx context.Context, txc *pipeline.Context) pipeline.Result {
	if txc.Decided() {
		return pipeline.PreparedReadOnly()
	}

	destination, err := s.engine.Route(ctx, txc.Transaction)
	if err != nil {
		s.logger.Error("routing lookup failed",
			"correlation_id", txc.CorrelationID,
			"trace_number", txc.Transaction.TraceNumber,
			"error", err,
		)
		destination = ""
	}

	if destination == "" {
		s.logger.Warn("no route found for transaction",
			"correlation_id", txc.CorrelationID,
			"mti", txc.Transaction.MTI,
			"acquirer_id", txc.Transaction.AcquirerID,
		)
		txc.Transaction.Status = transaction.StatusDeclined
		txc.Transaction.ResponseCode = iso.RespSwitchInoperative
		txc.Respond(pipeline.ErrorResponse(txc.Request, iso.RespSwitchInoperative))
		return pipeline.PreparedReadOnly()
	}

	txc.Destination = destination
	return pipeline.PreparedReadOnly()
}

func (s *RoutingStage) Commit(ctx context.Context, txc *pipeline.Context) {}
func (s *RoutingStage) Abort(ctx context.Context, txc *pipeline.Context)  {}
