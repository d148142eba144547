package stages

import (
	"context"
	"log/slog"

	"github.com/cardswitch/card-switch/internal/domain/iso"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
	"github.com/cardswitch/card-switch/internal/fraud"
	"github.com/cardswitch/card-switch/internal/pipeline"
)

// FraudStage screens the transaction through the fraud engine. Suspicion
// is a normal decline outcome (code 51), not a pipeline failure, and the
// engine itself fails open.
type FraudStage struct {
	engine *fraud.Engine
	logger *slog.Logger
}

// NewFraudStage creates the fraud screening stage.
func NewFraudStage(engine *fraud.Engine, logger *slog.Logger) *FraudStage {
	return &FraudStage{engine: engine, logger: logger}
}

func (s *FraudStage) Name() string { return "fraud-screening" }

func (s *FraudStage) Prepare(ctx context.Context, txc *pipeline.Context) pipeline.Result {
	if txc.Decided() {
		return pipeline.PreparedReadOnly()
	}

	if s.engine.IsSuspicious(ctx, txc.Transaction) {
		s.logger.Warn("transaction flagged as suspicious",
			"correlation_id", txc.CorrelationID,
			"trace_number", txc.Transaction.TraceNumber,
		)
		txc.Transaction.Status = transaction.StatusDeclined
		txc.Transaction.ResponseCode = iso.RespDecline
		txc.Respond(pipeline.ErrorResponse(txc.Request, iso.RespDecline))
	}

	return pipeline.PreparedReadOnly()
}

func (s *FraudStage) Commit(ctx context.Context, txc *pipeline.Context) {}
func (s *FraudStage) Abort(ctx context.Context, txc *pipeline.Context)  {}
