package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/cardswitch/card-switch/internal/domain/iso"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
	"github.com/cardswitch/card-switch/internal/pipeline"
)

// TypeDispatchStage applies the per-message-type behavior: purchase
// approval, reversal against the stored original, network-management echo,
// and the unsupported-type decline.
type TypeDispatchStage struct {
	store  transaction.Store
	logger *slog.Logger
}

// NewTypeDispatchStage creates the type dispatch stage.
func NewTypeDispatchStage(store transaction.Store, logger *slog.Logger) *TypeDispatchStage {
	return &TypeDispatchStage{store: store, logger: logger}
}

func (s *TypeDispatchStage) Name() string { return "type-dispatch" }

func (s *TypeDispatchStage) Prepare(ctx context.Context, txc *pipeline.Context) pipeline.Result {
	if txc.Decided() {
		return pipeline.PreparedReadOnly()
	}

	switch txc.Request.MTI {
	case iso.MTIPurchase:
		return s.handlePurchase(txc)
	case iso.MTIReversal:
		return s.handleReversal(ctx, txc)
	case iso.MTINetworkMgmt:
		return s.handleNetworkManagement(txc)
	default:
		s.logger.Warn("unsupported message type",
			"correlation_id", txc.CorrelationID,
			"mti", txc.Request.MTI,
		)
		txc.Transaction.Status = transaction.StatusDeclined
		txc.Transaction.ResponseCode = iso.RespNotSupported
		txc.Respond(pipeline.ErrorResponse(txc.Request, iso.RespNotSupported))
		return pipeline.PreparedReadOnly()
	}
}

func (s *TypeDispatchStage) Commit(ctx context.Context, txc *pipeline.Context) {}
func (s *TypeDispatchStage) Abort(ctx context.Context, txc *pipeline.Context)  {}

func (s *TypeDispatchStage) handlePurchase(txc *pipeline.Context) pipeline.Result {
	authCode := generateAuthCode()

	txc.Transaction.Status = transaction.StatusApproved
	txc.Transaction.ResponseCode = iso.RespApproved
	txc.Transaction.AuthCode = authCode
	txc.Respond(pipeline.ApprovedResponse(txc.Request, authCode))

	return pipeline.PreparedReadOnly()
}

// handleReversal flips the original APPROVED transaction to REVERSED. The
// stored original is authoritative for the reversed record; the reversal
// message's own amount fields are not re-validated. MarkReversed is an
// atomic check-and-set, so concurrent reversals of one trace number cannot
// both succeed.
func (s *TypeDispatchStage) handleReversal(ctx context.Context, txc *pipeline.Context) pipeline.Result {
	traceNumber := txc.Request.Field(iso.FieldTraceNumber)

	original, err := s.store.MarkReversed(ctx, traceNumber)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound{}) || errors.Is(err, transaction.ErrAlreadyReversed{}) {
			s.logger.Warn("original transaction not reversible",
				"correlation_id", txc.CorrelationID,
				"trace_number", traceNumber,
				"reason", err.Error(),
			)
			txc.Transaction.Status = transaction.StatusDeclined
			txc.Transaction.ResponseCode = iso.RespUnableToLocate
			txc.Respond(pipeline.ErrorResponse(txc.Request, iso.RespUnableToLocate))
			return pipeline.PreparedReadOnly()
		}

		s.logger.Error("reversal lookup failed",
			"correlation_id", txc.CorrelationID,
			"trace_number", traceNumber,
			"error", err,
		)
		return pipeline.AbortedNoJoin()
	}

	s.logger.Info("transaction reversed",
		"correlation_id", txc.CorrelationID,
		"trace_number", traceNumber,
		"original_id", original.ID.String(),
	)

	authCode := generateAuthCode()
	txc.Transaction.Status = transaction.StatusApproved
	txc.Transaction.ResponseCode = iso.RespApproved
	txc.Transaction.AuthCode = authCode
	txc.Respond(pipeline.ApprovedResponse(txc.Request, authCode))

	return pipeline.PreparedNoJoin()
}

// handleNetworkManagement answers the echo test: every inbound field comes
// back unchanged except the MTI and response code.
func (s *TypeDispatchStage) handleNetworkManagement(txc *pipeline.Context) pipeline.Result {
	response := txc.Request.Clone()
	response.MTI = iso.MTINetworkMgmtResponse
	response.Set(iso.FieldResponseCode, iso.RespApproved)

	txc.Transaction.Status = transaction.StatusApproved
	txc.Transaction.ResponseCode = iso.RespApproved
	txc.Respond(response)

	return pipeline.PreparedReadOnly()
}

func generateAuthCode() string {
	return fmt.Sprintf("%06d", rand.IntN(1_000_000))
}
