package stages

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cardswitch/card-switch/internal/domain/iso"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
	"github.com/cardswitch/card-switch/internal/pipeline"
)

// ValidationResult is the transient verdict of the validation checks.
type ValidationResult struct {
	Valid        bool
	ResponseCode string
	Reason       string
}

func validResult() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalidResult(responseCode, reason string) ValidationResult {
	return ValidationResult{ResponseCode: responseCode, Reason: reason}
}

// ValidationStage runs the mandatory-field and format checks. A failed
// check is a business decline: the transaction completes cleanly with an
// error response, it does not abort the pipeline.
type ValidationStage struct {
	logger *slog.Logger
}

// NewValidationStage creates the validation stage.
func NewValidationStage(logger *slog.Logger) *ValidationStage {
	return &ValidationStage{logger: logger}
}

func (s *ValidationStage) Name() string { return "validation" }

func (s *ValidationStage) Prepare(ctx context.Context, txc *pipeline.Context) pipeline.Result {
	if txc.Decided() {
		return pipeline.PreparedReadOnly()
	}

	result := Validate(txc.Request)
	if !result.Valid {
		s.logger.Warn("transaction validation failed",
			"correlation_id", txc.CorrelationID,
			"response_code", result.ResponseCode,
			"reason", result.Reason,
		)
		if txc.Transaction != nil {
			txc.Transaction.Status = transaction.StatusDeclined
			txc.Transaction.ResponseCode = result.ResponseCode
		}
		txc.Respond(pipeline.ErrorResponse(txc.Request, result.ResponseCode))
	}

	return pipeline.PreparedReadOnly()
}

func (s *ValidationStage) Commit(ctx context.Context, txc *pipeline.Context) {}
func (s *ValidationStage) Abort(ctx context.Context, txc *pipeline.Context)  {}

// Validate runs the checks in order, short-circuiting on the first
// failure. The order and response codes are part of the switch's observable
// behavior.
func Validate(request *iso.Message) ValidationResult {
	if !request.Has(iso.FieldPAN) {
		return invalidResult(iso.RespFormatError, "format error - PAN missing")
	}

	networkManagement := request.MTI == iso.MTINetworkMgmt
	if !request.Has(iso.FieldAmount) && !networkManagement {
		return invalidResult(iso.RespFormatError, "format error - amount missing")
	}

	if !request.Has(iso.FieldTraceNumber) {
		return invalidResult(iso.RespFormatError, "format error - trace number missing")
	}

	pan := request.Field(iso.FieldPAN)
	if len(pan) < 13 || len(pan) > 19 {
		return invalidResult(iso.RespFormatError, "invalid PAN length")
	}

	if request.Has(iso.FieldAmount) {
		amount, err := decimal.NewFromString(request.Field(iso.FieldAmount))
		if err != nil {
			return invalidResult(iso.RespFormatError, "invalid amount format")
		}
		if amount.LessThanOrEqual(decimal.Zero) {
			return invalidResult(iso.RespInvalidAmount, "invalid amount")
		}
	}

	return validResult()
}
