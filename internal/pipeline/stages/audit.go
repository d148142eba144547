// Package stages contains the pipeline stage implementations, in their
// fixed execution order: audit, validation, fraud screening, routing,
// type dispatch, response delivery.
package stages

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cardswitch/card-switch/internal/audit"
	"github.com/cardswitch/card-switch/internal/domain/iso"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
	"github.com/cardswitch/card-switch/internal/pipeline"
	"github.com/cardswitch/card-switch/internal/routing"
)

// AuditStage derives the Transaction from the inbound message and persists
// it. It is the one stage that joins the commit/abort pass: the audit
// record carrying the final outcome is emitted from there.
type AuditStage struct {
	store    transaction.Store
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewAuditStage creates the persistence-log stage.
func NewAuditStage(store transaction.Store, recorder *audit.Recorder, logger *slog.Logger) *AuditStage {
	return &AuditStage{
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

func (s *AuditStage) Name() string { return "audit" }

func (s *AuditStage) Prepare(ctx context.Context, txc *pipeline.Context) pipeline.Result {
	if txc.Request == nil {
		s.logger.Error("no request message in context", "correlation_id", txc.CorrelationID)
		return pipeline.AbortedNoJoin()
	}

	txc.Transaction = buildTransaction(txc.Request)

	if err := s.store.Save(ctx, txc.Transaction); err != nil {
		s.logger.Error("failed to persist transaction",
			"correlation_id", txc.CorrelationID,
			"trace_number", txc.Transaction.TraceNumber,
			"error", err,
		)
		return pipeline.Aborted()
	}

	return pipeline.Prepared()
}

func (s *AuditStage) Commit(ctx context.Context, txc *pipeline.Context) {
	s.persistOutcome(ctx, txc)
	s.record(ctx, txc)
}

func (s *AuditStage) Abort(ctx context.Context, txc *pipeline.Context) {
	if txc.Transaction != nil && txc.Transaction.Status == transaction.StatusPending {
		txc.Transaction.Status = transaction.StatusError
	}
	s.persistOutcome(ctx, txc)
	s.record(ctx, txc)
}

// persistOutcome writes the final status and response fields back to the
// journal. Best-effort at this point: the response is already decided and
// a journal update failure must not disturb it.
func (s *AuditStage) persistOutcome(ctx context.Context, txc *pipeline.Context) {
	if txc.Transaction == nil {
		return
	}
	if err := s.store.Update(ctx, txc.Transaction); err != nil {
		s.logger.Error("failed to persist transaction outcome",
			"correlation_id", txc.CorrelationID,
			"trace_number", txc.Transaction.TraceNumber,
			"error", err,
		)
	}
}

func (s *AuditStage) record(ctx context.Context, txc *pipeline.Context) {
	txn := txc.Transaction
	if txn == nil {
		return
	}

	responseCode := txn.ResponseCode
	if txc.Response != nil && txc.Response.Has(iso.FieldResponseCode) {
		responseCode = txc.Response.Field(iso.FieldResponseCode)
	}

	s.recorder.RecordTransaction(ctx, &audit.Record{
		CorrelationID: txc.CorrelationID,
		MTI:           txn.MTI,
		TraceNumber:   txn.TraceNumber,
		MaskedPAN:     transaction.MaskPAN(txc.Request.Field(iso.FieldPAN)),
		Amount:        txn.Amount.String(),
		CurrencyCode:  txn.CurrencyCode,
		ResponseCode:  responseCode,
		Status:        string(txn.Status),
		Destination:   txc.Destination,
	})
}

// buildTransaction maps the wire fields onto a pending Transaction. The
// account number is hashed immediately; nothing downstream of this
// function sees it in clear.
func buildTransaction(request *iso.Message) *transaction.Transaction {
	txn := transaction.New(request.MTI, request.Field(iso.FieldTraceNumber))

	if request.Has(iso.FieldPAN) {
		txn.PANHash = transaction.HashPAN(request.Field(iso.FieldPAN))
	}
	if request.Has(iso.FieldAmount) {
		// Wire amounts carry two implied decimal places.
		if amount, err := decimal.NewFromString(request.Field(iso.FieldAmount)); err == nil {
			txn.Amount = amount.Shift(-2)
		}
	}
	if request.Has(iso.FieldCurrencyCode) {
		txn.CurrencyCode = request.Field(iso.FieldCurrencyCode)
	}
	if request.Has(iso.FieldProcessingCode) {
		txn.ProcessingCode = request.Field(iso.FieldProcessingCode)
	} else {
		txn.ProcessingCode = routing.DefaultProcessingCode
	}
	txn.AcquirerID = request.Field(iso.FieldAcquirerID)
	txn.TerminalID = request.Field(iso.FieldTerminalID)
	txn.MerchantID = request.Field(iso.FieldMerchantID)

	return txn
}
