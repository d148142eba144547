package pipeline

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/cardswitch/card-switch/internal/domain/iso"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
)

// Dispatcher owns the ordered stage list and drives one transaction through
// the two-phase protocol. The responder is held apart from the business
// stages because the response must go out even for aborted runs: the origin
// connection is never left waiting.
type Dispatcher struct {
	stages    []Stage
	responder Stage
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher over the given stage order.
func NewDispatcher(logger *slog.Logger, stages []Stage, responder Stage) *Dispatcher {
	return &Dispatcher{
		stages:    stages,
		responder: responder,
		logger:    logger,
	}
}

type stageRun struct {
	stage  Stage
	result Result
}

// Run executes one transaction. The forward pass calls Prepare on each
// stage in order, stopping at the first abort or at context expiry; the
// reverse pass then commits or aborts the joined stages. Stage faults are
// contained here — Run never panics and never returns an error to the
// connection layer.
func (d *Dispatcher) Run(ctx context.Context, txc *Context) {
	logger := d.logger.With("correlation_id", txc.CorrelationID)

	executed := make([]stageRun, 0, len(d.stages))
	aborted := false

	for _, stage := range d.stages {
		if err := ctx.Err(); err != nil {
			logger.Error("transaction deadline expired before stage",
				"stage", stage.Name(),
				"error", err,
			)
			d.markFault(txc, transaction.StatusTimeout)
			aborted = true
			break
		}

		result := d.safePrepare(ctx, stage, txc, logger)
		executed = append(executed, stageRun{stage: stage, result: result})

		if result.Outcome == OutcomeAborted {
			logger.Warn("stage aborted transaction", "stage", stage.Name())
			d.markFault(txc, transaction.StatusError)
			aborted = true
			break
		}

		logger.Debug("stage prepared",
			"stage", stage.Name(),
			"read_only", result.ReadOnly,
		)
	}

	// The run deadline bounds the prepare phase only. Join callbacks and
	// delivery still run after expiry: the journal write-back and the
	// connection waiting for an answer outlive the run budget.
	joinCtx := context.WithoutCancel(ctx)

	// Reverse pass: abort or commit every joined stage, newest first.
	for i := len(executed) - 1; i >= 0; i-- {
		run := executed[i]
		if run.result.NoJoin {
			continue
		}
		d.safeJoin(joinCtx, run.stage, txc, !aborted, logger)
	}

	if aborted && txc.Response == nil && txc.Request != nil {
		// Nothing usable was produced; answer with a system malfunction so
		// the caller learns the transaction died.
		txc.Response = ErrorResponse(txc.Request, iso.RespSystemMalfunction)
	}

	d.deliver(joinCtx, txc, logger)
}

// safePrepare invokes a stage's Prepare, converting panics into aborts.
func (d *Dispatcher) safePrepare(ctx context.Context, stage Stage, txc *Context, logger *slog.Logger) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("stage panic recovered, aborting transaction",
				"stage", stage.Name(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			result = Aborted()
		}
	}()
	return stage.Prepare(ctx, txc)
}

// safeJoin invokes Commit or Abort, swallowing panics: the reverse pass
// must reach every joined stage.
func (d *Dispatcher) safeJoin(ctx context.Context, stage Stage, txc *Context, commit bool, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("stage join callback panic recovered",
				"stage", stage.Name(),
				"commit", commit,
				"panic", r,
			)
		}
	}()
	if commit {
		stage.Commit(ctx, txc)
	} else {
		stage.Abort(ctx, txc)
	}
}

// deliver hands the run to the responder exactly once. Delivery problems
// are logged, never propagated.
func (d *Dispatcher) deliver(ctx context.Context, txc *Context, logger *slog.Logger) {
	if d.responder == nil {
		return
	}
	result := d.safePrepare(ctx, d.responder, txc, logger)
	if result.Outcome == OutcomeAborted {
		logger.Error("response delivery failed",
			"stage", d.responder.Name(),
			"source_present", txc.Source != nil,
			"response_present", txc.Response != nil,
		)
	}
}

// markFault records a pipeline fault on the transaction. Business declines
// never come through here; they complete the prepare phase normally.
func (d *Dispatcher) markFault(txc *Context, status transaction.Status) {
	if txc.Transaction == nil {
		return
	}
	txc.Transaction.Status = status
	txc.Transaction.ResponseCode = iso.RespSystemMalfunction
}
