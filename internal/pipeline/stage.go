package pipeline

import "context"

// Outcome is a stage's verdict on the prepare phase.
type Outcome int

const (
	// OutcomePrepared means the stage finished its work; the run continues.
	OutcomePrepared Outcome = iota
	// OutcomeAborted stops the run immediately; stages already run get
	// their abort callback in reverse order.
	OutcomeAborted
)

// Result is the tagged outcome a stage returns from Prepare.
type Result struct {
	Outcome Outcome

	// NoJoin opts the stage out of the commit/abort callbacks. The
	// short-circuit on abort still applies regardless of this flag.
	NoJoin bool

	// ReadOnly records that the stage made no durable change. Informational;
	// the dispatcher logs it but takes no decision on it.
	ReadOnly bool
}

// Prepared returns a joining prepared result.
func Prepared() Result {
	return Result{Outcome: OutcomePrepared}
}

// PreparedNoJoin returns a prepared result that skips commit/abort callbacks.
func PreparedNoJoin() Result {
	return Result{Outcome: OutcomePrepared, NoJoin: true}
}

// PreparedReadOnly returns a prepared, non-joining, read-only result — the
// shape business stages return when an earlier stage already decided.
func PreparedReadOnly() Result {
	return Result{Outcome: OutcomePrepared, NoJoin: true, ReadOnly: true}
}

// Aborted returns an aborted result. The aborting stage still receives its
// own abort callback unless it also sets NoJoin.
func Aborted() Result {
	return Result{Outcome: OutcomeAborted}
}

// AbortedNoJoin returns an aborted result without callbacks.
func AbortedNoJoin() Result {
	return Result{Outcome: OutcomeAborted, NoJoin: true}
}

// Stage is one unit of the processing pipeline. Prepare runs during the
// forward pass; Commit or Abort runs during the reverse pass for stages
// that did not opt out via NoJoin. Implementations must be safe for
// concurrent use across runs: all per-transaction state lives in *Context.
type Stage interface {
	Name() string
	Prepare(ctx context.Context, txc *Context) Result
	Commit(ctx context.Context, txc *Context)
	Abort(ctx context.Context, txc *Context)
}
