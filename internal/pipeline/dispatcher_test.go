package pipeline

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cardswitch/card-switch/internal/domain/iso"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// recordingStage appends its lifecycle calls to a shared trace so tests can
// assert ordering across stages.
type recordingStage struct {
	name    string
	result  Result
	prepare func(txc *Context) Result
	trace   *[]string
}

func (s *recordingStage) Name() string { return s.name }

func (s *recordingStage) Prepare(_ context.Context, txc *Context) Result {
	*s.trace = append(*s.trace, s.name+":prepare")
	if s.prepare != nil {
		return s.prepare(txc)
	}
	return s.result
}

func (s *recordingStage) Commit(_ context.Context, _ *Context) {
	*s.trace = append(*s.trace, s.name+":commit")
}

func (s *recordingStage) Abort(_ context.Context, _ *Context) {
	*s.trace = append(*s.trace, s.name+":abort")
}

// fakeSource captures delivered responses.
type fakeSource struct {
	id   string
	sent []*iso.Message
	err  error
}

func (s *fakeSource) Send(ctx context.Context, msg *iso.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSource) ID() string { return s.id }

// deliveringResponder mimics the response stage: it sends the context's
// response through the source.
type deliveringResponder struct {
	trace *[]string
}

func (s *deliveringResponder) Name() string { return "responder" }

func (s *deliveringResponder) Prepare(ctx context.Context, txc *Context) Result {
	*s.trace = append(*s.trace, "responder:deliver")
	if txc.Source == nil || txc.Response == nil {
		return AbortedNoJoin()
	}
	if err := txc.Source.Send(ctx, txc.Response); err != nil {
		return AbortedNoJoin()
	}
	return PreparedNoJoin()
}

func (s *deliveringResponder) Commit(_ context.Context, _ *Context) {}
func (s *deliveringResponder) Abort(_ context.Context, _ *Context)  {}

func purchaseRequest() *iso.Message {
	msg := iso.NewMessage(iso.MTIPurchase)
	msg.Set(iso.FieldPAN, "4111111111111111").
		Set(iso.FieldAmount, "150000").
		Set(iso.FieldTraceNumber, "123456")
	return msg
}

func TestDispatcher_ForwardOrderAndReverseCommit(t *testing.T) {
	var trace []string
	stages := []Stage{
		&recordingStage{name: "a", result: Prepared(), trace: &trace},
		&recordingStage{name: "b", result: Prepared(), trace: &trace},
		&recordingStage{name: "c", result: Prepared(), trace: &trace},
	}
	d := NewDispatcher(newTestLogger(), stages, &deliveringResponder{trace: &trace})

	source := &fakeSource{id: "acq-1"}
	txc := NewContext(purchaseRequest(), source)
	txc.Respond(ApprovedResponse(txc.Request, "123123"))

	d.Run(context.Background(), txc)

	assert.Equal(t, []string{
		"a:prepare", "b:prepare", "c:prepare",
		"c:commit", "b:commit", "a:commit",
		"responder:deliver",
	}, trace)
	assert.Len(t, source.sent, 1)
}

func TestDispatcher_AbortShortCircuitsAndRunsAbortCallbacks(t *testing.T) {
	var trace []string
	stages := []Stage{
		&recordingStage{name: "a", result: Prepared(), trace: &trace},
		&recordingStage{name: "b", result: Aborted(), trace: &trace},
		&recordingStage{name: "c", result: Prepared(), trace: &trace},
	}
	d := NewDispatcher(newTestLogger(), stages, &deliveringResponder{trace: &trace})

	source := &fakeSource{id: "acq-1"}
	txc := NewContext(purchaseRequest(), source)
	txc.Transaction = transaction.New(iso.MTIPurchase, "123456")

	d.Run(context.Background(), txc)

	// c never ran; a and b both get their abort callback, newest first.
	assert.Equal(t, []string{
		"a:prepare", "b:prepare",
		"b:abort", "a:abort",
		"responder:deliver",
	}, trace)

	assert.Equal(t, transaction.StatusError, txc.Transaction.Status)
	assert.Equal(t, iso.RespSystemMalfunction, txc.Transaction.ResponseCode)

	// A system-malfunction response was synthesized and delivered.
	assert.Len(t, source.sent, 1)
	assert.Equal(t, iso.MTIPurchaseResponse, source.sent[0].MTI)
	assert.Equal(t, iso.RespSystemMalfunction, source.sent[0].Field(iso.FieldResponseCode))
}

func TestDispatcher_NoJoinStagesSkipCallbacks(t *testing.T) {
	var trace []string
	stages := []Stage{
		&recordingStage{name: "a", result: Prepared(), trace: &trace},
		&recordingStage{name: "b", result: PreparedNoJoin(), trace: &trace},
		&recordingStage{name: "c", result: PreparedReadOnly(), trace: &trace},
	}
	d := NewDispatcher(newTestLogger(), stages, nil)

	txc := NewContext(purchaseRequest(), &fakeSource{id: "acq-1"})
	d.Run(context.Background(), txc)

	assert.Equal(t, []string{
		"a:prepare", "b:prepare", "c:prepare",
		"a:commit",
	}, trace)
}

func TestDispatcher_PanicBecomesAbort(t *testing.T) {
	var trace []string
	stages := []Stage{
		&recordingStage{name: "a", result: Prepared(), trace: &trace},
		&recordingStage{name: "boom", trace: &trace, prepare: func(_ *Context) Result {
			panic("stage blew up")
		}},
	}
	d := NewDispatcher(newTestLogger(), stages, &deliveringResponder{trace: &trace})

	source := &fakeSource{id: "acq-1"}
	txc := NewContext(purchaseRequest(), source)
	txc.Transaction = transaction.New(iso.MTIPurchase, "123456")

	assert.NotPanics(t, func() {
		d.Run(context.Background(), txc)
	})

	assert.Equal(t, transaction.StatusError, txc.Transaction.Status)
	assert.Len(t, source.sent, 1)
	assert.Equal(t, iso.RespSystemMalfunction, source.sent[0].Field(iso.FieldResponseCode))
}

func TestDispatcher_ExpiredContextFaultsWith96(t *testing.T) {
	var trace []string
	stages := []Stage{
		&recordingStage{name: "a", result: Prepared(), trace: &trace},
	}
	d := NewDispatcher(newTestLogger(), stages, &deliveringResponder{trace: &trace})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	source := &fakeSource{id: "acq-1"}
	txc := NewContext(purchaseRequest(), source)
	txc.Transaction = transaction.New(iso.MTIPurchase, "123456")

	d.Run(ctx, txc)

	// No stage ran; the caller still gets an answer even though the send
	// happens after the run deadline.
	assert.NotContains(t, trace, "a:prepare")
	assert.Equal(t, transaction.StatusTimeout, txc.Transaction.Status)
	assert.Equal(t, iso.RespSystemMalfunction, txc.Transaction.ResponseCode)
	assert.Len(t, source.sent, 1)
	assert.Equal(t, iso.RespSystemMalfunction, source.sent[0].Field(iso.FieldResponseCode))
}

// ctxObservingStage records the liveness of the context its join callback
// receives.
type ctxObservingStage struct {
	name     string
	trace    *[]string
	joinErrs []error
}

func (s *ctxObservingStage) Name() string { return s.name }

func (s *ctxObservingStage) Prepare(_ context.Context, _ *Context) Result {
	*s.trace = append(*s.trace, s.name+":prepare")
	return Prepared()
}

func (s *ctxObservingStage) Commit(ctx context.Context, _ *Context) {
	s.joinErrs = append(s.joinErrs, ctx.Err())
}

func (s *ctxObservingStage) Abort(ctx context.Context, _ *Context) {
	s.joinErrs = append(s.joinErrs, ctx.Err())
}

func TestDispatcher_JoinCallbacksOutliveRunDeadline(t *testing.T) {
	var trace []string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	observing := &ctxObservingStage{name: "a", trace: &trace}
	// Cancels the run mid-flight, so the next stage hits the deadline check.
	expiring := &recordingStage{name: "expiring", trace: &trace, prepare: func(_ *Context) Result {
		cancel()
		return Prepared()
	}}
	never := &recordingStage{name: "never", result: Prepared(), trace: &trace}
	d := NewDispatcher(newTestLogger(), []Stage{observing, expiring, never}, &deliveringResponder{trace: &trace})

	source := &fakeSource{id: "acq-1"}
	txc := NewContext(purchaseRequest(), source)
	txc.Transaction = transaction.New(iso.MTIPurchase, "123456")

	d.Run(ctx, txc)

	assert.NotContains(t, trace, "never:prepare")
	assert.Equal(t, transaction.StatusTimeout, txc.Transaction.Status)

	// The abort callback saw a live context despite the expired run, so a
	// journal write-back there is not starved.
	assert.Equal(t, []error{nil}, observing.joinErrs)
	assert.Len(t, source.sent, 1)
}

func TestDispatcher_ExistingResponseSurvivesAbort(t *testing.T) {
	var trace []string
	decline := &recordingStage{name: "decline", trace: &trace, prepare: func(txc *Context) Result {
		txc.Respond(ErrorResponse(txc.Request, iso.RespDecline))
		return PreparedReadOnly()
	}}
	failing := &recordingStage{name: "failing", result: Aborted(), trace: &trace}
	d := NewDispatcher(newTestLogger(), []Stage{decline, failing}, &deliveringResponder{trace: &trace})

	source := &fakeSource{id: "acq-1"}
	txc := NewContext(purchaseRequest(), source)

	d.Run(context.Background(), txc)

	// The decline already produced a response; no 96 overwrite.
	assert.Len(t, source.sent, 1)
	assert.Equal(t, iso.RespDecline, source.sent[0].Field(iso.FieldResponseCode))
}

func TestDispatcher_JoinCallbackPanicIsContained(t *testing.T) {
	var trace []string
	panicker := &panickyCommitStage{trace: &trace}
	stages := []Stage{
		&recordingStage{name: "a", result: Prepared(), trace: &trace},
		panicker,
	}
	d := NewDispatcher(newTestLogger(), stages, nil)

	txc := NewContext(purchaseRequest(), &fakeSource{id: "acq-1"})
	assert.NotPanics(t, func() {
		d.Run(context.Background(), txc)
	})

	// The panicking commit did not stop a's commit from running.
	assert.Contains(t, trace, "a:commit")
}

type panickyCommitStage struct {
	trace *[]string
}

func (s *panickyCommitStage) Name() string { return "panicky" }

func (s *panickyCommitStage) Prepare(_ context.Context, _ *Context) Result {
	*s.trace = append(*s.trace, "panicky:prepare")
	return Prepared()
}

func (s *panickyCommitStage) Commit(_ context.Context, _ *Context) {
	panic("commit blew up")
}

func (s *panickyCommitStage) Abort(_ context.Context, _ *Context) {}
