package ingress

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardswitch/card-switch/internal/domain/iso"
	"github.com/cardswitch/card-switch/internal/domain/transaction"
	"github.com/cardswitch/card-switch/internal/pipeline"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// outcomeStage assigns a fixed status to every transaction it sees.
type outcomeStage struct {
	status transaction.Status
}

func (s *outcomeStage) Name() string { return "outcome" }

func (s *outcomeStage) Prepare(_ context.Context, txc *pipeline.Context) pipeline.Result {
	txc.Transaction = transaction.New(txc.Request.MTI, txc.Request.Field(iso.FieldTraceNumber))
	txc.Transaction.Status = s.status
	txc.Respond(pipeline.ApprovedResponse(txc.Request, ""))
	return pipeline.PreparedReadOnly()
}

func (s *outcomeStage) Commit(_ context.Context, _ *pipeline.Context) {}
func (s *outcomeStage) Abort(_ context.Context, _ *pipeline.Context)  {}

// countingSource counts delivered responses across workers.
type countingSource struct {
	mu    sync.Mutex
	count int
}

func (s *countingSource) Send(_ context.Context, _ *iso.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

func (s *countingSource) ID() string { return "test-source" }

func (s *countingSource) delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func newPoolFixture(t *testing.T, status transaction.Status) (*WorkerPool, *Queue, *countingSource) {
	t.Helper()
	logger := newTestLogger()

	dispatcher := pipeline.NewDispatcher(logger,
		[]pipeline.Stage{&outcomeStage{status: status}}, nil)

	queue := NewQueue(16)
	pool, err := NewWorkerPool(dispatcher, queue, WorkerPoolConfig{
		Size:               4,
		TransactionTimeout: time.Second,
	}, logger)
	require.NoError(t, err)
	return pool, queue, &countingSource{}
}

func enqueueN(t *testing.T, queue *Queue, source *countingSource, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		msg := iso.NewMessage(iso.MTIPurchase)
		msg.Set(iso.FieldTraceNumber, "123456")
		require.NoError(t, queue.Enqueue(context.Background(), Item{Request: msg, Source: source}))
	}
}

func TestWorkerPool_ProcessesQueuedTransactions(t *testing.T) {
	pool, queue, source := newPoolFixture(t, transaction.StatusApproved)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	enqueueN(t, queue, source, 8)

	assert.Eventually(t, func() bool {
		return pool.TotalProcessed() == 8
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(8), pool.ApprovedCount())
	assert.Zero(t, pool.DeclinedCount())
	assert.Zero(t, pool.FaultCount())

	cancel()
	pool.Shutdown()
}

func TestWorkerPool_CountsDeclines(t *testing.T) {
	pool, queue, source := newPoolFixture(t, transaction.StatusDeclined)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	enqueueN(t, queue, source, 3)

	assert.Eventually(t, func() bool {
		return pool.DeclinedCount() == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, pool.ApprovedCount())

	cancel()
	pool.Shutdown()
}

func TestWorkerPool_CountsFaults(t *testing.T) {
	pool, queue, source := newPoolFixture(t, transaction.StatusError)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	enqueueN(t, queue, source, 2)

	assert.Eventually(t, func() bool {
		return pool.FaultCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	pool.Shutdown()
}

func TestWorkerPool_CapacityBound(t *testing.T) {
	pool, _, _ := newPoolFixture(t, transaction.StatusApproved)
	assert.Equal(t, 4, pool.Capacity())
	pool.Shutdown()
}
