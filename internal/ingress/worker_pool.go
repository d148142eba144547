package ingress

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/cardswitch/card-switch/internal/domain/transaction"
	"github.com/cardswitch/card-switch/internal/pipeline"
)

// WorkerPoolConfig bounds the pool and the per-transaction deadline.
type WorkerPoolConfig struct {
	Size               int
	TransactionTimeout time.Duration
}

// WorkerPool drains the inbound queue through a bounded pool of pipeline
// workers. Each worker drives one transaction sequentially through the
// dispatcher under the configured deadline. The pool owns the processing
// counters; they are reachable only through accessor methods.
type WorkerPool struct {
	pool       *ants.Pool
	queue      *Queue
	dispatcher *pipeline.Dispatcher
	timeout    time.Duration
	logger     *slog.Logger
	wg         sync.WaitGroup

	total    atomic.Int64
	approved atomic.Int64
	declined atomic.Int64
	faults   atomic.Int64
}

// NewWorkerPool creates the pool without starting consumption.
func NewWorkerPool(
	dispatcher *pipeline.Dispatcher,
	queue *Queue,
	cfg WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPool, error) {
	pool, err := ants.NewPool(cfg.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPool{
		pool:       pool,
		queue:      queue,
		dispatcher: dispatcher,
		timeout:    cfg.TransactionTimeout,
		logger:     logger,
	}, nil
}

// Start launches the queue consumer. It returns immediately; consumption
// stops when ctx is cancelled.
func (p *WorkerPool) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			item, err := p.queue.Dequeue(ctx)
			if err != nil {
				p.logger.Info("inbound queue consumer stopping", "reason", err)
				return
			}

			p.wg.Add(1)
			submitErr := p.pool.Submit(func() {
				defer p.wg.Done()
				p.process(ctx, item)
			})
			if submitErr != nil {
				p.wg.Done()
				p.faults.Add(1)
				p.logger.Error("failed to submit transaction to worker pool", "error", submitErr)
			}
		}
	}()
}

// process runs one transaction end to end on the calling worker.
func (p *WorkerPool) process(parent context.Context, item Item) {
	runCtx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	txc := pipeline.NewContext(item.Request, item.Source)
	p.dispatcher.Run(runCtx, txc)

	p.total.Add(1)
	if txc.Transaction == nil {
		p.faults.Add(1)
		return
	}
	switch txc.Transaction.Status {
	case transaction.StatusApproved, transaction.StatusReversed:
		p.approved.Add(1)
	case transaction.StatusDeclined:
		p.declined.Add(1)
	case transaction.StatusError, transaction.StatusTimeout:
		p.faults.Add(1)
	}
}

// Shutdown waits for in-flight transactions, then releases the workers.
func (p *WorkerPool) Shutdown() {
	p.logger.Info("shutting down pipeline worker pool", "running_workers", p.pool.Running())
	p.wg.Wait()
	p.pool.Release()
}

// Running returns the number of busy workers.
func (p *WorkerPool) Running() int { return p.pool.Running() }

// Capacity returns the pool bound.
func (p *WorkerPool) Capacity() int { return p.pool.Cap() }

// TotalProcessed returns the number of completed pipeline runs.
func (p *WorkerPool) TotalProcessed() int64 { return p.total.Load() }

// ApprovedCount returns the number of approved transactions.
func (p *WorkerPool) ApprovedCount() int64 { return p.approved.Load() }

// DeclinedCount returns the number of business declines.
func (p *WorkerPool) DeclinedCount() int64 { return p.declined.Load() }

// FaultCount returns the number of pipeline faults.
func (p *WorkerPool) FaultCount() int64 { return p.faults.Load() }
