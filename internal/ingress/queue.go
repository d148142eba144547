// Package ingress decouples message arrival from pipeline execution: a
// bounded queue fed by the connection layer, drained by a fixed-size pool
// of pipeline workers.
package ingress

import (
	"context"

	"github.com/cardswitch/card-switch/internal/domain/iso"
)

// Item is one inbound arrival: the decoded request together with the
// origin connection handle the response must return through.
type Item struct {
	Request *iso.Message
	Source  iso.Source
}

// Queue is the bounded, ordered hand-off between connection handlers and
// the pipeline workers. A full queue blocks the producer — slow downstream
// processing degrades as added latency, never as silently dropped
// messages. Ordering across independent connections is not guaranteed.
type Queue struct {
	items chan Item
}

// NewQueue creates a queue with the given capacity bound.
func NewQueue(capacity int) *Queue {
	return &Queue{
		items: make(chan Item, capacity),
	}
}

// Enqueue hands an arrival to the pipeline, blocking while the queue is
// full until the submitting context is cancelled.
func (q *Queue) Enqueue(ctx context.Context, item Item) error {
	select {
	case q.items <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue takes the next arrival, blocking until one is available or the
// consuming context is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (Item, error) {
	select {
	case item := <-q.items:
		return item, nil
	case <-ctx.Done():
		return Item{}, ctx.Err()
	}
}

// Depth returns the number of queued arrivals.
func (q *Queue) Depth() int {
	return len(q.items)
}

// Capacity returns the queue bound.
func (q *Queue) Capacity() int {
	return cap(q.items)
}
