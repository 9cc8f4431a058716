// Package queue carries session submissions from the HTTP layer to the
// ingest workers through a bounded in-memory channel.
package queue

import (
	"context"
	"sync"

	"github.com/okian/mahjic/internal/domain/model"
	"github.com/okian/mahjic/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Job is one validated session waiting to be ingested.
type Job struct {
	ID             string
	Source         model.Source
	Submission     model.SessionSubmission
	IdempotencyKey string

	// Reply receives exactly one JobResult. It must be buffered so a worker
	// never blocks on a submitter that gave up waiting.
	Reply chan JobResult
}

// JobResult is the outcome of ingesting a Job.
type JobResult struct {
	Result model.SessionResult
	Err    error
}

// NewJob returns a Job with a ready reply channel.
func NewJob(id string, src model.Source, sub model.SessionSubmission, idempotencyKey string) Job {
	return Job{
		ID:             id,
		Source:         src,
		Submission:     sub,
		IdempotencyKey: idempotencyKey,
		Reply:          make(chan JobResult, 1),
	}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns ErrFull or ErrClosed without blocking.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns the channel workers read from. The channel is closed
	// once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Job

	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	select {
	case q.jobs <- j:
		q.observeSize()
		return nil
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return ErrFull
	}
}

// Dequeue implements Queue. Every call returns the same underlying channel,
// so concurrent workers share the load.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Job {
	return q.jobs
}

// Len implements Queue.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.observeSize()
}

func (q *InMemoryQueue) observeSize() int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close stops accepting jobs. Pending jobs stay readable until drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed implements Queue.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
