package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DocumentQueue runs jobs on a fixed set of workers. Each worker handles one
// document at a time, so memory stays bounded by workers times the pipeline's
// own page pool.
type DocumentQueue struct {
	handle  Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*DocumentQueue)

func WithWorkers(n int) Option {
	return func(q *DocumentQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *DocumentQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *DocumentQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewDocumentQueue(handle Handler, logger *slog.Logger, opts ...Option) *DocumentQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &DocumentQueue{
		handle:  handle,
		logger:  logger,
		workers: 2,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *DocumentQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *DocumentQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			q.logger.Error("job panicked", "worker_id", workerID, "path", job.Path, "panic", p)
		}
	}()

	start := time.Now()
	if err := q.handle(ctx, job); err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", err)
		return
	}
	q.logger.Info("processed document",
		"worker_id", workerID,
		"path", job.Path,
		"queued_ms", start.Sub(job.SubmittedAt).Milliseconds(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *DocumentQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx.
func (q *DocumentQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
