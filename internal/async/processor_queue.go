package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/metrics"
)

// ProcessorQueue runs documents on a fixed pool of workers. Every job gets its
// own context, so canceling or timing out one document never touches another.
// Callers must drain Results until it is closed by Shutdown.
type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch      chan Job
	results chan Result
	wg      sync.WaitGroup
	once    sync.Once

	mu     sync.Mutex
	closed bool

	cmu     sync.Mutex
	running map[uuid.UUID]context.CancelFunc
	queued  map[uuid.UUID]bool // waiting jobs; true once canceled
}

var _ Queue = (*ProcessorQueue)(nil)

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
			q.results = make(chan Result, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:     proc,
		logger:   logger,
		workers:  4,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 256),
		results:  make(chan Result, 256),
		running:  make(map[uuid.UUID]context.CancelFunc),
		queued:   make(map[uuid.UUID]bool),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					metrics.QueueLength.Dec()
					q.results <- q.run(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) Result {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	ctx = common.WithRequestID(ctx, job.ID.String())

	q.cmu.Lock()
	if q.queued[job.ID] {
		cancel()
	}
	delete(q.queued, job.ID)
	q.running[job.ID] = cancel
	q.cmu.Unlock()

	started := time.Now()
	outcome, err := q.proc.Process(ctx, job.Path)
	finished := time.Now()

	q.cmu.Lock()
	delete(q.running, job.ID)
	q.cmu.Unlock()

	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "status", outcome.Status, "error", err)
	} else {
		q.logger.Info("processed file successfully", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "elapsed_ms", finished.Sub(started).Milliseconds())
	}
	return Result{Job: job, Outcome: outcome, Err: err, StartedAt: started, FinishedAt: finished}
}

// Enqueue blocks while the queue is full, until ctx ends.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.ID)
		return ErrQueueClosed
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	q.cmu.Lock()
	q.queued[job.ID] = false
	q.cmu.Unlock()
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", job.ID)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			q.cmu.Lock()
			delete(q.queued, job.ID)
			q.cmu.Unlock()
			return ctx.Err()
		}
	}
	metrics.QueueLength.Inc()
	q.logger.Info("queued file for processing", "job_id", job.ID, "path", job.Path)
	return nil
}

// Cancel stops a running job, or marks a queued one so it ends as canceled
// when a worker picks it up. It reports false for unknown or finished jobs.
func (q *ProcessorQueue) Cancel(id uuid.UUID) bool {
	q.cmu.Lock()
	defer q.cmu.Unlock()
	if cancel, ok := q.running[id]; ok {
		cancel()
		return true
	}
	if _, ok := q.queued[id]; ok {
		q.queued[id] = true
		return true
	}
	return false
}

func (q *ProcessorQueue) Results() <-chan Result { return q.results }

// Shutdown stops accepting jobs, lets workers drain the queue and closes Results.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.wg.Wait()
		close(q.results)
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
