package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/document-extractor/internal/pipeline"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document to extract.
type Job struct {
	ID          uuid.UUID
	Path        string
	ContentHash string
	SubmittedAt time.Time
}

// Result is delivered on the queue's results channel once a job finishes.
type Result struct {
	Job        Job
	Outcome    pipeline.Outcome
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Processor runs one document through the pipeline.
type Processor interface {
	Process(ctx context.Context, path string) (pipeline.Outcome, error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Cancel(id uuid.UUID) bool
	Results() <-chan Result
	Shutdown(ctx context.Context)
}
