package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/async"
	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/ingest"
	"github.com/joseph-ayodele/document-extractor/internal/repository"
)

// Submission is the outcome of handing one path to the ingestion service.
type Submission struct {
	ingest.IngestionResult
	ExtractionID uuid.UUID // zero when nothing was queued
	Skipped      bool      // identical content already seen or completed
}

// IngestionService journals files and queues them for extraction.
type IngestionService struct {
	ingestor ingest.Ingestor
	queue    async.Queue
	journal  repository.ExtractionRepository
	logger   *slog.Logger
}

func NewIngestionService(ing ingest.Ingestor, queue async.Queue, journal repository.ExtractionRepository, logger *slog.Logger) *IngestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestionService{ingestor: ing, queue: queue, journal: journal, logger: logger}
}

// Submit ingests one file. Content that this service already saw, or that the
// journal already holds a completed run for, is not extracted again.
func (s *IngestionService) Submit(ctx context.Context, path string) (Submission, error) {
	path = strings.TrimSpace(path)
	if v := common.NewValidator().Field("path", path, common.Required, common.MaxLength(4096)); v.HasErrors() {
		return Submission{}, common.InputError(v.ErrorMessage(), nil)
	}

	r, err := s.ingestor.IngestPath(ctx, path)
	if err != nil {
		s.logger.Warn("ingest.path.failed", "path", path, "error", err)
		return Submission{IngestionResult: r}, err
	}
	return s.enqueue(ctx, r)
}

// SubmitDirectory ingests every image under root and queues the new ones.
// Per-file failures are reported in the returned submissions, not as an error.
func (s *IngestionService) SubmitDirectory(ctx context.Context, root string, skipHidden bool) ([]Submission, ingest.DirStats, error) {
	results, stats, err := s.ingestor.IngestDirectory(ctx, root, skipHidden)
	if err != nil {
		return nil, stats, err
	}
	subs := make([]Submission, 0, len(results))
	for _, r := range results {
		if r.Err != "" {
			subs = append(subs, Submission{IngestionResult: r})
			continue
		}
		sub, err := s.enqueue(ctx, r)
		if err != nil {
			sub.Err = err.Error()
		}
		subs = append(subs, sub)
	}
	return subs, stats, nil
}

func (s *IngestionService) enqueue(ctx context.Context, r ingest.IngestionResult) (Submission, error) {
	sub := Submission{IngestionResult: r}
	if !s.ingestor.MarkSeen(r.HashHex) {
		sub.Skipped = true
		s.logger.Info("ingest.path.deduplicated", "path", r.SourcePath, "hash", r.HashHex)
		return sub, nil
	}

	prev, err := s.journal.FindCompletedByHash(ctx, r.HashHex)
	switch {
	case err == nil:
		sub.Skipped = true
		sub.ExtractionID = prev.ID
		s.logger.Info("ingest.path.already_extracted", "path", r.SourcePath, "extraction_id", prev.ID)
		return sub, nil
	case !errors.Is(err, repository.ErrNotFound):
		s.ingestor.Forget(r.HashHex)
		return sub, err
	}

	ex, err := s.journal.Start(ctx, r.SourcePath, r.HashHex)
	if err != nil {
		s.ingestor.Forget(r.HashHex)
		return sub, err
	}
	job := async.Job{ID: ex.ID, Path: r.SourcePath, ContentHash: r.HashHex, SubmittedAt: time.Now()}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.ingestor.Forget(r.HashHex)
		out := repository.ExtractionOutcome{
			Status:       constants.RunStatusCanceled,
			ErrorMessage: "not queued: " + err.Error(),
		}
		if ferr := s.journal.Finish(context.WithoutCancel(ctx), ex.ID, out); ferr != nil {
			s.logger.Error("ingest.journal.failed", "extraction_id", ex.ID, "error", ferr)
		}
		return sub, err
	}
	sub.ExtractionID = ex.ID
	s.logger.Info("ingest.path.queued", "path", r.SourcePath, "extraction_id", ex.ID)
	return sub, nil
}

// Record drains queue results into the journal until the results channel is
// closed, and returns how many runs ended in each status. Content whose run
// did not complete can be submitted again.
func (s *IngestionService) Record(ctx context.Context, results <-chan async.Result) map[constants.RunStatus]int {
	counts := make(map[constants.RunStatus]int)
	for res := range results {
		out := repository.ExtractionOutcome{
			Status:      res.Outcome.Status,
			Record:      res.Outcome.Record,
			Diagnostics: res.Outcome.Diagnostics,
		}
		if out.Status == "" {
			out.Status = constants.RunStatusFailed
		}
		if res.Err != nil {
			out.ErrorMessage = res.Err.Error()
		}
		counts[out.Status]++
		if out.Status != constants.RunStatusCompleted {
			s.ingestor.Forget(res.Job.ContentHash)
		}
		if err := s.journal.Finish(ctx, res.Job.ID, out); err != nil {
			s.logger.Error("ingest.journal.failed", "extraction_id", res.Job.ID, "error", err)
		}
	}
	return counts
}
