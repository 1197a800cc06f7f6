package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("postgres rebind = %q", got)
	}
	lite := &DB{Dialect: SQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}

func TestExtractionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractionRepository(openTestDB(t), nil)

	ex, err := repo.Start(ctx, "/scans/a.png", "hash-a")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if ex.Status != constants.RunStatusRunning {
		t.Fatalf("status = %s", ex.Status)
	}

	rec := entity.NewDocumentRecord()
	rec.DocumentType = constants.Invoice
	rec.DocumentNumber = "INV-7"
	rec.TotalAmount = "118.00"
	rec.Items = append(rec.Items, entity.LineItem{Description: "Widget", Amount: "100.00"})
	diag := &entity.Diagnostics{RequestID: "r1", LLMSkipReason: "llm disabled"}

	if err := repo.Finish(ctx, ex.ID, ExtractionOutcome{
		Status:      constants.RunStatusCompleted,
		Record:      rec,
		Diagnostics: diag,
	}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := repo.Get(ctx, ex.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != constants.RunStatusCompleted || got.FinishedAt == nil {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.Record == nil || got.Record.DocumentNumber != "INV-7" || len(got.Record.Items) != 1 {
		t.Fatalf("record not round-tripped: %+v", got.Record)
	}
	if got.Diagnostics == nil || got.Diagnostics.LLMSkipReason != "llm disabled" {
		t.Fatalf("diagnostics not round-tripped: %+v", got.Diagnostics)
	}
	if got.ErrorMessage != nil {
		t.Fatalf("error message = %q, want nil", *got.ErrorMessage)
	}

	hit, err := repo.FindCompletedByHash(ctx, "hash-a")
	if err != nil || hit.ID != ex.ID {
		t.Fatalf("find by hash = %v, %v", hit, err)
	}
}

func TestExtractionListAndFailures(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractionRepository(openTestDB(t), nil)

	ok, _ := repo.Start(ctx, "/scans/ok.png", "h1")
	bad, _ := repo.Start(ctx, "/scans/bad.png", "h2")
	if err := repo.Finish(ctx, ok.ID, ExtractionOutcome{Status: constants.RunStatusCompleted, Record: entity.NewDocumentRecord()}); err != nil {
		t.Fatalf("finish ok: %v", err)
	}
	if err := repo.Finish(ctx, bad.ID, ExtractionOutcome{Status: constants.RunStatusFailed, ErrorMessage: "decode image: unknown format"}); err != nil {
		t.Fatalf("finish bad: %v", err)
	}

	all, err := repo.List(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("list all = %d, %v", len(all), err)
	}
	failed, err := repo.List(ctx, constants.RunStatusFailed)
	if err != nil || len(failed) != 1 {
		t.Fatalf("list failed = %d, %v", len(failed), err)
	}
	if failed[0].Record != nil || failed[0].ErrorMessage == nil || *failed[0].ErrorMessage != "decode image: unknown format" {
		t.Fatalf("failed row = %+v", failed[0])
	}

	if _, err := repo.FindCompletedByHash(ctx, "h2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("failed run should not count as completed, got %v", err)
	}
	if _, err := repo.Get(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get unknown = %v", err)
	}
	if err := repo.Finish(ctx, uuid.New(), ExtractionOutcome{Status: constants.RunStatusCompleted}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("finish unknown = %v", err)
	}
}
