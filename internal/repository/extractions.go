package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
)

var ErrNotFound = errors.New("extraction not found")

// ExtractionOutcome is what a finished run writes back to its journal row.
type ExtractionOutcome struct {
	Status       constants.RunStatus
	Record       *entity.DocumentRecord
	Diagnostics  *entity.Diagnostics
	ErrorMessage string
}

type ExtractionRepository interface {
	Start(ctx context.Context, sourcePath, contentHash string) (*entity.Extraction, error)
	Finish(ctx context.Context, id uuid.UUID, out ExtractionOutcome) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Extraction, error)
	List(ctx context.Context, status constants.RunStatus) ([]entity.Extraction, error)
	FindCompletedByHash(ctx context.Context, contentHash string) (*entity.Extraction, error)
}

type extractionRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractionRepository(db *DB, log *slog.Logger) ExtractionRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractionRepo{db: db, log: log}
}

func (r *extractionRepo) Start(ctx context.Context, sourcePath, contentHash string) (*entity.Extraction, error) {
	ex := &entity.Extraction{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		ContentHash: contentHash,
		Status:      constants.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`INSERT INTO extractions (id, source_path, content_hash, status, started_at_ms) VALUES (?, ?, ?, ?, ?)`),
		ex.ID.String(), ex.SourcePath, ex.ContentHash, string(ex.Status), ex.StartedAt.UnixMilli(),
	)
	if err != nil {
		r.log.Error("extraction start failed", "path", sourcePath, "err", err)
		return nil, fmt.Errorf("insert extraction: %w", err)
	}
	r.log.Info("extraction started", "extraction_id", ex.ID, "path", sourcePath)
	return ex, nil
}

func (r *extractionRepo) Finish(ctx context.Context, id uuid.UUID, out ExtractionOutcome) error {
	recJSON, err := nullJSON(out.Record)
	if err != nil {
		return err
	}
	diagJSON, err := nullJSON(out.Diagnostics)
	if err != nil {
		return err
	}
	var msg sql.NullString
	if out.ErrorMessage != "" {
		msg = sql.NullString{String: out.ErrorMessage, Valid: true}
	}

	res, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`UPDATE extractions SET status = ?, record_json = ?, diagnostics_json = ?, error_message = ?, finished_at_ms = ? WHERE id = ?`),
		string(out.Status), recJSON, diagJSON, msg, time.Now().UTC().UnixMilli(), id.String(),
	)
	if err != nil {
		r.log.Error("extraction finish failed", "extraction_id", id, "err", err)
		return fmt.Errorf("update extraction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if out.Status == constants.RunStatusCompleted {
		r.log.Info("extraction finished", "extraction_id", id, "status", out.Status)
	} else {
		r.log.Warn("extraction finished", "extraction_id", id, "status", out.Status, "error", out.ErrorMessage)
	}
	return nil
}

const selectColumns = `SELECT id, source_path, content_hash, status, record_json, diagnostics_json, error_message, started_at_ms, finished_at_ms FROM extractions`

func (r *extractionRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Extraction, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(selectColumns+` WHERE id = ?`), id.String())
	ex, err := scanExtraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ex, err
}

// List returns journal rows oldest first; an empty status lists every row.
func (r *extractionRepo) List(ctx context.Context, status constants.RunStatus) ([]entity.Extraction, error) {
	query := selectColumns
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY started_at_ms, source_path`

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Warn("close rows failed", "err", err)
		}
	}(rows)

	var out []entity.Extraction
	for rows.Next() {
		ex, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ex)
	}
	return out, rows.Err()
}

// FindCompletedByHash returns the latest completed run for the same content, if any.
func (r *extractionRepo) FindCompletedByHash(ctx context.Context, contentHash string) (*entity.Extraction, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		selectColumns+` WHERE content_hash = ? AND status = ? ORDER BY started_at_ms DESC LIMIT 1`),
		contentHash, string(constants.RunStatusCompleted),
	)
	ex, err := scanExtraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ex, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExtraction(s scanner) (*entity.Extraction, error) {
	var (
		id, path, hash, status string
		recJSON, diagJSON, msg sql.NullString
		startedMS              int64
		finishedMS             sql.NullInt64
	)
	if err := s.Scan(&id, &path, &hash, &status, &recJSON, &diagJSON, &msg, &startedMS, &finishedMS); err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse extraction id: %w", err)
	}
	ex := &entity.Extraction{
		ID:          uid,
		SourcePath:  path,
		ContentHash: hash,
		Status:      constants.RunStatus(status),
		StartedAt:   time.UnixMilli(startedMS).UTC(),
	}
	if recJSON.Valid {
		ex.Record = entity.NewDocumentRecord()
		if err := json.Unmarshal([]byte(recJSON.String), ex.Record); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
	}
	if diagJSON.Valid {
		ex.Diagnostics = &entity.Diagnostics{}
		if err := json.Unmarshal([]byte(diagJSON.String), ex.Diagnostics); err != nil {
			return nil, fmt.Errorf("decode diagnostics: %w", err)
		}
	}
	if msg.Valid {
		ex.ErrorMessage = &msg.String
	}
	if finishedMS.Valid {
		t := time.UnixMilli(finishedMS.Int64).UTC()
		ex.FinishedAt = &t
	}
	return ex, nil
}

func nullJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode json: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
