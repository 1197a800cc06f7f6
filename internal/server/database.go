package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/document-extractor/internal/common"
	repo "github.com/joseph-ayodele/document-extractor/internal/repository"
)

// ConnectDB opens the extraction journal and pings it once so a bad DSN fails at startup.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := repo.Open(ctx, repo.ConfigFrom(cfg), logger)
	if err != nil {
		return nil, err
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if err := db.HealthCheck(ctx, timeout); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
