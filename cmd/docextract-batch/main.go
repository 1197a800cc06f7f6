package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/async"
	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/export"
	"github.com/joseph-ayodele/document-extractor/internal/ingest"
	"github.com/joseph-ayodele/document-extractor/internal/pipeline"
	repo "github.com/joseph-ayodele/document-extractor/internal/repository"
	"github.com/joseph-ayodele/document-extractor/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory of scanned documents (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		dsn        = flag.String("db", "", "journal DSN: postgres://... or a SQLite file; empty keeps it in memory")
		workers    = flag.Int("workers", 0, "number of concurrent extractions (overrides WORKERS)")
		envFile    = flag.String("env", ".env", "optional env file")
		showHidden = flag.Bool("hidden", false, "include hidden files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(2)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "extractions.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*envFile)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	journal := repo.NewExtractionRepository(db, logger)

	processor, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(2)
	}

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Batch.Workers),
		async.WithQueueSize(cfg.Batch.QueueSize),
		async.WithProcessTimeout(cfg.Batch.DocumentTimeout),
	)
	ingestion := server.NewIngestionService(ingest.NewFSIngestor(logger), queue, journal, logger)

	recorded := make(chan map[constants.RunStatus]int, 1)
	go func() {
		// Journal writes outlive an interrupt so every started run gets a final status.
		recorded <- ingestion.Record(context.WithoutCancel(ctx), queue.Results())
	}()

	start := time.Now()
	logger.Info("starting ingestion", "dir", *dir, "workers", cfg.Batch.Workers)
	subs, stats, err := ingestion.SubmitDirectory(ctx, *dir, !*showHidden)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
	}
	queued, skipped, failed := 0, 0, 0
	for _, s := range subs {
		switch {
		case s.Err != "":
			failed++
		case s.Skipped:
			skipped++
		default:
			queued++
		}
	}
	logger.Info("ingestion complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"queued", queued,
		"skipped", skipped,
		"failed", failed,
	)

	queue.Shutdown(context.Background())
	counts := <-recorded
	if err != nil {
		os.Exit(1)
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsx, err := export.NewService(journal, logger).ExportXLSX(context.WithoutCancel(ctx), "")
	if err != nil {
		logger.Error("failed to export extractions", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"completed", counts[constants.RunStatusCompleted],
		"canceled", counts[constants.RunStatusCanceled],
		"input_errors", counts[constants.RunStatusFailed],
		"output_file", *out,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files queued: %d (skipped %d, unreadable %d)\n", queued, skipped, failed)
	fmt.Printf("- Completed: %d\n", counts[constants.RunStatusCompleted])
	fmt.Printf("- Canceled: %d\n", counts[constants.RunStatusCanceled])
	fmt.Printf("- Input errors: %d\n", counts[constants.RunStatusFailed])
	fmt.Printf("- Output: %s\n", *out)
}
