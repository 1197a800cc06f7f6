package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/document-extractor/internal/async"
	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/export"
	"github.com/joseph-ayodele/document-extractor/internal/ingest"
	"github.com/joseph-ayodele/document-extractor/internal/pipeline"
	repo "github.com/joseph-ayodele/document-extractor/internal/repository"
	svc "github.com/joseph-ayodele/document-extractor/internal/server"
)

func main() {
	envFile := flag.String("env", ".env", "optional env file")
	flag.Parse()

	// Setup structured logger that outputs messages with variables but no time
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*envFile)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	journal := repo.NewExtractionRepository(db, logger)

	processor, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Batch.Workers),
		async.WithQueueSize(cfg.Batch.QueueSize),
		async.WithProcessTimeout(cfg.Batch.DocumentTimeout),
	)
	ingestion := svc.NewIngestionService(ingest.NewFSIngestor(logger), queue, journal, logger)
	recorded := make(chan struct{})
	go func() {
		defer close(recorded)
		ingestion.Record(context.WithoutCancel(ctx), queue.Results())
	}()

	if cfg.Server.WatchDir != "" {
		if err := watch(ctx, cfg.Server.WatchDir, ingestion, logger); err != nil {
			logger.Error("failed to start watcher", "dir", cfg.Server.WatchDir, "error", err)
			os.Exit(1)
		}
	}

	// gRPC server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.MaxRecvMsgSize(int(cfg.Server.MaxUpload) + 1<<10))
	svc.RegisterExtractorServer(grpcServer, svc.NewExtractorService(processor, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(svc.ExtractorServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	// HTTP server: uploads, ingest, export, metrics
	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: svc.NewHTTPHandler(processor, svc.HTTPConfig{
			MaxUpload: cfg.Server.MaxUpload,
			Exporter:  export.NewService(journal, logger),
			Ingestion: ingestion,
			Logger:    logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("docextractd listening", "grpc_addr", cfg.Server.GRPCAddr, "http_addr", cfg.Server.HTTPAddr)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	<-recorded
	logger.Info("stopped")
}

// watch submits every image that lands in dir, including those already there.
func watch(ctx context.Context, dir string, ingestion *svc.IngestionService, logger *slog.Logger) error {
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	logger.Info("watching for documents", "dir", dir)
	go func() {
		for {
			select {
			case p, ok := <-paths:
				if !ok {
					return
				}
				if _, err := ingestion.Submit(ctx, p); err != nil {
					logger.Warn("watch.submit.failed", "path", p, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("watch.error", "error", err)
			}
		}
	}()
	return nil
}
