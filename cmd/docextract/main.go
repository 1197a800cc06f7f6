package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/pipeline"
)

const (
	exitOK    = 0
	exitInput = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run extracts one image and writes its record as JSON. It returns the
// process exit code: 0 on completion even with empty fields, 1 when the input
// cannot be read (or the run is interrupted), 2 on bad usage.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("docextract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		out         = fs.String("o", "", "write the record JSON to this file instead of stdout")
		apiKey      = fs.String("api-key", "", "OpenAI API key (overrides OPENAI_API_KEY)")
		model       = fs.String("model", "", "LLM model name (overrides OPENAI_MODEL)")
		engines     = fs.String("engines", "", "comma separated OCR engines: tesseract,gosseract,azure")
		diagnostics = fs.Bool("diagnostics", false, "print run diagnostics as JSON to stderr")
		envFile     = fs.String("env", ".env", "optional env file")
		verbose     = fs.Bool("v", false, "debug logging")
	)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "usage: docextract [flags] <image>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	path := fs.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*envFile)
	if err != nil {
		logger.Error("load config", "error", err)
		return exitUsage
	}
	if *apiKey != "" {
		cfg.LLM.Provider = "openai"
		cfg.LLM.APIKey = *apiKey
	}
	if *model != "" {
		cfg.LLM.Model = *model
	}
	if *engines != "" {
		cfg.OCR.Engines = splitList(*engines)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitUsage
	}

	proc, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Error("build pipeline", "error", err)
		return exitUsage
	}

	outcome, err := proc.Process(ctx, path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "docextract: %v\n", err)
		return exitInput
	}

	if *diagnostics {
		enc := json.NewEncoder(stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(outcome.Diagnostics)
	}

	data, err := json.MarshalIndent(outcome.Record, "", "  ")
	if err != nil {
		logger.Error("encode record", "error", err)
		return exitInput
	}
	data = append(data, '\n')
	if *out == "" {
		_, _ = stdout.Write(data)
		return exitOK
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		_, _ = fmt.Fprintf(stderr, "docextract: write %s: %v\n", *out, err)
		return exitInput
	}
	return exitOK
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
