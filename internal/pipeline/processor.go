package pipeline

import (
	"bytes"
	"context"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/llm"
	"github.com/joseph-ayodele/document-extractor/internal/metrics"
	"github.com/joseph-ayodele/document-extractor/internal/ocr"
	"github.com/joseph-ayodele/document-extractor/internal/patterns"
	"github.com/joseph-ayodele/document-extractor/internal/preprocess"
	"github.com/joseph-ayodele/document-extractor/internal/rules"
	"github.com/shopspring/decimal"
)

// Config wires one Processor. Nothing is read from globals.
type Config struct {
	Recognizer *ocr.Recognizer   // nil means no OCR engines; image runs then yield empty text
	Rules      *rules.Extractor  // default rules.NewExtractor(patterns.NewRegistry(), logger)
	LLM        *llm.Extractor    // default: LLM Unavailable
	Preprocess preprocess.Filter // default preprocess.Default()
	Tolerance  *decimal.Decimal  // nil means DefaultTolerance; zero requires an exact match
	Logger     *slog.Logger
}

// Outcome is the result of one run. Record is set only when Status is COMPLETED.
type Outcome struct {
	Status      constants.RunStatus
	Record      *entity.DocumentRecord
	Diagnostics *entity.Diagnostics
}

// Processor is the extraction orchestrator:
// INIT -> TEXT_MERGED -> RULE_EXTRACTED -> [LLM_EXTRACTED] -> MERGED -> FINALIZED.
// It is safe for concurrent use; runs share no mutable state.
type Processor struct {
	recognizer *ocr.Recognizer
	rules      *rules.Extractor
	llm        *llm.Extractor
	filter     preprocess.Filter
	tolerance  decimal.Decimal
	logger     *slog.Logger
}

func NewProcessor(cfg Config) *Processor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Rules == nil {
		cfg.Rules = rules.NewExtractor(patterns.NewRegistry(), logger)
	}
	if cfg.LLM == nil {
		cfg.LLM = llm.NewExtractor(nil, llm.WithLogger(logger))
	}
	if cfg.Preprocess == nil {
		cfg.Preprocess = preprocess.Default()
	}
	tolerance := DefaultTolerance
	if cfg.Tolerance != nil {
		tolerance = *cfg.Tolerance
	}
	return &Processor{
		recognizer: cfg.Recognizer,
		rules:      cfg.Rules,
		llm:        cfg.LLM,
		filter:     cfg.Preprocess,
		tolerance:  tolerance,
		logger:     logger,
	}
}

// run carries the per-document state of one pipeline pass.
type run struct {
	ctx    context.Context
	reqID  string
	start  time.Time
	diag   *entity.Diagnostics
	logger *slog.Logger
}

func (p *Processor) newRun(ctx context.Context) *run {
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
		ctx = common.WithRequestID(ctx, reqID)
	}
	logger := common.LoggerFromContext(ctx, p.logger).With("req_id", reqID)
	ctx = common.WithLogger(ctx, logger)
	diag := &entity.Diagnostics{RequestID: reqID}
	diag.Advance(constants.StageInit)
	return &run{ctx: ctx, reqID: reqID, start: time.Now(), diag: diag, logger: logger}
}

// Process loads the image at path and runs the full pipeline. An unreadable or
// undecodable file is an InputError and the only failure besides cancellation.
func (p *Processor) Process(ctx context.Context, path string) (Outcome, error) {
	img, err := preprocess.Load(path)
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues(string(constants.RunStatusFailed)).Inc()
		p.logger.Error("pipeline.input.failed", "path", path, "error", err)
		return Outcome{Status: constants.RunStatusFailed}, err
	}
	return p.ProcessImage(ctx, filepath.Base(path), img)
}

// ProcessBytes decodes an encoded image (PNG, JPEG, TIFF, BMP, GIF) and runs the pipeline.
func (p *Processor) ProcessBytes(ctx context.Context, name string, data []byte) (Outcome, error) {
	img, err := preprocess.Decode(bytes.NewReader(data))
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues(string(constants.RunStatusFailed)).Inc()
		p.logger.Error("pipeline.input.failed", "name", name, "error", err)
		return Outcome{Status: constants.RunStatusFailed}, err
	}
	return p.ProcessImage(ctx, name, img)
}

// ProcessImage preprocesses img, fans it out to every OCR engine and continues
// with the merged text.
func (p *Processor) ProcessImage(ctx context.Context, name string, img image.Image) (Outcome, error) {
	r := p.newRun(ctx)
	if err := r.ctx.Err(); err != nil {
		return p.cancel(r, err)
	}

	png, err := preprocess.EncodePNG(img, p.filter)
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues(string(constants.RunStatusFailed)).Inc()
		return Outcome{Status: constants.RunStatusFailed}, common.InputError("encode preprocessed image", err)
	}

	var results []ocr.Result
	if p.recognizer != nil {
		var failed []entity.BackendFailure
		results, failed = p.recognizer.RecognizeAll(r.ctx, ocr.Image{Name: name, PNG: png})
		r.diag.BackendsFailed = append(r.diag.BackendsFailed, failed...)
	}
	if err := r.ctx.Err(); err != nil {
		return p.cancel(r, err)
	}
	return p.fromResults(r, results)
}

// ProcessResults merges pre-recognized engine results and runs the rest of the pipeline.
func (p *Processor) ProcessResults(ctx context.Context, results ...ocr.Result) (Outcome, error) {
	r := p.newRun(ctx)
	if err := r.ctx.Err(); err != nil {
		return p.cancel(r, err)
	}
	return p.fromResults(r, results)
}

// ProcessText runs the pipeline on already merged text.
func (p *Processor) ProcessText(ctx context.Context, text ocr.RawText) (Outcome, error) {
	r := p.newRun(ctx)
	if err := r.ctx.Err(); err != nil {
		return p.cancel(r, err)
	}
	r.diag.Advance(constants.StageTextMerged)
	return p.extract(r, text)
}

func (p *Processor) fromResults(r *run, results []ocr.Result) (Outcome, error) {
	for _, res := range results {
		r.diag.BackendsUsed = append(r.diag.BackendsUsed, res.Engine)
	}
	text := ocr.Merge(results...)
	r.diag.Advance(constants.StageTextMerged)
	r.logger.Info("pipeline.text.merged",
		"engines", len(results),
		"failed", len(r.diag.BackendsFailed),
		"lines", text.Len(),
	)
	return p.extract(r, text)
}

// extract runs TEXT_MERGED onwards. The context is checked at every stage boundary.
func (p *Processor) extract(r *run, text ocr.RawText) (Outcome, error) {
	if err := r.ctx.Err(); err != nil {
		return p.cancel(r, err)
	}

	ruled := p.rules.Extract(text)
	r.diag.Advance(constants.StageRuleExtracted)
	r.diag.DroppedRows = ruled.DroppedRows
	r.diag.DiscardedFields = append(r.diag.DiscardedFields, prefixed("rules", ruled.Discarded)...)
	metrics.DroppedRows.Add(float64(ruled.DroppedRows))
	metrics.DiscardedFields.WithLabelValues("rules").Add(float64(len(ruled.Discarded)))
	r.logger.Info("pipeline.rules.ok",
		"items", len(ruled.Record.Items),
		"dropped_rows", ruled.DroppedRows,
		"discarded", len(ruled.Discarded),
	)
	if err := r.ctx.Err(); err != nil {
		return p.cancel(r, err)
	}

	llmRes := p.llm.Extract(r.ctx, text)
	if err := r.ctx.Err(); err != nil {
		return p.cancel(r, err)
	}
	if llmRes.Record != nil {
		r.diag.Advance(constants.StageLLMExtracted)
		r.diag.LLMContributed = true
		r.diag.DiscardedFields = append(r.diag.DiscardedFields, prefixed("llm", llmRes.Discarded)...)
		metrics.LLMContributions.Inc()
		metrics.DiscardedFields.WithLabelValues("llm").Add(float64(len(llmRes.Discarded)))
	} else {
		r.diag.LLMSkipReason = llmRes.SkipReason
	}

	merged := MergeRecords(ruled.Record, llmRes.Record)
	r.diag.Advance(constants.StageMerged)

	if warn := CheckConsistency(merged, p.tolerance); warn != nil {
		r.diag.Consistency = warn
		metrics.ConsistencyWarnings.Inc()
		r.logger.Warn("pipeline.consistency.mismatch",
			"error", common.ErrConsistency,
			"expected", warn.Expected,
			"reported", warn.Reported,
			"difference", warn.Difference,
		)
	}
	if err := r.ctx.Err(); err != nil {
		return p.cancel(r, err)
	}

	r.diag.Advance(constants.StageFinalized)
	elapsed := time.Since(r.start)
	r.diag.ElapsedMS = elapsed.Milliseconds()
	metrics.DocumentsProcessed.WithLabelValues(string(constants.RunStatusCompleted)).Inc()
	metrics.ExtractionDuration.Observe(elapsed.Seconds())
	r.logger.Info("pipeline.extract.ok",
		"document_type", merged.DocumentType,
		"items", len(merged.Items),
		"llm_contributed", r.diag.LLMContributed,
		"elapsed_ms", r.diag.ElapsedMS,
	)
	return Outcome{Status: constants.RunStatusCompleted, Record: merged, Diagnostics: r.diag}, nil
}

// cancel ends a run without a record; partial results are never returned.
func (p *Processor) cancel(r *run, cause error) (Outcome, error) {
	r.diag.ElapsedMS = time.Since(r.start).Milliseconds()
	stage := r.diag.Current()
	metrics.DocumentsProcessed.WithLabelValues(string(constants.RunStatusCanceled)).Inc()
	r.logger.Warn("pipeline.extract.canceled", "stage", stage, "error", cause)
	return Outcome{Status: constants.RunStatusCanceled, Diagnostics: r.diag}, common.Canceled(string(stage), cause)
}

func prefixed(source string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = source + ":" + p
	}
	return out
}
