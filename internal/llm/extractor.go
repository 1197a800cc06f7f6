package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/metrics"
	"github.com/joseph-ayodele/document-extractor/internal/ocr"
)

const (
	defaultTimeout   = 45 * time.Second
	defaultMaxTokens = 3000
)

// Skip reasons reported when the backend answered but contributed nothing.
const (
	ReasonEmptyText   = "no text to extract from"
	ReasonTimeout     = "llm call timed out"
	ReasonNoJSON      = "response carried no json object"
	ReasonEmptyResult = "response carried no usable fields"
)

// Result is the outcome of one LLM pass. Record is nil whenever the pass made
// no contribution, and SkipReason then says why.
type Result struct {
	Record     *entity.DocumentRecord
	SkipReason string
	Dropped    []string
	Discarded  []string
	Elapsed    time.Duration
}

// Extractor runs the LLM-assisted pass over merged OCR text.
type Extractor struct {
	capability Capability
	timeout    time.Duration
	maxTokens  int
	truncate   Truncator
	logger     *slog.Logger
}

type Option func(*Extractor)

// WithTimeout bounds a single backend call.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// WithMaxPromptTokens sets the OCR text budget of the prompt.
func WithMaxPromptTokens(n int) Option {
	return func(e *Extractor) { e.maxTokens = n }
}

func WithTruncator(t Truncator) Option {
	return func(e *Extractor) { e.truncate = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor builds an extractor over capability. A nil capability is Unavailable.
func NewExtractor(capability Capability, opts ...Option) *Extractor {
	if capability == nil {
		capability = Unavailable{Reason: "no llm backend configured"}
	}
	e := &Extractor{
		capability: capability,
		timeout:    defaultTimeout,
		maxTokens:  defaultMaxTokens,
		truncate:   TruncateTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Capability returns the configured capability.
func (e *Extractor) Capability() Capability { return e.capability }

// Extract asks the backend for a record. It never fails: every problem turns
// into a Result with a nil Record and a SkipReason.
func (e *Extractor) Extract(ctx context.Context, text ocr.RawText) Result {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, e.logger)

	var backend Backend
	switch c := e.capability.(type) {
	case Available:
		backend = c.Backend
	case Unavailable:
		logger.Info("llm.extract.skipped", "reason", c.Reason)
		return Result{SkipReason: "llm unavailable: " + c.Reason}
	}
	if text.IsEmpty() {
		return Result{SkipReason: ReasonEmptyText}
	}

	prompt := BuildPrompt(text.Text(), e.maxTokens, e.truncate)
	logger.Info("llm.extract.start",
		"backend", backend.Name(),
		"prompt_chars", len(prompt),
	)

	callCtx, cancel := common.WithTimeout(ctx, e.timeout)
	defer cancel()
	reply, err := backend.Complete(callCtx, prompt)
	elapsed := time.Since(start)
	if err != nil {
		reason := common.BackendUnavailable(backend.Name(), err).Error()
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			reason = ReasonTimeout
		}
		metrics.BackendFailures.WithLabelValues(backend.Name()).Inc()
		logger.Warn("llm.extract.backend_error",
				"backend", backend.Name(),
			"error", err,
			"elapsed_ms", elapsed.Milliseconds(),
		)
		return Result{SkipReason: reason, Elapsed: elapsed}
	}

	res := e.interpret(reply, logger)
	res.Elapsed = elapsed
	if res.Record == nil {
		logger.Warn("llm.extract.no_contribution",
				"backend", backend.Name(),
			"reason", res.SkipReason,
			"elapsed_ms", elapsed.Milliseconds(),
		)
		return res
	}
	logger.Info("llm.extract.ok",
		"backend", backend.Name(),
		"items", len(res.Record.Items),
		"discarded", len(res.Discarded),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return res
}

// interpret turns a raw reply into a sanitized record.
func (e *Extractor) interpret(reply string, logger *slog.Logger) Result {
	if strings.TrimSpace(reply) == "" {
		return Result{SkipReason: ReasonEmptyResult}
	}
	obj, ok := ExtractJSONObject(reply)
	if !ok {
		return Result{SkipReason: ReasonNoJSON}
	}
	clean, dropped, err := NormalizeAndSanitizeJSON([]byte(obj), logger)
	if err != nil {
		return Result{SkipReason: "malformed response: " + err.Error()}
	}
	if err := ValidateDocumentJSON(clean); err != nil {
		logger.Warn("llm.extract.schema_error", "error", err)
		return Result{SkipReason: "malformed response: " + err.Error(), Dropped: dropped}
	}

	rec := DecodeDocument(clean)
	discarded := rec.Sanitize()
	if rec.IsEmpty() {
		return Result{SkipReason: ReasonEmptyResult, Dropped: dropped, Discarded: discarded}
	}
	return Result{Record: rec, Dropped: dropped, Discarded: discarded}
}
