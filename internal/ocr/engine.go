package ocr

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Image is a preprocessed page encoded as PNG.
type Image struct {
	Name string
	PNG  []byte
}

// Line is one recognized text line. Confidence is in 0..1 and only meaningful
// when HasConfidence is set.
type Line struct {
	Text          string
	Confidence    float64
	HasConfidence bool
}

// Result is the ordered output of one engine for one image.
type Result struct {
	Engine string
	Lines  []Line
}

// Texts returns the line texts in order.
func (r Result) Texts() []string { return texts(r.Lines) }

// Engine is a text recognition backend.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img Image) (Result, error)
}

// Recognizer fans one image out to every registered engine.
type Recognizer struct {
	engines []Engine
	timeout time.Duration
	logger  *slog.Logger
}

// NewRecognizer registers engines in order. Registration order is the merge tie-break.
func NewRecognizer(engines []Engine, timeout time.Duration, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{engines: engines, timeout: timeout, logger: logger}
}

// Engines returns the registered engine names in order.
func (r *Recognizer) Engines() []string {
	names := make([]string, len(r.engines))
	for i, e := range r.engines {
		names[i] = e.Name()
	}
	return names
}

// RecognizeAll runs every engine concurrently, each under its own timeout.
// A failing engine contributes nothing and is reported as a BackendFailure.
// Results keep registration order.
func (r *Recognizer) RecognizeAll(ctx context.Context, img Image) ([]Result, []entity.BackendFailure) {
	results := make([]*Result, len(r.engines))
	errs := make([]error, len(r.engines))

	var g errgroup.Group
	for i, eng := range r.engines {
		g.Go(func() error {
			callCtx, cancel := common.WithTimeout(ctx, r.timeout)
			defer cancel()

			start := time.Now()
			res, err := eng.Recognize(callCtx, img)
			if err == nil && callCtx.Err() != nil {
				err = callCtx.Err()
			}
			if err != nil {
				errs[i] = err
				r.logger.Warn("ocr.engine.failed",
					"engine", eng.Name(),
					"image", img.Name,
					"elapsed_ms", time.Since(start).Milliseconds(),
					"error", err)
				return nil
			}
			res.Engine = eng.Name()
			results[i] = &res
			r.logger.Debug("ocr.engine.ok",
				"engine", eng.Name(),
				"image", img.Name,
				"lines", len(res.Lines),
				"elapsed_ms", time.Since(start).Milliseconds())
			return nil
		})
	}
	_ = g.Wait()

	var out []Result
	var failed []entity.BackendFailure
	for i, eng := range r.engines {
		if errs[i] != nil {
			metrics.BackendFailures.WithLabelValues(eng.Name()).Inc()
			failed = append(failed, entity.BackendFailure{
				Backend: eng.Name(),
				Reason:  common.BackendUnavailable(eng.Name(), errs[i]).Error(),
			})
			continue
		}
		out = append(out, *results[i])
	}
	return out, failed
}
