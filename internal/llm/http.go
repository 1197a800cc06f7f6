package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/document-extractor/internal/common"
)

// maxReplyBytes caps how much of a backend reply is read.
const maxReplyBytes = 8 << 20

// PostJSON posts body as JSON to url and returns the reply body. Transport
// failures and non-2xx replies are reported as common.BackendUnavailable for
// the named backend; the reply body is still returned for the latter.
func PostJSON(ctx context.Context, client *http.Client, backend, url string, body any, logger *slog.Logger) ([]byte, error) {
	logger = common.LoggerFromContext(ctx, logger).With("backend", backend)
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", backend, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", backend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	logger.Debug("llm.http.request", "url", url, "bytes", len(bs))
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("llm.http.send_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.BackendUnavailable(backend, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debug("llm.http.close_failed", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		logger.Warn("llm.http.read_failed", "status", resp.StatusCode, "error", err)
		return nil, common.BackendUnavailable(backend, err)
	}
	logger.Debug("llm.http.response",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return raw, common.BackendUnavailable(backend, fmt.Errorf("status %d", resp.StatusCode))
	}
	return raw, nil
}
