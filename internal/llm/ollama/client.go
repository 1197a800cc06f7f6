package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/document-extractor/internal/llm"
	"github.com/tidwall/gjson"
)

// Config for a local Ollama server.
type Config struct {
	URL         string // default http://localhost:11434
	Model       string // default llama3.1
	Temperature float32
	Timeout     time.Duration
}

// Client implements llm.Backend over Ollama's /api/generate.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ llm.Backend = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *Client) Name() string { return "ollama" }

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
		},
	}
	endpoint := strings.TrimRight(c.cfg.URL, "/") + "/api/generate"
	raw, err := llm.PostJSON(ctx, c.http, c.Name(), endpoint, body, c.logger)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("ollama generate: invalid json body")
	}
	if msg := gjson.GetBytes(raw, "error"); msg.Exists() {
		return "", fmt.Errorf("ollama generate: %s", msg.String())
	}
	return gjson.GetBytes(raw, "response").String(), nil
}
