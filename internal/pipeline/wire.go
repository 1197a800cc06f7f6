package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/llm"
	"github.com/joseph-ayodele/document-extractor/internal/llm/ollama"
	"github.com/joseph-ayodele/document-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/document-extractor/internal/ocr"
	"github.com/joseph-ayodele/document-extractor/internal/patterns"
	"github.com/joseph-ayodele/document-extractor/internal/preprocess"
	"github.com/joseph-ayodele/document-extractor/internal/rules"
)

// NewEngines builds the OCR engines named in cfg.Engines, in that order.
func NewEngines(cfg common.OCRConfig, logger *slog.Logger) ([]ocr.Engine, error) {
	tcfg := ocr.TesseractConfig{
		Binary:      cfg.TesseractBin,
		Language:    cfg.Language,
		TessdataDir: cfg.TessdataDir,
		PSM:         cfg.PSM,
	}
	engines := make([]ocr.Engine, 0, len(cfg.Engines))
	for _, name := range cfg.Engines {
		switch name {
		case "tesseract":
			engines = append(engines, ocr.NewTesseractCLI(tcfg, ocr.ExecRunner{Logger: logger}))
		case "gosseract":
			engines = append(engines, ocr.NewGosseract(tcfg))
		case "azure":
			engines = append(engines, ocr.NewAzure(cfg.AzureEndpoint, cfg.AzureKey))
		default:
			return nil, fmt.Errorf("unknown ocr engine %q", name)
		}
	}
	return engines, nil
}

// NewCapability resolves the configured LLM provider. A provider that cannot
// be set up is Unavailable, never an error.
func NewCapability(cfg common.LLMConfig, logger *slog.Logger) llm.Capability {
	switch cfg.Provider {
	case "openai":
		client, err := openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		if errors.Is(err, openai.ErrMissingAPIKey) {
			return llm.Unavailable{Reason: "OPENAI_API_KEY not set"}
		}
		if err != nil {
			return llm.Unavailable{Reason: err.Error()}
		}
		return llm.Available{Backend: client}
	case "ollama":
		return llm.Available{Backend: ollama.NewClient(ollama.Config{
			URL:         cfg.OllamaURL,
			Model:       cfg.OllamaModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)}
	default:
		return llm.Unavailable{Reason: "llm disabled (LLM_PROVIDER=" + cfg.Provider + ")"}
	}
}

// NewFromConfig wires a Processor from application config.
func NewFromConfig(cfg *common.Config, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	engines, err := NewEngines(cfg.OCR, logger)
	if err != nil {
		return nil, err
	}
	capability := NewCapability(cfg.LLM, logger)
	if u, ok := capability.(llm.Unavailable); ok {
		logger.Info("pipeline.llm.unavailable", "reason", u.Reason)
	}

	var filter preprocess.Filter = preprocess.Identity
	if cfg.OCR.Preprocess {
		filter = preprocess.Default()
	}
	recognizer := ocr.NewRecognizer(engines, cfg.OCR.Timeout, logger)
	logger.Info("pipeline.ready",
		"engines", recognizer.Engines(),
		"llm_provider", cfg.LLM.Provider,
		"preprocess", cfg.OCR.Preprocess,
	)

	tolerance := cfg.Pipeline.ConsistencyTolerance
	return NewProcessor(Config{
		Recognizer: recognizer,
		Rules:      rules.NewExtractor(patterns.NewRegistry(), logger),
		LLM: llm.NewExtractor(capability,
			llm.WithTimeout(cfg.LLM.Timeout),
			llm.WithMaxPromptTokens(cfg.LLM.MaxPromptTokens),
			llm.WithLogger(logger),
		),
		Preprocess: filter,
		Tolerance:  &tolerance,
		Logger:     logger,
	}), nil
}
