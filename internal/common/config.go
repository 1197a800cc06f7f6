package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Batch    BatchConfig
}

// DatabaseConfig holds journal database configuration.
// An empty DSN selects an in-memory SQLite journal.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr  string
	HTTPAddr  string
	MaxUpload int64
	WatchDir  string // optional; new scans dropped here are extracted and journaled
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engines       []string
	Timeout       time.Duration
	TesseractBin  string
	Language      string
	TessdataDir   string
	PSM           int
	AzureEndpoint string
	AzureKey      string
	Preprocess    bool
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider        string
	Model           string
	APIKey          string
	BaseURL         string
	OllamaURL       string
	OllamaModel     string
	Temperature     float32
	Timeout         time.Duration
	MaxPromptTokens int
}

// PipelineConfig holds orchestrator configuration
type PipelineConfig struct {
	ConsistencyTolerance decimal.Decimal
}

// BatchConfig holds batch worker pool configuration
type BatchConfig struct {
	Workers         int
	QueueSize       int
	DocumentTimeout time.Duration
}

// LoadConfig loads configuration from environment variables. Any envFiles are
// loaded first with godotenv; variables already set in the process win.
func LoadConfig(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, NewAppError("CONFIG_ERROR", "load env file "+f, err)
		}
	}

	tol, err := decimal.NewFromString(getEnv("CONSISTENCY_TOLERANCE", "0.01"))
	if err != nil {
		return nil, NewAppError("CONFIG_ERROR", "CONSISTENCY_TOLERANCE must be a decimal", err)
	}

	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:  getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr:  getEnv("HTTP_ADDR", ":8081"),
			MaxUpload: int64(getEnvAsInt("MAX_UPLOAD_MB", 20)) << 20,
			WatchDir:  getEnv("WATCH_DIR", ""),
		},
		OCR: OCRConfig{
			Engines:       getEnvAsList("OCR_ENGINES", []string{"tesseract"}),
			Timeout:       getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
			TesseractBin:  getEnv("TESSERACT_BIN", "tesseract"),
			Language:      getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			PSM:           getEnvAsInt("TESSERACT_PSM", 6),
			AzureEndpoint: getEnv("AZURE_VISION_ENDPOINT", ""),
			AzureKey:      getEnv("AZURE_VISION_KEY", ""),
			Preprocess:    getEnvAsBool("OCR_PREPROCESS", true),
		},
		LLM: LLMConfig{
			Provider:        getEnv("LLM_PROVIDER", "openai"),
			Model:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			BaseURL:         getEnv("OPENAI_BASE_URL", ""),
			OllamaURL:       getEnv("OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:     getEnv("OLLAMA_MODEL", "llama3.1"),
			Temperature:     getEnvAsFloat32("OPENAI_TEMPERATURE", 0.1),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
			MaxPromptTokens: getEnvAsInt("LLM_MAX_PROMPT_TOKENS", 3000),
		},
		Pipeline: PipelineConfig{
			ConsistencyTolerance: tol,
		},
		Batch: BatchConfig{
			Workers:         getEnvAsInt("WORKERS", 4),
			QueueSize:       getEnvAsInt("QUEUE_SIZE", 100),
			DocumentTimeout: getEnvAsDuration("DOCUMENT_TIMEOUT", 3*time.Minute),
		},
	}, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if len(c.OCR.Engines) == 0 {
		return NewAppError("CONFIG_ERROR", "OCR_ENGINES must name at least one engine", ErrInvalidInput)
	}
	for _, e := range c.OCR.Engines {
		switch e {
		case "tesseract", "gosseract":
		case "azure":
			if c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "" {
				return NewAppError("CONFIG_ERROR", "azure engine requires AZURE_VISION_ENDPOINT and AZURE_VISION_KEY", ErrInvalidInput)
			}
		default:
			return NewAppError("CONFIG_ERROR", "unknown OCR engine "+e, ErrInvalidInput)
		}
	}
	switch c.LLM.Provider {
	case "openai", "ollama", "none":
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be openai, ollama or none", ErrInvalidInput)
	}
	if c.Pipeline.ConsistencyTolerance.IsNegative() {
		return NewAppError("CONFIG_ERROR", "CONSISTENCY_TOLERANCE must not be negative", ErrInvalidInput)
	}
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
