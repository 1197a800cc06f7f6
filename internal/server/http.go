package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/export"
)

// HTTPConfig wires the optional parts of the HTTP surface. A nil Exporter or
// Ingestion leaves its routes unregistered.
type HTTPConfig struct {
	MaxUpload int64
	Exporter  *export.Service
	Ingestion *IngestionService
	Logger    *slog.Logger
}

type extractResponse struct {
	Status      constants.RunStatus    `json:"status"`
	Record      *entity.DocumentRecord `json:"record"`
	Diagnostics *entity.Diagnostics    `json:"diagnostics,omitempty"`
}

type ingestRequest struct {
	Path string `json:"path" binding:"required"`
}

// NewHTTPHandler builds the gin engine: upload extraction, ingest, export,
// health and Prometheus metrics.
func NewHTTPHandler(proc BytesProcessor, cfg HTTPConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = 20 << 20
	}
	h := &httpHandler{proc: proc, cfg: cfg, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/extract", h.extract)
	if cfg.Ingestion != nil {
		v1.POST("/ingest", h.ingest)
	}
	if cfg.Exporter != nil {
		v1.GET("/export.xlsx", h.exportXLSX)
	}
	return r
}

type httpHandler struct {
	proc   BytesProcessor
	cfg    HTTPConfig
	logger *slog.Logger
}

func (h *httpHandler) requestLogger(c *gin.Context) {
	start := time.Now()
	reqID := c.GetHeader("X-Request-ID")
	if reqID == "" {
		reqID = uuid.New().String()
	}
	ctx := common.WithRequestID(c.Request.Context(), reqID)
	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Request-ID", reqID)

	c.Next()

	h.logger.Info("http.request",
		"req_id", reqID,
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

func (h *httpHandler) extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUpload)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.proc.ProcessBytes(c.Request.Context(), fh.Filename, data)
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"status": out.Status, "error": err.Error()})
		return
	}
	resp := extractResponse{Status: out.Status, Record: out.Record}
	if c.Query("diagnostics") == "true" {
		resp.Diagnostics = out.Diagnostics
	}
	c.JSON(http.StatusOK, resp)
}

func (h *httpHandler) ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	sub, err := h.cfg.Ingestion.Submit(c.Request.Context(), req.Path)
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{
		"source_path":      sub.SourcePath,
		"content_hash_hex": sub.HashHex,
		"skipped":          sub.Skipped,
	}
	if sub.ExtractionID != uuid.Nil {
		resp["extraction_id"] = sub.ExtractionID.String()
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *httpHandler) exportXLSX(c *gin.Context) {
	st := constants.RunStatus(c.Query("status"))
	buf, err := h.cfg.Exporter.ExportXLSX(c.Request.Context(), st)
	if err != nil {
		h.logger.Error("export.xlsx.failed", "status", st, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="extractions.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf)
}

func httpStatus(err error) int {
	switch {
	case common.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case common.IsCanceled(err):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
