package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/repository"
)

const (
	documentsSheet = "Documents"
	itemsSheet     = "Items"
)

var documentHeaders = []string{
	"File",
	"Status",
	"Document Type",
	"Document Number",
	"Date",
	"Issuer",
	"Issuer GSTIN",
	"Receiver",
	"Receiver GSTIN",
	"Subtotal",
	"CGST",
	"SGST",
	"IGST",
	"Total",
	"Items",
	"LLM",
	"Consistency",
	"Error",
}

var itemHeaders = []string{
	"File",
	"Document Number",
	"Line",
	"HSN/SAC",
	"Description",
	"Quantity",
	"Unit",
	"Rate",
	"Amount",
}

// Service produces XLSX workbooks from journaled extractions.
type Service struct {
	repo   repository.ExtractionRepository
	logger *slog.Logger
}

func NewService(repo repository.ExtractionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportXLSX returns a workbook for every journaled run with the given status;
// an empty status exports all runs.
func (s *Service) ExportXLSX(ctx context.Context, status constants.RunStatus) ([]byte, error) {
	start := time.Now()
	rows, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}
	buf, err := WriteXLSX(rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"status", status,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

// WriteXLSX renders extractions as a Documents sheet (one row per run) and an
// Items sheet (one row per line item of completed runs).
func WriteXLSX(rows []entity.Extraction) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(documentsSheet)
	f.SetActiveSheet(idx)

	writeHeader(f, documentsSheet, documentHeaders)
	writeHeader(f, itemsSheet, itemHeaders)

	docRow, itemRow := 2, 2
	for _, ex := range rows {
		file := filepath.Base(ex.SourcePath)
		values := []any{file, string(ex.Status)}

		rec := ex.Record
		if rec == nil {
			rec = entity.NewDocumentRecord()
		}
		values = append(values,
			string(rec.DocumentType),
			rec.DocumentNumber,
			rec.Date,
			rec.ClientInfo.CompanyName,
			rec.ClientInfo.GSTIN,
			rec.ReceiverInfo.CompanyName,
			rec.ReceiverInfo.GSTIN,
			amount(rec.Subtotal),
			amount(rec.CGST),
			amount(rec.SGST),
			amount(rec.IGST),
			amount(rec.TotalAmount),
			len(rec.Items),
		)

		llmCell, consistency := "", ""
		if d := ex.Diagnostics; d != nil {
			llmCell = "no"
			if d.LLMContributed {
				llmCell = "yes"
			} else if d.LLMSkipReason != "" {
				llmCell = "no: " + d.LLMSkipReason
			}
			if w := d.Consistency; w != nil {
				consistency = fmt.Sprintf("expected %s, reported %s", w.Expected, w.Reported)
			}
		}
		errMsg := ""
		if ex.ErrorMessage != nil {
			errMsg = truncate(*ex.ErrorMessage, 140)
		}
		values = append(values, llmCell, consistency, errMsg)
		writeRow(f, documentsSheet, docRow, values)
		docRow++

		for i, it := range rec.Items {
			writeRow(f, itemsSheet, itemRow, []any{
				file,
				rec.DocumentNumber,
				i + 1,
				it.HSNCode,
				it.Description,
				amount(it.Quantity),
				it.Unit,
				amount(it.Rate),
				amount(it.Amount),
			})
			itemRow++
		}
	}

	_ = f.SetColWidth(documentsSheet, "A", "A", 28) // file
	_ = f.SetColWidth(documentsSheet, "C", "E", 16)
	_ = f.SetColWidth(documentsSheet, "F", "I", 24) // parties
	_ = f.SetColWidth(documentsSheet, "J", "N", 12) // amounts
	_ = f.SetColWidth(documentsSheet, "P", "R", 40)
	_ = f.SetColWidth(itemsSheet, "A", "A", 28)
	_ = f.SetColWidth(itemsSheet, "E", "E", 48) // description

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

// amount writes decimal strings as numbers so spreadsheets can sum them;
// anything else stays text.
func amount(s string) any {
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	f, _ := d.Float64()
	return f
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
