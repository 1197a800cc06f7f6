// Package rules is the deterministic extraction pass: anchors, pattern
// matchers and positional table parsing over the merged OCR text.
package rules

import (
	"log/slog"
	"time"

	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/ocr"
	"github.com/joseph-ayodele/document-extractor/internal/patterns"
)

// Result is a rule-based record plus what the pass had to throw away.
type Result struct {
	Record      *entity.DocumentRecord
	Layout      Layout
	DroppedRows int
	Discarded   []string
}

type Extractor struct {
	reg    *patterns.Registry
	logger *slog.Logger
}

func NewExtractor(reg *patterns.Registry, logger *slog.Logger) *Extractor {
	if reg == nil {
		reg = patterns.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{reg: reg, logger: logger}
}

// Extract never fails: fields it cannot find are left empty.
func (e *Extractor) Extract(text ocr.RawText) Result {
	start := time.Now()
	rec := entity.NewDocumentRecord()
	if text.IsEmpty() {
		return Result{Record: rec}
	}

	layout := Segment(text)

	rec.DocumentType = constants.Unknown
	if m, ok := e.reg.Best("document_type", text, text.All()); ok {
		rec.DocumentType = constants.DocumentType(m.Value)
	}
	rec.DocumentNumber = e.reg.BestValue("document_number", text, text.All())
	rec.Date = e.reg.BestValue("date", text, text.All())

	rec.ClientInfo = e.party(text, layout.Issuer)
	if layout.HasReceiver {
		rec.ReceiverInfo = e.party(text, layout.Receiver)
	}
	e.assignGSTINs(text, layout, rec)

	items, dropped := parseTable(text.Slice(layout.Table))
	rec.Items = items

	e.totals(text, layout.Totals, rec)

	discarded := rec.Sanitize()
	e.logger.Debug("rules.extract.ok",
		"issuer_lines", layout.Issuer.Len(),
		"receiver_lines", layout.Receiver.Len(),
		"table_lines", layout.Table.Len(),
		"items", len(rec.Items),
		"dropped_rows", dropped,
		"discarded", len(discarded),
		"elapsed_ms", time.Since(start).Milliseconds())

	return Result{Record: rec, Layout: layout, DroppedRows: dropped, Discarded: discarded}
}

func (e *Extractor) party(text ocr.RawText, r ocr.LineRange) entity.PartyInfo {
	if r.Len() == 0 {
		return entity.PartyInfo{}
	}
	return entity.PartyInfo{
		CompanyName: e.reg.BestValue("company", text, r),
		Address:     e.reg.BestValue("address", text, r),
		City:        e.reg.BestValue("city", text, r),
		State:       e.reg.BestValue("state", text, r),
		Pincode:     e.reg.BestValue("pincode", text, r),
		Country:     e.reg.BestValue("country", text, r),
		Phone:       e.reg.BestValue("phone", text, r),
		Email:       e.reg.BestValue("email", text, r),
		PAN:         e.reg.BestValue("pan", text, r),
	}
}

// assignGSTINs takes each party's GSTIN from its own block. When a block has
// none, the document-wide order decides: first is the issuer's, second the
// receiver's.
func (e *Extractor) assignGSTINs(text ocr.RawText, l Layout, rec *entity.DocumentRecord) {
	var issuer, receiver string
	if m, ok := e.reg.Best("gstin", text, l.Issuer); ok {
		issuer = m.Value
	}
	if l.HasReceiver {
		for _, m := range e.reg.All("gstin", text, l.Receiver) {
			if m.Value != issuer {
				receiver = m.Value
				break
			}
		}
	}

	all := patterns.GSTINs(text, text.All())
	if issuer == "" && len(all) > 0 && all[0].Value != receiver {
		issuer = all[0].Value
	}
	if receiver == "" {
		for _, m := range all {
			if m.Value != issuer {
				receiver = m.Value
				break
			}
		}
	}
	rec.ClientInfo.GSTIN = issuer
	rec.ReceiverInfo.GSTIN = receiver
}

// totals reads the totals area. The first subtotal and tax lines win; the last
// grand total wins since round-off lines usually precede it.
func (e *Extractor) totals(text ocr.RawText, r ocr.LineRange, rec *entity.DocumentRecord) {
	for _, line := range text.Slice(r) {
		kind, ok := patterns.TotalsLabel(line)
		if !ok {
			continue
		}
		v := patterns.LastAmount(line)
		if v == "" {
			continue
		}
		switch kind {
		case patterns.TotalSubtotal:
			setOnce(&rec.Subtotal, v)
		case patterns.TotalCGST:
			setOnce(&rec.CGST, v)
		case patterns.TotalSGST:
			setOnce(&rec.SGST, v)
		case patterns.TotalIGST:
			setOnce(&rec.IGST, v)
		case patterns.TotalGrand:
			rec.TotalAmount = v
		}
	}
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
