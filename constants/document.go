package constants

import (
	"strings"
)

type DocumentType string

const (
	PurchaseOrder DocumentType = "Purchase Order"
	Invoice       DocumentType = "Invoice"
	Bill          DocumentType = "Bill"
	Unknown       DocumentType = "Unknown"
)

var allDocumentTypes = []DocumentType{
	PurchaseOrder,
	Invoice,
	Bill,
	Unknown,
}

func AsStringSlice() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// Canonicalize maps a free-form label (usually from an LLM response) to a DocumentType.
func Canonicalize(input string) (DocumentType, bool) {
	if strings.TrimSpace(input) == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]DocumentType{
		"po":               PurchaseOrder,
		"p.o.":             PurchaseOrder,
		"purchase order":   PurchaseOrder,
		"purchase_order":   PurchaseOrder,
		"purchaseorder":    PurchaseOrder,
		"tax invoice":      Invoice,
		"invoice":          Invoice,
		"proforma invoice": Invoice,
		"bill":             Bill,
		"bill of supply":   Bill,
		"receipt":          Bill,
	}

	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}

	for _, dt := range allDocumentTypes {
		if normalized == strings.ToLower(string(dt)) {
			return dt, true
		}
	}

	return Unknown, false
}
