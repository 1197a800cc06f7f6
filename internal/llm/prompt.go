package llm

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Truncator shortens s to at most budget tokens.
type Truncator func(s string, budget int) string

var cl100k = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	return tiktoken.GetEncoding("cl100k_base")
})

// TruncateTokens cuts s to budget cl100k_base tokens. When the encoding cannot be
// loaded it falls back to TruncateRunes with roughly four runes per token.
func TruncateTokens(s string, budget int) string {
	enc, err := cl100k()
	if err != nil {
		return TruncateRunes(s, budget*4)
	}
	tokens := enc.Encode(s, nil, nil)
	if len(tokens) <= budget {
		return s
	}
	return enc.Decode(tokens[:budget])
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var systemInstructions = []string{
	"You extract structured data from the OCR text of an Indian purchase order, invoice or bill.",
	"Return ONLY one JSON object that matches the provided JSON Schema.",
	"'client_info' is the issuing party (seller or vendor). 'receiver_info' is the Bill To / Ship To party.",
	"'document_type' is one of: Purchase Order, Invoice, Bill.",
	"Copy values exactly as printed. Amounts are strings of digits with an optional decimal part, without currency symbols.",
	"A GSTIN is 15 characters: two digits then thirteen letters or digits. A PAN is five letters, four digits, one letter.",
	"List every row of the item table under 'items'.",
	"Never output null. If a value is not present, use an empty string.",
}

// BuildPrompt composes the system instructions, the document schema and the OCR
// text cut to budget tokens.
func BuildPrompt(text string, budget int, truncate Truncator) string {
	if truncate == nil {
		truncate = TruncateTokens
	}
	schema, _ := json.Marshal(BuildDocumentJSONSchema())

	var b strings.Builder
	b.WriteString(strings.Join(systemInstructions, " "))
	b.WriteString("\n\nJSON Schema:\n")
	b.Write(schema)
	b.WriteString("\n\nTEXT:\n")

	text = strings.TrimSpace(text)
	cut := text
	if budget > 0 {
		cut = truncate(text, budget)
	}
	b.WriteString(cut)
	if len(cut) < len(text) {
		b.WriteString("\n…(truncated)")
	}
	return b.String()
}
