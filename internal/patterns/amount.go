package patterns

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/ocr"
)

var (
	reAmountToken = regexp.MustCompile(`^(?:₹|Rs\.?|INR)?(\d{1,3}(?:,\d{2,3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)(?:/-)?$`)
	reHSN         = regexp.MustCompile(`^\d{4,8}$`)
	rePercent     = regexp.MustCompile(`^\d+(?:\.\d+)?%$`)
)

var units = mapset.NewSet(
	"NOS", "NO", "NOS.", "PCS", "PC", "PIECE", "PIECES", "KG", "KGS", "G", "GM", "GMS",
	"LTR", "LTRS", "L", "ML", "MTR", "MTRS", "M", "BOX", "BOXES", "SET", "SETS",
	"PAIR", "PAIRS", "DOZ", "UNIT", "UNITS", "EA", "EACH", "HR", "HRS", "DAY", "DAYS",
	"MONTH", "MONTHS", "LOT", "ROLL", "BAG", "BAGS", "SQFT", "LS",
)

func cleanToken(tok string) string {
	return strings.Trim(tok, "()[]{},;")
}

// ParseAmount normalizes a single token to a plain decimal, or returns "".
func ParseAmount(tok string) string {
	tok = cleanToken(tok)
	if rePercent.MatchString(tok) || !reAmountToken.MatchString(tok) {
		return ""
	}
	return entity.NormalizeAmount(tok)
}

// AmountTokens returns the normalized amount-shaped tokens of line, in order.
// Percentages are skipped.
func AmountTokens(line string) []string {
	var out []string
	for _, tok := range Tokens(line) {
		if v := ParseAmount(tok); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsCurrencyShaped reports whether tok reads like a money value rather than a
// small count or a street number: it carries a fraction, a separator, or at
// least three digits.
func IsCurrencyShaped(tok string) bool {
	tok = cleanToken(tok)
	if ParseAmount(tok) == "" {
		return false
	}
	if strings.ContainsAny(tok, ".,") {
		return true
	}
	digits := 0
	for _, r := range tok {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 3
}

// IsHSN reports whether tok is a 4 to 8 digit HSN/SAC code.
func IsHSN(tok string) bool { return reHSN.MatchString(cleanToken(tok)) }

// IsUnit reports whether tok is a known unit of measure.
func IsUnit(tok string) bool { return units.Contains(strings.ToUpper(cleanToken(tok))) }

// Amount is the registry-style matcher for every amount token in r.
func Amount(text ocr.RawText, r LineRange) []Match {
	var out []Match
	eachLine(text, r, func(i int, line string) {
		for _, v := range AmountTokens(line) {
			out = append(out, Match{Field: "amount", Value: v, Line: i, Score: 1})
		}
	})
	return out
}

// TotalKind names a totals line.
type TotalKind string

const (
	TotalSubtotal TotalKind = "subtotal"
	TotalCGST     TotalKind = "cgst"
	TotalSGST     TotalKind = "sgst"
	TotalIGST     TotalKind = "igst"
	TotalTax      TotalKind = "tax" // ends the item table, value not kept
	TotalGrand    TotalKind = "total"
)

var totalsLabels = []struct {
	kind TotalKind
	re   *regexp.Regexp
}{
	{TotalSubtotal, regexp.MustCompile(`(?i)^\s*(?:sub\s*-?\s*total|taxable\s+(?:value|amount)|net\s+amount|amount\s+before\s+tax)\b`)},
	{TotalCGST, regexp.MustCompile(`(?i)^\s*(?:add\s*:?\s*)?(?:total\s+)?(?:cgst|central\s+(?:gst|tax))\b`)},
	{TotalSGST, regexp.MustCompile(`(?i)^\s*(?:add\s*:?\s*)?(?:total\s+)?(?:sgst|utgst|state\s+(?:gst|tax))\b`)},
	{TotalIGST, regexp.MustCompile(`(?i)^\s*(?:add\s*:?\s*)?(?:total\s+)?(?:igst|integrated\s+(?:gst|tax))\b`)},
	{TotalTax, regexp.MustCompile(`(?i)^\s*(?:total\s+tax|tax\s+amount|total\s+gst|tax)\b`)},
	{TotalGrand, regexp.MustCompile(`(?i)^\s*(?:grand\s+total|total\s+amount|total\s+invoice\s+(?:value|amount)|invoice\s+total|net\s+payable|amount\s+payable|final\s+total|total)\b`)},
}

var reTaxInvoice = regexp.MustCompile(`(?i)^\s*tax\s+invoice\b`)

// TotalsLabel classifies a totals line by its leading label.
func TotalsLabel(line string) (TotalKind, bool) {
	if reTaxInvoice.MatchString(line) {
		return "", false
	}
	for _, l := range totalsLabels {
		if l.re.MatchString(line) {
			return l.kind, true
		}
	}
	return "", false
}

// LastAmount returns the last amount token on line, or "".
func LastAmount(line string) string {
	toks := AmountTokens(line)
	if len(toks) == 0 {
		return ""
	}
	return toks[len(toks)-1]
}
