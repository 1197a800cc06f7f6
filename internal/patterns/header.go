package patterns

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/ocr"
)

var docTypes = []struct {
	typ constants.DocumentType
	re  *regexp.Regexp
}{
	{constants.PurchaseOrder, regexp.MustCompile(`(?i)\bpurchase\s*order\b`)},
	{constants.Invoice, regexp.MustCompile(`(?i)\binvoice\b`)},
	{constants.Bill, regexp.MustCompile(`(?i)\bbill\b(\s*(?:to|ed)\b)?`)},
}

var titleNoise = mapset.NewSet("TAX", "ORIGINAL", "DUPLICATE", "COPY", "FOR", "RECIPIENT", "OF", "SUPPLY", "PROFORMA", "RETAIL", "CASH", "CREDIT", "GST")

// DocumentType finds document-type keywords. Lines that consist of the title
// alone score highest, and earlier lines beat later ones.
func DocumentType(text ocr.RawText, r LineRange) []Match {
	var out []Match
	eachLine(text, r, func(i int, line string) {
		for _, dt := range docTypes {
			loc := dt.re.FindStringSubmatchIndex(line)
			if loc == nil {
				continue
			}
			if len(loc) >= 4 && loc[2] >= 0 {
				continue // "Bill To", "Billed"
			}
			score := 1 + 1/float64(i+1)
			if isTitleLine(line, dt.re) {
				score += 2
			}
			out = append(out, Match{Field: "document_type", Value: string(dt.typ), Line: i, Score: score})
			return
		}
	})
	return out
}

func isTitleLine(line string, re *regexp.Regexp) bool {
	rest := re.ReplaceAllString(line, " ")
	for _, w := range words(strings.ToUpper(rest)) {
		if !titleNoise.Contains(w) {
			return false
		}
	}
	return true
}

var (
	reDocNumber = regexp.MustCompile(`(?i)\b(invoice|inv|bill|purchase\s+order|p\.?\s?o\.?|order|document|doc|voucher)\s*(?:no\.?|number|num|#)\s*[:#.\-]?\s*([A-Z0-9][A-Z0-9/\-]*)`)
	reBareNo    = regexp.MustCompile(`(?i)^\s*(?:no|number|ref(?:erence)?\s*no)\s*[:.]\s*([A-Z0-9][A-Z0-9/\-]*)`)
	reDigit     = regexp.MustCompile(`\d`)
)

// DocumentNumber finds labeled document numbers such as "Invoice No: INV-2024-001".
func DocumentNumber(text ocr.RawText, r LineRange) []Match {
	var out []Match
	eachLine(text, r, func(i int, line string) {
		for _, m := range reDocNumber.FindAllStringSubmatch(line, -1) {
			v := strings.Trim(m[2], "-/")
			if !reDigit.MatchString(v) {
				continue
			}
			score := 1.0
			switch strings.ToLower(strings.Join(strings.Fields(m[1]), " ")) {
			case "invoice", "inv", "bill", "purchase order", "po", "p.o.", "p.o", "po.":
				score = 2
			}
			out = append(out, Match{Field: "document_number", Value: v, Line: i, Score: score})
		}
		if m := reBareNo.FindStringSubmatch(line); m != nil && reDigit.MatchString(m[1]) {
			out = append(out, Match{Field: "document_number", Value: strings.Trim(m[1], "-/"), Line: i, Score: 0.5})
		}
	})
	return out
}

const dateValue = `\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}|\d{4}-\d{2}-\d{2}|\d{1,2}(?:st|nd|rd|th)?[\s\-]+[A-Za-z]{3,9}\.?[\s\-,]+\d{2,4}|[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4}`

var (
	reDateLabeled = regexp.MustCompile(`(?i)\b(due\s+)?dated?\b\s*[:.\-]?\s*(` + dateValue + `)`)
	reDateNumeric = regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}[/.\-]\d{4}\b`)
	reMonthWord   = regexp.MustCompile(`[A-Za-z]{3,9}`)
	months        = mapset.NewSet(
		"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "SEPT", "OCT", "NOV", "DEC",
		"JANUARY", "FEBRUARY", "MARCH", "APRIL", "JUNE", "JULY", "AUGUST", "SEPTEMBER",
		"OCTOBER", "NOVEMBER", "DECEMBER",
	)
)

func plausibleDate(v string) bool {
	for _, w := range reMonthWord.FindAllString(v, -1) {
		if !months.Contains(strings.ToUpper(w)) {
			return false
		}
	}
	return true
}

// DateLabeled finds dates following a "Date"/"Dated" label. Due dates score lower.
// Values keep their original format.
func DateLabeled(text ocr.RawText, r LineRange) []Match {
	var out []Match
	eachLine(text, r, func(i int, line string) {
		for _, m := range reDateLabeled.FindAllStringSubmatch(line, -1) {
			v := strings.TrimSpace(m[2])
			if !plausibleDate(v) {
				continue
			}
			score := 2.0
			if m[1] != "" {
				score = 1
			}
			out = append(out, Match{Field: "date", Value: v, Line: i, Score: score})
		}
	})
	return out
}

// DateNumeric finds unlabeled dd/mm/yyyy style dates.
func DateNumeric(text ocr.RawText, r LineRange) []Match {
	var out []Match
	eachLine(text, r, func(i int, line string) {
		for _, v := range reDateNumeric.FindAllString(line, -1) {
			out = append(out, Match{Field: "date", Value: v, Line: i, Score: 1})
		}
	})
	return out
}
