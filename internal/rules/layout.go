package rules

import (
	"github.com/joseph-ayodele/document-extractor/internal/ocr"
	"github.com/joseph-ayodele/document-extractor/internal/patterns"
)

// Layout splits a document into party blocks, the item table and the totals area.
type Layout struct {
	Issuer      ocr.LineRange
	Receiver    ocr.LineRange
	HasReceiver bool
	Table       ocr.LineRange
	Totals      ocr.LineRange
}

// Segment finds the block boundaries.
//
// The issuer block is everything before the first receiver anchor. The
// receiver block runs from that anchor to the item table. The table starts
// after a header row, or at the first row with two currency-shaped tokens,
// and ends before the first totals line.
func Segment(text ocr.RawText) Layout {
	n := text.Len()
	recv := -1
	for i := 0; i < n; i++ {
		if a, _, ok := patterns.MatchAnchor(text.Line(i)); ok && a.Role == patterns.RoleReceiver {
			recv = i
			break
		}
	}

	from := 0
	if recv >= 0 {
		from = recv + 1
	}
	partiesEnd, tableStart := n, -1
	for i := from; i < n; i++ {
		line := text.Line(i)
		if patterns.IsItemHeader(line) {
			partiesEnd, tableStart = i, i+1
			break
		}
		if _, ok := patterns.TotalsLabel(line); ok {
			partiesEnd = i
			break
		}
		if isFirstRow(line) {
			partiesEnd, tableStart = i, i
			break
		}
	}

	var l Layout
	if recv >= 0 {
		l.Issuer = ocr.LineRange{Start: 0, End: recv}
		l.Receiver = ocr.LineRange{Start: recv, End: partiesEnd}
		l.HasReceiver = true
	} else {
		l.Issuer = ocr.LineRange{Start: 0, End: partiesEnd}
		l.Receiver = ocr.LineRange{Start: partiesEnd, End: partiesEnd}
	}

	tableEnd := partiesEnd
	if tableStart >= 0 {
		tableEnd = n
		for i := tableStart; i < n; i++ {
			if _, ok := patterns.TotalsLabel(text.Line(i)); ok {
				tableEnd = i
				break
			}
		}
		l.Table = ocr.LineRange{Start: tableStart, End: tableEnd}
	} else {
		l.Table = ocr.LineRange{Start: partiesEnd, End: partiesEnd}
	}
	l.Totals = ocr.LineRange{Start: tableEnd, End: n}
	return l
}

// isFirstRow reports whether line can open an item table without a header.
func isFirstRow(line string) bool {
	if patterns.IsFieldStart(line) || patterns.HasAddressCue(line) {
		return false
	}
	n := 0
	for _, tok := range patterns.Tokens(line) {
		if patterns.IsCurrencyShaped(tok) {
			n++
		}
	}
	return n >= 2
}
