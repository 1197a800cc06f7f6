package rules

import (
	"strings"

	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/patterns"
)

type token struct {
	text    string
	numeric bool
	used    bool
}

func isNumber(tok string) bool {
	return patterns.ParseAmount(tok) != "" || entity.NormalizeQuantity(tok) != ""
}

// SplitRow maps one table line onto item columns by token position.
//
// Trailing numbers are amount (last) and rate (second to last); the first
// remaining number is the quantity, optionally followed by a unit. A 4 to 8
// digit integer ahead of those is the HSN code, and a small leading integer
// followed by words is a serial number. Everything else is description.
// ok is false when the line has no numbers at all.
func SplitRow(line string) (item entity.LineItem, ok bool) {
	raw := patterns.Tokens(line)
	toks := make([]token, 0, len(raw))
	for _, t := range raw {
		t = strings.Trim(t, "()[]{},;")
		if t == "" || t == "-" || t == "@" {
			continue
		}
		toks = append(toks, token{text: t, numeric: isNumber(t)})
	}

	var nums []int
	for i, t := range toks {
		if t.numeric {
			nums = append(nums, i)
		}
	}
	if len(nums) == 0 {
		return entity.LineItem{}, false
	}

	// serial number: "1 Fieldstone Analyzer 1 nos 475.00 475.00"
	if len(nums) >= 4 && nums[0] == 0 && len(toks) > 1 && !toks[1].numeric &&
		len(toks[0].text) <= 3 && !strings.ContainsAny(toks[0].text, ".,") {
		toks[0].used = true
		nums = nums[1:]
	}

	if len(nums) >= 3 {
		for k, idx := range nums[:len(nums)-2] {
			if patterns.IsHSN(toks[idx].text) {
				item.HSNCode = toks[idx].text
				toks[idx].used = true
				nums = append(nums[:k:k], nums[k+1:]...)
				break
			}
		}
	}

	take := func(idx int) string {
		toks[idx].used = true
		return toks[idx].text
	}
	qtyIdx := -1
	switch n := len(nums); {
	case n >= 3:
		qtyIdx = nums[0]
		item.Quantity = entity.NormalizeQuantity(take(qtyIdx))
		item.Rate = patterns.ParseAmount(take(nums[n-2]))
		item.Amount = patterns.ParseAmount(take(nums[n-1]))
	case n == 2:
		first := toks[nums[0]].text
		if !strings.ContainsAny(first, ".,") {
			qtyIdx = nums[0]
			item.Quantity = entity.NormalizeQuantity(take(qtyIdx))
		} else {
			item.Rate = patterns.ParseAmount(take(nums[0]))
		}
		item.Amount = patterns.ParseAmount(take(nums[1]))
	case n == 1:
		item.Amount = patterns.ParseAmount(take(nums[0]))
	}

	if qtyIdx >= 0 && qtyIdx+1 < len(toks) && !toks[qtyIdx+1].used && patterns.IsUnit(toks[qtyIdx+1].text) {
		item.Unit = take(qtyIdx + 1)
	}

	var desc []string
	for _, t := range toks {
		if !t.used && !t.numeric {
			desc = append(desc, t.text)
		}
	}
	item.Description = strings.Trim(strings.Join(desc, " "), " -:")
	return item, true
}

// parseTable turns table lines into items. Lines without numbers continue the
// previous item's description; rows without a description are dropped.
func parseTable(lines []string) (items []entity.LineItem, dropped int) {
	items = []entity.LineItem{}
	for _, line := range lines {
		item, ok := SplitRow(line)
		if !ok {
			if len(items) > 0 {
				last := &items[len(items)-1]
				last.Description = strings.TrimSpace(last.Description + " " + strings.TrimSpace(line))
			}
			continue
		}
		if item.Description == "" {
			dropped++
			continue
		}
		items = append(items, item)
	}
	return items, dropped
}
