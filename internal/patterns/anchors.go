package patterns

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Role says which party a section anchor introduces.
type Role int

const (
	RoleNone Role = iota
	RoleIssuer
	RoleReceiver
)

// Anchor is a section label that starts a party block.
type Anchor struct {
	Name string
	Role Role
	re   *regexp.Regexp
}

func anchor(name string, role Role, expr string) Anchor {
	return Anchor{Name: name, Role: role, re: regexp.MustCompile(`(?i)^\s*(?:` + expr + `)\s*[:\-]?\s*`)}
}

// Anchors is the declared anchor table. Receiver anchors split the issuer
// block from the receiver block.
var Anchors = []Anchor{
	anchor("bill_to", RoleReceiver, `bill(?:ed)?\s+to\b`),
	anchor("ship_to", RoleReceiver, `ship(?:ped)?\s+to\b`),
	anchor("buyer", RoleReceiver, `buyer(?:'s)?\b(?:\s+details)?`),
	anchor("consignee", RoleReceiver, `consignee\b(?:\s+details)?`),
	anchor("to", RoleReceiver, `to\s*:`),
	anchor("from", RoleIssuer, `from\b`),
	anchor("vendor", RoleIssuer, `vendor\b(?:\s+details)?`),
	anchor("seller", RoleIssuer, `seller\b(?:\s+details)?`),
	anchor("supplier", RoleIssuer, `supplier\b(?:\s+details)?`),
}

// MatchAnchor reports the anchor that starts line, and the text after it.
func MatchAnchor(line string) (Anchor, string, bool) {
	for _, a := range Anchors {
		if loc := a.re.FindStringIndex(line); loc != nil {
			return a, strings.TrimSpace(line[loc[1]:]), true
		}
	}
	return Anchor{}, "", false
}

// StripAnchor removes a leading anchor label from line.
func StripAnchor(line string) string {
	if _, rest, ok := MatchAnchor(line); ok {
		return rest
	}
	return strings.TrimSpace(line)
}

var reFieldLabel = regexp.MustCompile(`(?i)^\s*(?:gstin|gst\s*(?:no|number|in)?|pan|phone|ph|tel|telephone|mobile|mob|cell|contact|e-?mail|state\s+code|cin|fssai)\b`)

// IsFieldStart reports whether line opens a new labeled field, section or table.
// Address blocks end at such lines.
func IsFieldStart(line string) bool {
	if reFieldLabel.MatchString(line) {
		return true
	}
	if _, _, ok := MatchAnchor(line); ok {
		return true
	}
	if reEmail.MatchString(line) || reGSTIN.MatchString(strings.ToUpper(line)) {
		return true
	}
	if IsItemHeader(line) {
		return true
	}
	_, ok := TotalsLabel(line)
	return ok
}

var itemHeaderWords = mapset.NewSet(
	"DESCRIPTION", "PARTICULARS", "ITEM", "ITEMS", "PRODUCT", "QTY", "QUANTITY",
	"RATE", "PRICE", "AMOUNT", "AMT", "HSN", "SAC", "UNIT", "UOM", "VALUE", "DISC",
)

// IsItemHeader reports whether line looks like an item table header row.
func IsItemHeader(line string) bool {
	if len(AmountTokens(line)) > 0 {
		return false
	}
	n := 0
	for _, tok := range Tokens(strings.ToUpper(line)) {
		tok = strings.Trim(tok, "./#")
		if strings.HasPrefix(tok, "HSN") {
			tok = "HSN"
		}
		if itemHeaderWords.Contains(tok) {
			n++
		}
	}
	return n >= 2
}
