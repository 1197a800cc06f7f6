// Package patterns holds the named, pure matchers the extractors are built from.
//
// Every matcher has the same shape: it reads a line range of a RawText and
// returns candidate values with a score. Which matcher wins for a field is
// declared data (Priority), not control flow.
package patterns

import (
	"sort"

	"github.com/joseph-ayodele/document-extractor/internal/ocr"
)

// LineRange is a half-open range of lines inside a RawText.
type LineRange = ocr.LineRange

// Match is one candidate value found by a matcher.
type Match struct {
	Field string
	Value string
	Line  int
	Score float64
}

// Matcher finds candidates for one field inside r. Matchers must be pure.
type Matcher func(text ocr.RawText, r LineRange) []Match

// Priority lists, per field, the matchers to consult in order. Candidates from
// an earlier matcher always beat later ones; inside a matcher the higher score
// wins, then the earlier line.
var Priority = map[string][]string{
	"gstin":           {"gstin"},
	"pan":             {"pan"},
	"phone":           {"phone_intl", "phone_std", "phone_mobile"},
	"email":           {"email"},
	"company":         {"company"},
	"address":         {"address"},
	"pincode":         {"pincode"},
	"city":            {"city"},
	"state":           {"state"},
	"country":         {"country"},
	"document_type":   {"document_type"},
	"document_number": {"document_number"},
	"date":            {"date_labeled", "date_numeric"},
}

// Registry maps matcher names to implementations.
type Registry struct {
	matchers map[string]Matcher
	priority map[string][]string
}

// NewRegistry returns a registry holding every built-in matcher and the default Priority.
func NewRegistry() *Registry {
	reg := &Registry{matchers: map[string]Matcher{}, priority: Priority}
	reg.Register("gstin", GSTIN)
	reg.Register("pan", PAN)
	reg.Register("phone_intl", phoneMatcher(rePhoneIntl))
	reg.Register("phone_std", phoneMatcher(rePhoneSTD))
	reg.Register("phone_mobile", phoneMatcher(rePhoneMobile))
	reg.Register("email", Email)
	reg.Register("company", Company)
	reg.Register("address", Address)
	reg.Register("pincode", Pincode)
	reg.Register("city", City)
	reg.Register("state", State)
	reg.Register("country", Country)
	reg.Register("document_type", DocumentType)
	reg.Register("document_number", DocumentNumber)
	reg.Register("date_labeled", DateLabeled)
	reg.Register("date_numeric", DateNumeric)
	return reg
}

// Register adds or replaces a matcher.
func (reg *Registry) Register(name string, m Matcher) {
	reg.matchers[name] = m
}

// Lookup returns the matcher registered under name.
func (reg *Registry) Lookup(name string) (Matcher, bool) {
	m, ok := reg.matchers[name]
	return m, ok
}

// All returns every candidate for field in priority order.
func (reg *Registry) All(field string, text ocr.RawText, r LineRange) []Match {
	type ranked struct {
		Match
		prio int
	}
	var all []ranked
	for p, name := range reg.priority[field] {
		m, ok := reg.matchers[name]
		if !ok {
			continue
		}
		for _, c := range m(text, r.Clamp(text.Len())) {
			c.Field = field
			all = append(all, ranked{Match: c, prio: p})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.prio != b.prio {
			return a.prio < b.prio
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Line < b.Line
	})
	out := make([]Match, len(all))
	for i, c := range all {
		out[i] = c.Match
	}
	return out
}

// Best returns the winning candidate for field, if any.
func (reg *Registry) Best(field string, text ocr.RawText, r LineRange) (Match, bool) {
	all := reg.All(field, text, r)
	if len(all) == 0 {
		return Match{}, false
	}
	return all[0], true
}

// BestValue is Best returning only the value ("" when nothing matched).
func (reg *Registry) BestValue(field string, text ocr.RawText, r LineRange) string {
	m, _ := reg.Best(field, text, r)
	return m.Value
}

// eachLine calls fn for every line index inside r.
func eachLine(text ocr.RawText, r LineRange, fn func(i int, line string)) {
	r = r.Clamp(text.Len())
	for i := r.Start; i < r.End; i++ {
		fn(i, text.Line(i))
	}
}
