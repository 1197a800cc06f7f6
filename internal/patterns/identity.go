package patterns

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/ocr"
)

var (
	reGSTIN    = regexp.MustCompile(`\b\d{2}[A-Z0-9]{13}\b`)
	rePAN      = regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`)
	rePANLabel = regexp.MustCompile(`\bPAN\b`)
	reEmail    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	reLetter   = regexp.MustCompile(`[A-Z]`)
	reGSTLabel = regexp.MustCompile(`\bGST(?:IN)?\b`)

	rePhoneIntl   = regexp.MustCompile(`\+\s?91[\s.-]?(?:\(?0?\d{2,4}\)?[\s.-]?\d{6,8}|\d{5}[\s.-]?\d{5})`)
	rePhoneSTD    = regexp.MustCompile(`\b0\d{2,4}[\s.-]\d{6,8}\b`)
	rePhoneMobile = regexp.MustCompile(`\b[6-9]\d{4}[\s.-]?\d{5}\b`)
	rePhoneLabel  = regexp.MustCompile(`(?i)\b(?:ph|phone|tel|telephone|mob|mobile|cell|contact)\b`)
)

// GSTINs returns the distinct GSTIN-shaped tokens in r, first occurrence first.
// Lines are upper-cased before matching. Tokens made only of digits are read
// as account or phone numbers unless the line carries a GST label.
func GSTINs(text ocr.RawText, r LineRange) []Match {
	seen := mapset.NewThreadUnsafeSet[string]()
	var out []Match
	eachLine(text, r, func(i int, line string) {
		upper := strings.ToUpper(line)
		labeled := reGSTLabel.MatchString(upper)
		for _, tok := range reGSTIN.FindAllString(upper, -1) {
			if (!labeled && !reLetter.MatchString(tok)) || !seen.Add(tok) {
				continue
			}
			out = append(out, Match{Field: "gstin", Value: tok, Line: i, Score: 1})
		}
	})
	return out
}

// GSTIN is the registry matcher over GSTINs.
func GSTIN(text ocr.RawText, r LineRange) []Match { return GSTINs(text, r) }

// PAN finds standalone PAN tokens. On a line labeled PAN that only carries a
// GSTIN, the PAN embedded in the GSTIN (characters 3 to 12) is used.
func PAN(text ocr.RawText, r LineRange) []Match {
	var out []Match
	eachLine(text, r, func(i int, line string) {
		up := strings.ToUpper(line)
		labeled := rePANLabel.MatchString(up)
		score := 1.0
		if labeled {
			score = 2
		}
		found := false
		for _, tok := range rePAN.FindAllString(up, -1) {
			out = append(out, Match{Field: "pan", Value: tok, Line: i, Score: score})
			found = true
		}
		if !found && labeled {
			for _, g := range reGSTIN.FindAllString(up, -1) {
				if p := g[2:12]; rePAN.MatchString(p) {
					out = append(out, Match{Field: "pan", Value: p, Line: i, Score: 1.5})
				}
			}
		}
	})
	return out
}

// phoneMatcher builds a matcher for one phone format. Labeled lines score higher.
func phoneMatcher(re *regexp.Regexp) Matcher {
	return func(text ocr.RawText, r LineRange) []Match {
		var out []Match
		eachLine(text, r, func(i int, line string) {
			if reGSTIN.MatchString(strings.ToUpper(line)) && !rePhoneLabel.MatchString(line) {
				return
			}
			score := 1.0
			if rePhoneLabel.MatchString(line) {
				score = 2
			}
			for _, raw := range re.FindAllString(line, -1) {
				if v := entity.NormalizePhone(raw); v != "" {
					out = append(out, Match{Field: "phone", Value: v, Line: i, Score: score})
				}
			}
		})
		return out
	}
}

// Email returns every email-shaped token; the first in the range wins.
func Email(text ocr.RawText, r LineRange) []Match {
	var out []Match
	eachLine(text, r, func(i int, line string) {
		for _, tok := range reEmail.FindAllString(line, -1) {
			out = append(out, Match{Field: "email", Value: strings.TrimRight(tok, "."), Line: i, Score: 1})
		}
	})
	return out
}
