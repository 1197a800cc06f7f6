package patterns

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/joseph-ayodele/document-extractor/internal/ocr"
)

// companyKeywords weighs incorporation and trade-name markers.
var companyKeywords = map[string]float64{
	"PRIVATE":     2,
	"PVT":         2.5,
	"LIMITED":     2.5,
	"LTD":         2.5,
	"LLP":         2.5,
	"LLC":         2,
	"INC":         2,
	"CORPORATION": 2,
	"CORP":        2,
	"COMPANY":     1.5,
	"ENTERPRISES": 1.5,
	"INDUSTRIES":  1.5,
	"TRADERS":     1.5,
	"CO":          0.5,
}

var addressCues = mapset.NewSet(
	"ROAD", "RD", "STREET", "LANE", "MARG", "NAGAR", "PLOT", "SECTOR", "PHASE",
	"FLOOR", "BUILDING", "BLDG", "TOWER", "COMPLEX", "PARK", "HUB", "COLONY",
	"LAYOUT", "CROSS", "AREA", "ESTATE", "INDUSTRIAL", "BLOCK", "VILLAGE",
	"DISTRICT", "DIST", "TALUK", "CITY", "NEAR", "OPP", "INDIA",
)

var states = []string{
	"Andaman and Nicobar Islands", "Andhra Pradesh", "Arunachal Pradesh", "Assam",
	"Bihar", "Chandigarh", "Chhattisgarh", "Dadra and Nagar Haveli and Daman and Diu",
	"Delhi", "Goa", "Gujarat", "Haryana", "Himachal Pradesh", "Jammu and Kashmir",
	"Jharkhand", "Karnataka", "Kerala", "Ladakh", "Lakshadweep", "Madhya Pradesh",
	"Maharashtra", "Manipur", "Meghalaya", "Mizoram", "Nagaland", "Odisha",
	"Puducherry", "Punjab", "Rajasthan", "Sikkim", "Tamil Nadu", "Telangana",
	"Tripura", "Uttar Pradesh", "Uttarakhand", "West Bengal",
}

var cities = []string{
	"Ahmedabad", "Aurangabad", "Bangalore", "Bengaluru", "Bhopal", "Bhubaneswar",
	"Chandigarh", "Chennai", "Coimbatore", "Dehradun", "Delhi", "Faridabad",
	"Ghaziabad", "Gurgaon", "Gurugram", "Guwahati", "Hyderabad", "Indore", "Jaipur",
	"Kanpur", "Kochi", "Kolkata", "Lucknow", "Ludhiana", "Madurai", "Mangalore",
	"Mumbai", "Mysore", "Mysuru", "Nagpur", "Nashik", "Navi Mumbai", "New Delhi",
	"Noida", "Patna", "Pune", "Raipur", "Rajkot", "Ranchi", "Secunderabad", "Surat",
	"Thane", "Thiruvananthapuram", "Trivandrum", "Vadodara", "Vijayawada",
	"Visakhapatnam", "Warangal",
}

var (
	reState   = nameRegexp(states)
	reCity    = nameRegexp(cities)
	reCountry = regexp.MustCompile(`(?i)\bindia\b`)
	rePincode = regexp.MustCompile(`\b[1-9]\d{5}\b`)

	canonicalPlace = func() map[string]string {
		m := map[string]string{}
		for _, n := range append(append([]string{}, states...), cities...) {
			m[strings.ToLower(n)] = n
		}
		return m
	}()
)

// nameRegexp matches any of names as whole words, longest first.
func nameRegexp(names []string) *regexp.Regexp {
	sorted := append([]string(nil), names...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, n := range sorted {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(n), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func canonicalName(s string) string {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if c, ok := canonicalPlace[key]; ok {
		return c
	}
	return s
}

// Tokens splits a line on whitespace, colons and pipes.
func Tokens(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == ':' || r == '|'
	})
}

func words(upper string) []string {
	return strings.FieldsFunc(upper, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '&'
	})
}

func upperRatio(s string) float64 {
	var letters, upper int
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

// Company scores lines carrying incorporation keywords: keyword weight plus
// the share of upper-case letters. Labeled field lines are skipped.
func Company(text ocr.RawText, r LineRange) []Match {
	var out []Match
	eachLine(text, r, func(i int, line string) {
		body := StripAnchor(line)
		if body == "" || reFieldLabel.MatchString(body) || reEmail.MatchString(body) {
			return
		}
		best := 0.0
		for _, w := range words(strings.ToUpper(body)) {
			if kw, ok := companyKeywords[w]; ok && kw > best {
				best = kw
			}
		}
		if best == 0 {
			return
		}
		out = append(out, Match{Field: "company", Value: strings.Trim(body, " ,"), Line: i, Score: best + upperRatio(body)})
	})
	return out
}

// HasAddressCue reports whether line carries a locality cue.
func HasAddressCue(line string) bool {
	for _, w := range words(strings.ToUpper(line)) {
		if addressCues.Contains(w) {
			return true
		}
	}
	return reState.MatchString(line) || reCity.MatchString(line) || rePincode.MatchString(line)
}

func isCompanyLine(line string) bool {
	for _, w := range words(strings.ToUpper(line)) {
		if kw, ok := companyKeywords[w]; ok && kw >= 1.5 {
			return true
		}
	}
	return false
}

// Address joins, in order, the lines carrying locality cues, starting at the
// first such line and ending at the next field-start line.
func Address(text ocr.RawText, r LineRange) []Match {
	var parts []string
	first := -1
	r = r.Clamp(text.Len())
	for i := r.Start; i < r.End; i++ {
		line := StripAnchor(text.Line(i))
		if first >= 0 && IsFieldStart(text.Line(i)) {
			break
		}
		if line == "" || IsFieldStart(text.Line(i)) {
			continue
		}
		if isCompanyLine(line) && !rePincode.MatchString(line) {
			continue
		}
		if !HasAddressCue(line) {
			continue
		}
		if first < 0 {
			first = i
		}
		parts = append(parts, strings.Trim(line, " ,"))
	}
	if first < 0 {
		return nil
	}
	return []Match{{Field: "address", Value: strings.Join(parts, ", "), Line: first, Score: 1}}
}

// Pincode finds 6-digit postal codes, preferring lines with other locality cues.
func Pincode(text ocr.RawText, r LineRange) []Match {
	var out []Match
	eachLine(text, r, func(i int, line string) {
		if reFieldLabel.MatchString(line) {
			return
		}
		score := 1.0
		if reState.MatchString(line) || reCity.MatchString(line) || strings.Contains(strings.ToUpper(line), "PIN") {
			score = 2
		}
		for _, tok := range rePincode.FindAllString(line, -1) {
			out = append(out, Match{Field: "pincode", Value: tok, Line: i, Score: score})
		}
	})
	return out
}

func placeMatcher(field string, re *regexp.Regexp) Matcher {
	return func(text ocr.RawText, r LineRange) []Match {
		var out []Match
		eachLine(text, r, func(i int, line string) {
			if reFieldLabel.MatchString(line) {
				return
			}
			for _, tok := range re.FindAllString(line, -1) {
				out = append(out, Match{Field: field, Value: canonicalName(tok), Line: i, Score: 1})
			}
		})
		return out
	}
}

var (
	// City matches known Indian city names.
	City = placeMatcher("city", reCity)
	// State matches Indian state and union territory names.
	State = placeMatcher("state", reState)
)

// Country only recognizes India.
func Country(text ocr.RawText, r LineRange) []Match {
	var out []Match
	eachLine(text, r, func(i int, line string) {
		if reCountry.MatchString(line) {
			out = append(out, Match{Field: "country", Value: "India", Line: i, Score: 1})
		}
	})
	return out
}
