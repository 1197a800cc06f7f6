package entity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/common"
)

var (
	quantityShape = regexp.MustCompile(`^\d+(\.\d+)?$`)
	currencyNoise = strings.NewReplacer("₹", "", "INR", "", "Rs.", "", "Rs", "", "$", "", "/-", "", ",", "", " ", "")
)

// NormalizeAmount strips currency markers and thousands separators. It returns
// "" when the remainder is not a plain decimal with at most two fraction digits.
func NormalizeAmount(s string) string {
	s = currencyNoise.Replace(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".")
	if common.Amount("amount", s) != nil {
		return ""
	}
	return s
}

// NormalizeQuantity is NormalizeAmount without the fraction-digit limit.
func NormalizeQuantity(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if !quantityShape.MatchString(s) {
		return ""
	}
	return s
}

// NormalizePhone keeps a leading '+' and the digits. Numbers with fewer than
// 10 or more than 13 digits are rejected.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return ""
		}
	}
	out := b.String()
	digits := len(strings.TrimPrefix(out, "+"))
	if digits < 10 || digits > 13 {
		return ""
	}
	return out
}

type fieldRef struct {
	path  string
	value *string
	clean func(string) string
	rule  common.ValidationRule
}

func upperTrim(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func partyFields(prefix string, p *PartyInfo) []fieldRef {
	return []fieldRef{
		{prefix + ".company_name", &p.CompanyName, strings.TrimSpace, nil},
		{prefix + ".address", &p.Address, strings.TrimSpace, nil},
		{prefix + ".city", &p.City, strings.TrimSpace, nil},
		{prefix + ".state", &p.State, strings.TrimSpace, nil},
		{prefix + ".pincode", &p.Pincode, func(s string) string { return strings.ReplaceAll(strings.TrimSpace(s), " ", "") }, common.Pincode},
		{prefix + ".country", &p.Country, strings.TrimSpace, nil},
		{prefix + ".phone", &p.Phone, NormalizePhone, nil},
		{prefix + ".email", &p.Email, strings.TrimSpace, common.Email},
		{prefix + ".gstin", &p.GSTIN, upperTrim, common.GSTIN},
		{prefix + ".pan", &p.PAN, upperTrim, common.PAN},
	}
}

// Sanitize normalizes every field in place and clears values that fail their
// shape rule. It returns the paths of the discarded fields. Sanitize is idempotent.
func (r *DocumentRecord) Sanitize() []string {
	var discarded []string

	apply := func(refs []fieldRef) {
		for _, f := range refs {
			orig := strings.TrimSpace(*f.value)
			v := orig
			if f.clean != nil {
				v = f.clean(v)
			}
			if f.rule != nil && f.rule(f.path, v) != nil {
				v = ""
			}
			if v == "" && orig != "" {
				discarded = append(discarded, f.path)
			}
			*f.value = v
		}
	}

	if dt := strings.TrimSpace(string(r.DocumentType)); dt != "" {
		canon, ok := constants.Canonicalize(dt)
		if !ok {
			canon = constants.Unknown
		}
		r.DocumentType = canon
	}
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	r.Date = strings.TrimSpace(r.Date)

	apply(partyFields("client_info", &r.ClientInfo))
	apply(partyFields("receiver_info", &r.ReceiverInfo))

	amounts := []fieldRef{
		{"subtotal", &r.Subtotal, NormalizeAmount, nil},
		{"cgst", &r.CGST, NormalizeAmount, nil},
		{"sgst", &r.SGST, NormalizeAmount, nil},
		{"igst", &r.IGST, NormalizeAmount, nil},
		{"total_amount", &r.TotalAmount, NormalizeAmount, nil},
	}
	apply(amounts)

	items := r.Items[:0]
	for i := range r.Items {
		it := r.Items[i]
		prefix := fmt.Sprintf("items[%d]", i)
		apply([]fieldRef{
			{prefix + ".hsn_code", &it.HSNCode, strings.TrimSpace, nil},
			{prefix + ".description", &it.Description, strings.TrimSpace, nil},
			{prefix + ".quantity", &it.Quantity, NormalizeQuantity, nil},
			{prefix + ".unit", &it.Unit, strings.TrimSpace, nil},
			{prefix + ".rate", &it.Rate, NormalizeAmount, nil},
			{prefix + ".amount", &it.Amount, NormalizeAmount, nil},
		})
		if it == (LineItem{}) {
			continue
		}
		items = append(items, it)
	}
	if items == nil {
		items = []LineItem{}
	}
	r.Items = items

	return discarded
}
