package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/joseph-ayodele/document-extractor/constants"
)

var (
	topRenames = map[string]string{
		"type":           "document_type",
		"doc_type":       "document_type",
		"invoice_number": "document_number",
		"invoice_no":     "document_number",
		"po_number":      "document_number",
		"number":         "document_number",
		"invoice_date":   "date",
		"document_date":  "date",
		"vendor_info":    "client_info",
		"seller_info":    "client_info",
		"vendor":         "client_info",
		"buyer_info":     "receiver_info",
		"bill_to":        "receiver_info",
		"receiver":       "receiver_info",
		"line_items":     "items",
		"sub_total":      "subtotal",
		"total":          "total_amount",
		"grand_total":    "total_amount",
	}
	partyRenames = map[string]string{
		"name":       "company_name",
		"company":    "company_name",
		"gst":        "gstin",
		"gst_number": "gstin",
		"gstin_no":   "gstin",
		"pan_number": "pan",
		"pin":        "pincode",
		"pin_code":   "pincode",
		"zip":        "pincode",
		"mobile":     "phone",
		"phone_no":   "phone",
		"email_id":   "email",
	}
	itemRenames = map[string]string{
		"hsn":        "hsn_code",
		"hsn_sac":    "hsn_code",
		"sac":        "hsn_code",
		"qty":        "quantity",
		"uom":        "unit",
		"price":      "rate",
		"unit_price": "rate",
		"total":      "amount",
	}

	topAllowed   = mapset.NewThreadUnsafeSet(slices.Concat(scalarKeys, []string{"client_info", "receiver_info", "items"})...)
	partyAllowed = mapset.NewThreadUnsafeSet(partyKeys...)
	itemAllowed  = mapset.NewThreadUnsafeSet(itemKeys...)
)

// NormalizeAndSanitizeJSON
// - Renames known synonyms (invoice_number -> document_number, qty -> quantity)
// - Drops nulls and values of the wrong kind
// - Coerces numbers to strings without reformatting them
// - Removes unknown keys so the result fits the document schema
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	s := &sanitizer{}
	out := s.document(m)

	b, err := json.Marshal(out)
	if err != nil {
		return nil, s.dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(s.dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", s.dropped)
	}
	return b, s.dropped, nil
}

type sanitizer struct {
	dropped []string
}

func (s *sanitizer) document(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		key, ok := s.key(m, out, k, "", topRenames, topAllowed)
		if !ok {
			continue
		}
		v := m[k]
		switch key {
		case "client_info", "receiver_info":
			obj, ok := v.(map[string]any)
			if !ok {
				s.drop(key + "(type)")
				continue
			}
			out[key] = s.object(obj, key+".", partyRenames, partyAllowed)
		case "items":
			list, ok := v.([]any)
			if !ok {
				s.drop("items(type)")
				continue
			}
			out[key] = s.items(list)
		default:
			str, ok := scalarString(v)
			if !ok {
				s.drop(key + "(type)")
				continue
			}
			if key == "document_type" {
				dt, _ := constants.Canonicalize(str)
				str = string(dt)
			}
			out[key] = str
		}
	}
	return out
}

// object renames, filters and coerces a flat JSON object of string leaves.
func (s *sanitizer) object(m map[string]any, prefix string, renames map[string]string, allowed mapset.Set[string]) map[string]any {
	out := make(map[string]any, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		key, ok := s.key(m, out, k, prefix, renames, allowed)
		if !ok {
			continue
		}
		str, ok := scalarString(m[k])
		if !ok {
			s.drop(prefix + key + "(type)")
			continue
		}
		out[key] = str
	}
	return out
}

// key resolves k to its schema name, or reports false when it must be dropped.
func (s *sanitizer) key(in, out map[string]any, k, prefix string, renames map[string]string, allowed mapset.Set[string]) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(k))
	if to, ok := renames[key]; ok {
		_, original := in[to]
		_, taken := out[to]
		if original || taken {
			s.drop(prefix + k + "(shadowed)")
			return "", false
		}
		s.drop(prefix + k + "->" + to)
		key = to
	}
	if !allowed.Contains(key) {
		s.drop(prefix + k + "(unknown)")
		return "", false
	}
	return key, true
}

func (s *sanitizer) items(list []any) []any {
	out := make([]any, 0, len(list))
	for i, el := range list {
		obj, ok := el.(map[string]any)
		if !ok {
			s.drop(fmt.Sprintf("items[%d](type)", i))
			continue
		}
		out = append(out, s.object(obj, fmt.Sprintf("items[%d].", i), itemRenames, itemAllowed))
	}
	return out
}

func (s *sanitizer) drop(note string) {
	s.dropped = append(s.dropped, note)
}

// scalarString turns a JSON scalar into its trimmed string form. Numbers keep
// their literal digits so 475.00 stays "475.00".
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}
