package patterns

import (
	"reflect"
	"regexp"
	"testing"

	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/ocr"
)

var demo = ocr.NewRawText([]string{
	"TAX INVOICE",
	"INVOICE NO: INV-2024-001",
	"DATE: 15/01/2024",
	"FROM:",
	"ABC TECHNOLOGIES PVT LTD",
	"GSTIN: 29ABCDE1234F1Z5",
	"123 Tech Park, Sector 5",
	"Electronic City, Bangalore - 560100",
	"Karnataka, India",
	"Phone: +91-80-12345678",
	"Email: accounts@abctech.com",
	"TO:",
	"XYZ SOLUTIONS LIMITED",
	"GSTIN: 06XYZAB5678C1D2",
	"456 Business Hub, Phase 2",
	"Cyber City, Gurgaon - 122001",
	"Haryana, India",
	"Phone: +91-124-9876543",
})

var gstinShape = regexp.MustCompile(`^\d{2}[A-Z0-9]{13}$`)

func TestGSTINsDedupPreservingOrder(t *testing.T) {
	raw := ocr.NewRawText([]string{
		"gstin 36abcch1234d1z5",
		"Bill To:",
		"GSTIN: 36ABCSS3311Z1Z5 / 36ABCCH1234D1Z5",
		"A/c 123456789012345",
	})
	got := GSTINs(raw, raw.All())
	var vals []string
	for _, m := range got {
		vals = append(vals, m.Value)
	}
	want := []string{"36ABCCH1234D1Z5", "36ABCSS3311Z1Z5"}
	if !reflect.DeepEqual(vals, want) {
		t.Fatalf("GSTINs = %v, want %v", vals, want)
	}
}

func TestGSTINsDigitOnlyTokensNeedALabel(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"GSTIN: 361234567890123", "361234567890123"},
		{"GST No. 361234567890123", "361234567890123"},
		{"A/c No: 361234567890123", ""},
	}
	for _, tt := range tests {
		raw := ocr.NewRawText([]string{tt.line})
		got := ""
		if ms := GSTINs(raw, raw.All()); len(ms) > 0 {
			got = ms[0].Value
		}
		if got != tt.want {
			t.Fatalf("GSTINs(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func FuzzGSTINShape(f *testing.F) {
	f.Add("GSTIN: 29ABCDE1234F1Z5")
	f.Add("36abcch1234d1z5 and 36ABCSS3311Z1Z5")
	f.Add("123456789012345")
	f.Add("29ABCDE1234F1Z5X")
	f.Fuzz(func(t *testing.T, line string) {
		raw := ocr.NewRawText([]string{line})
		for _, m := range GSTINs(raw, raw.All()) {
			if !gstinShape.MatchString(m.Value) {
				t.Fatalf("GSTIN %q from %q violates shape", m.Value, line)
			}
		}
	})
}

func TestPhoneFormats(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		line string
		want string
	}{
		{"Phone: +91-80-12345678", "+918012345678"},
		{"Tel 080-12345678", "08012345678"},
		{"Mob: 99666 07317", "9966607317"},
		{"Contact +91 98765 43210", "+919876543210"},
		{"Software License 1 50000 50000", ""},
	}
	for _, tt := range tests {
		raw := ocr.NewRawText([]string{tt.line})
		if got := reg.BestValue("phone", raw, raw.All()); got != tt.want {
			t.Fatalf("phone(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestPartyMatchersOnIssuerBlock(t *testing.T) {
	reg := NewRegistry()
	issuer := LineRange{Start: 0, End: 11}

	checks := map[string]string{
		"company": "ABC TECHNOLOGIES PVT LTD",
		"gstin":   "29ABCDE1234F1Z5",
		"address": "123 Tech Park, Sector 5, Electronic City, Bangalore - 560100, Karnataka, India",
		"city":    "Bangalore",
		"state":   "Karnataka",
		"pincode": "560100",
		"country": "India",
		"phone":   "+918012345678",
		"email":   "accounts@abctech.com",
	}
	for field, want := range checks {
		if got := reg.BestValue(field, demo, issuer); got != want {
			t.Fatalf("%s = %q, want %q", field, got, want)
		}
	}
}

func TestHeaderMatchers(t *testing.T) {
	reg := NewRegistry()
	if got := reg.BestValue("document_type", demo, demo.All()); got != string(constants.Invoice) {
		t.Fatalf("document_type = %q", got)
	}
	if got := reg.BestValue("document_number", demo, demo.All()); got != "INV-2024-001" {
		t.Fatalf("document_number = %q", got)
	}
	if got := reg.BestValue("date", demo, demo.All()); got != "15/01/2024" {
		t.Fatalf("date = %q", got)
	}

	po := ocr.NewRawText([]string{"PURCHASE ORDER", "P.O. No: PO/778/24", "Dated 3rd March 2024", "Bill To: Acme"})
	if got := reg.BestValue("document_type", po, po.All()); got != string(constants.PurchaseOrder) {
		t.Fatalf("po document_type = %q", got)
	}
	if got := reg.BestValue("document_number", po, po.All()); got != "PO/778/24" {
		t.Fatalf("po number = %q", got)
	}
	if got := reg.BestValue("date", po, po.All()); got != "3rd March 2024" {
		t.Fatalf("po date = %q", got)
	}

	billTo := ocr.NewRawText([]string{"Bill To:", "Acme Ltd"})
	if _, ok := reg.Best("document_type", billTo, billTo.All()); ok {
		t.Fatalf("'Bill To' must not classify the document")
	}
}

func TestPriorityOrderBeatsScore(t *testing.T) {
	reg := NewRegistry()
	reg.Register("first", func(ocr.RawText, LineRange) []Match {
		return []Match{{Value: "low", Line: 5, Score: 0.1}}
	})
	reg.Register("second", func(ocr.RawText, LineRange) []Match {
		return []Match{{Value: "high", Line: 0, Score: 9}}
	})
	reg.priority = map[string][]string{"x": {"first", "second"}}
	all := reg.All("x", demo, demo.All())
	if len(all) != 2 || all[0].Value != "low" || all[0].Field != "x" {
		t.Fatalf("All = %+v", all)
	}
}

func TestTotalsLabelAndAmounts(t *testing.T) {
	tests := []struct {
		line string
		kind TotalKind
		ok   bool
		last string
	}{
		{"SUBTOTAL: 65,000.00", TotalSubtotal, true, "65000.00"},
		{"CGST @ 9%: 5850", TotalCGST, true, "5850"},
		{"SGST @ 9%: 5,850.00", TotalSGST, true, "5850.00"},
		{"IGST 18% 0", TotalIGST, true, "0"},
		{"Grand Total Rs. 1,18,000.00", TotalGrand, true, "118000.00"},
		{"TOTAL: 76700", TotalGrand, true, "76700"},
		{"Total Tax 11,700.00", TotalTax, true, "11700.00"},
		{"Total CGST 9.00", TotalCGST, true, "9.00"},
		{"Total SGST 9.00", TotalSGST, true, "9.00"},
		{"TOTAL IGST: 18.00", TotalIGST, true, "18.00"},
		{"TAX INVOICE", "", false, ""},
		{"GSTIN: 29ABCDE1234F1Z5", "", false, ""},
	}
	for _, tt := range tests {
		kind, ok := TotalsLabel(tt.line)
		if kind != tt.kind || ok != tt.ok {
			t.Fatalf("TotalsLabel(%q) = %q,%v", tt.line, kind, ok)
		}
		if got := LastAmount(tt.line); ok && got != tt.last {
			t.Fatalf("LastAmount(%q) = %q, want %q", tt.line, got, tt.last)
		}
	}
}

func TestTokenClassifiers(t *testing.T) {
	if !IsCurrencyShaped("475.00") || !IsCurrencyShaped("50000") || IsCurrencyShaped("5") || IsCurrencyShaped("12a") {
		t.Fatalf("IsCurrencyShaped misclassified")
	}
	if !IsHSN("84713010") || IsHSN("475.00") || IsHSN("123") {
		t.Fatalf("IsHSN misclassified")
	}
	if !IsUnit("nos") || !IsUnit("PCS") || IsUnit("Analyzer") {
		t.Fatalf("IsUnit misclassified")
	}
	if !IsItemHeader("DESCRIPTION QTY RATE AMOUNT") || IsItemHeader("Software License 1 50000 50000") {
		t.Fatalf("IsItemHeader misclassified")
	}
}

func TestAnchors(t *testing.T) {
	tests := []struct {
		line string
		role Role
		rest string
	}{
		{"Bill To:", RoleReceiver, ""},
		{"TO: XYZ LTD", RoleReceiver, "XYZ LTD"},
		{"Ship to - Warehouse 4", RoleReceiver, "Warehouse 4"},
		{"FROM:", RoleIssuer, ""},
		{"Supplier Details", RoleIssuer, ""},
		{"TOTAL: 118.00", RoleNone, ""},
	}
	for _, tt := range tests {
		a, rest, ok := MatchAnchor(tt.line)
		if tt.role == RoleNone {
			if ok {
				t.Fatalf("MatchAnchor(%q) matched %s", tt.line, a.Name)
			}
			continue
		}
		if !ok || a.Role != tt.role || rest != tt.rest {
			t.Fatalf("MatchAnchor(%q) = %+v %q %v", tt.line, a, rest, ok)
		}
	}
}
