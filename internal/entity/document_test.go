package entity

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/joseph-ayodele/document-extractor/constants"
)

func TestEmptyRecordMarshalsEveryKey(t *testing.T) {
	b, err := json.Marshal(DocumentRecord{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(b)
	for _, key := range []string{`"items":[]`, `"igst":""`, `"client_info":{`, `"pan":""`, `"document_type":""`} {
		if !strings.Contains(got, key) {
			t.Fatalf("expected %s in %s", key, got)
		}
	}
	if strings.Contains(got, "null") {
		t.Fatalf("record must never contain null: %s", got)
	}
}

func TestSanitizeDiscardsInvalidShapes(t *testing.T) {
	r := &DocumentRecord{
		DocumentType: "tax invoice",
		ClientInfo: PartyInfo{
			GSTIN: "29abcde1234f1z5",
			PAN:   "ABCDE12345",
			Phone: "+91-80-12345678",
			Email: "not-an-email",
		},
		ReceiverInfo: PartyInfo{Pincode: "122 001"},
		Items: []LineItem{
			{Description: "Widget", Quantity: "1,000", Rate: "₹ 4.50", Amount: "4,500.00"},
			{},
		},
		Subtotal:    "65,000.00",
		CGST:        "5850",
		TotalAmount: "12.345",
	}
	discarded := r.Sanitize()

	if r.DocumentType != constants.Invoice {
		t.Fatalf("document type = %q", r.DocumentType)
	}
	if r.ClientInfo.GSTIN != "29ABCDE1234F1Z5" {
		t.Fatalf("gstin = %q", r.ClientInfo.GSTIN)
	}
	if r.ClientInfo.Phone != "+918012345678" {
		t.Fatalf("phone = %q", r.ClientInfo.Phone)
	}
	if r.ReceiverInfo.Pincode != "122001" {
		t.Fatalf("pincode = %q", r.ReceiverInfo.Pincode)
	}
	if r.Subtotal != "65000.00" || r.TotalAmount != "" {
		t.Fatalf("subtotal=%q total=%q", r.Subtotal, r.TotalAmount)
	}
	if len(r.Items) != 1 || r.Items[0].Quantity != "1000" || r.Items[0].Rate != "4.50" || r.Items[0].Amount != "4500.00" {
		t.Fatalf("items = %+v", r.Items)
	}

	want := map[string]bool{"client_info.pan": true, "client_info.email": true, "total_amount": true}
	if len(discarded) != len(want) {
		t.Fatalf("discarded = %v", discarded)
	}
	for _, d := range discarded {
		if !want[d] {
			t.Fatalf("unexpected discarded path %q", d)
		}
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	r := &DocumentRecord{
		DocumentType: "PO",
		ClientInfo:   PartyInfo{CompanyName: " ABC PVT LTD ", Phone: "99666 07317", GSTIN: "36abcch1234d1z5"},
		Items:        []LineItem{{Description: "Analyzer", Quantity: "1", Unit: "nos", Rate: "475.00", Amount: "475.00"}},
		TotalAmount:  "Rs. 1,18,000.00",
	}
	r.Sanitize()
	first, _ := json.Marshal(r)
	if d := r.Sanitize(); len(d) != 0 {
		t.Fatalf("second pass discarded %v", d)
	}
	second, _ := json.Marshal(r)
	if string(first) != string(second) {
		t.Fatalf("not idempotent:\n%s\n%s", first, second)
	}
	if r.TotalAmount != "118000.00" {
		t.Fatalf("total = %q", r.TotalAmount)
	}
}

func TestDiagnosticsAdvanceRejectsBackwardTransitions(t *testing.T) {
	var d Diagnostics
	for _, s := range []constants.Stage{constants.StageInit, constants.StageTextMerged, constants.StageRuleExtracted} {
		if !d.Advance(s) {
			t.Fatalf("advance to %s refused", s)
		}
	}
	if d.Advance(constants.StageTextMerged) {
		t.Fatalf("backward transition accepted")
	}
	if d.Advance(constants.StageRuleExtracted) {
		t.Fatalf("repeated transition accepted")
	}
	if !d.Advance(constants.StageMerged) || d.Current() != constants.StageMerged {
		t.Fatalf("skip over optional LLM stage refused, current=%s", d.Current())
	}
}
