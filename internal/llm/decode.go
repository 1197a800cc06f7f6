package llm

import (
	"strings"

	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/tidwall/gjson"
)

// ExtractJSONObject returns the outermost {...} block of a model reply, which
// may be wrapped in prose or a code fence.
func ExtractJSONObject(reply string) (string, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return reply[start : end+1], true
}

// DecodeDocument reads a sanitized reply into a record. Missing paths read as "".
func DecodeDocument(data []byte) *entity.DocumentRecord {
	doc := gjson.ParseBytes(data)
	rec := entity.NewDocumentRecord()

	rec.DocumentType = constants.DocumentType(doc.Get("document_type").String())
	rec.DocumentNumber = doc.Get("document_number").String()
	rec.Date = doc.Get("date").String()
	rec.ClientInfo = decodeParty(doc.Get("client_info"))
	rec.ReceiverInfo = decodeParty(doc.Get("receiver_info"))
	rec.Subtotal = doc.Get("subtotal").String()
	rec.CGST = doc.Get("cgst").String()
	rec.SGST = doc.Get("sgst").String()
	rec.IGST = doc.Get("igst").String()
	rec.TotalAmount = doc.Get("total_amount").String()

	doc.Get("items").ForEach(func(_, row gjson.Result) bool {
		rec.Items = append(rec.Items, entity.LineItem{
			HSNCode:     row.Get("hsn_code").String(),
			Description: row.Get("description").String(),
			Quantity:    row.Get("quantity").String(),
			Unit:        row.Get("unit").String(),
			Rate:        row.Get("rate").String(),
			Amount:      row.Get("amount").String(),
		})
		return true
	})
	return rec
}

func decodeParty(p gjson.Result) entity.PartyInfo {
	return entity.PartyInfo{
		CompanyName: p.Get("company_name").String(),
		Address:     p.Get("address").String(),
		City:        p.Get("city").String(),
		State:       p.Get("state").String(),
		Pincode:     p.Get("pincode").String(),
		Country:     p.Get("country").String(),
		Phone:       p.Get("phone").String(),
		Email:       p.Get("email").String(),
		GSTIN:       p.Get("gstin").String(),
		PAN:         p.Get("pan").String(),
	}
}
