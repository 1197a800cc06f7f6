package pipeline

import (
	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
)

// MergeRecords combines the rule-based and LLM records field by field. Both
// inputs are already sanitized, so a non-empty LLM value is shape-valid and
// wins; otherwise the rule value is kept. LLM items replace rule items only
// when the LLM supplied at least one row. A nil llm returns a copy of rule.
func MergeRecords(rule, llm *entity.DocumentRecord) *entity.DocumentRecord {
	if rule == nil {
		rule = entity.NewDocumentRecord()
	}
	out := rule.Clone()
	if llm == nil {
		return out
	}

	out.DocumentType = pickType(llm.DocumentType, rule.DocumentType)
	out.DocumentNumber = pick(llm.DocumentNumber, rule.DocumentNumber)
	out.Date = pick(llm.Date, rule.Date)
	out.ClientInfo = mergeParty(rule.ClientInfo, llm.ClientInfo)
	out.ReceiverInfo = mergeParty(rule.ReceiverInfo, llm.ReceiverInfo)
	out.Subtotal = pick(llm.Subtotal, rule.Subtotal)
	out.CGST = pick(llm.CGST, rule.CGST)
	out.SGST = pick(llm.SGST, rule.SGST)
	out.IGST = pick(llm.IGST, rule.IGST)
	out.TotalAmount = pick(llm.TotalAmount, rule.TotalAmount)

	if len(llm.Items) > 0 {
		out.Items = make([]entity.LineItem, len(llm.Items))
		copy(out.Items, llm.Items)
	}
	return out
}

func mergeParty(rule, llm entity.PartyInfo) entity.PartyInfo {
	return entity.PartyInfo{
		CompanyName: pick(llm.CompanyName, rule.CompanyName),
		Address:     pick(llm.Address, rule.Address),
		City:        pick(llm.City, rule.City),
		State:       pick(llm.State, rule.State),
		Pincode:     pick(llm.Pincode, rule.Pincode),
		Country:     pick(llm.Country, rule.Country),
		Phone:       pick(llm.Phone, rule.Phone),
		Email:       pick(llm.Email, rule.Email),
		GSTIN:       pick(llm.GSTIN, rule.GSTIN),
		PAN:         pick(llm.PAN, rule.PAN),
	}
}

func pick(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

// pickType treats Unknown as no answer when the other side has a real type.
func pickType(llm, rule constants.DocumentType) constants.DocumentType {
	if llm == "" || (llm == constants.Unknown && rule != "") {
		return rule
	}
	return llm
}
