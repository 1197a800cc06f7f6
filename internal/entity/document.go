package entity

import (
	"encoding/json"

	"github.com/joseph-ayodele/document-extractor/constants"
)

// PartyInfo is the identity block of one party on a document. Absent values are "".
type PartyInfo struct {
	CompanyName string `json:"company_name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	Country     string `json:"country"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	GSTIN       string `json:"gstin"`
	PAN         string `json:"pan"`
}

// IsEmpty reports whether no field of the party was extracted.
func (p PartyInfo) IsEmpty() bool {
	return p == PartyInfo{}
}

// LineItem is one row of a document's item table. Numeric columns are decimal strings.
type LineItem struct {
	HSNCode     string `json:"hsn_code"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit"`
	Rate        string `json:"rate"`
	Amount      string `json:"amount"`
}

// DocumentRecord is the normalized output of one extraction run.
type DocumentRecord struct {
	DocumentType   constants.DocumentType `json:"document_type"`
	DocumentNumber string                 `json:"document_number"`
	Date           string                 `json:"date"`
	ClientInfo     PartyInfo              `json:"client_info"`
	ReceiverInfo   PartyInfo              `json:"receiver_info"`
	Items          []LineItem             `json:"items"`
	Subtotal       string                 `json:"subtotal"`
	CGST           string                 `json:"cgst"`
	SGST           string                 `json:"sgst"`
	IGST           string                 `json:"igst"`
	TotalAmount    string                 `json:"total_amount"`
}

// NewDocumentRecord returns an empty record whose items marshal as [].
func NewDocumentRecord() *DocumentRecord {
	return &DocumentRecord{Items: []LineItem{}}
}

// MarshalJSON keeps "items" an array even when no rows were found.
func (r DocumentRecord) MarshalJSON() ([]byte, error) {
	type plain DocumentRecord
	if r.Items == nil {
		r.Items = []LineItem{}
	}
	return json.Marshal(plain(r))
}

// Clone returns a deep copy of the record.
func (r *DocumentRecord) Clone() *DocumentRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Items = make([]LineItem, len(r.Items))
	copy(out.Items, r.Items)
	return &out
}

// IsEmpty reports whether no field of the record carries a value.
func (r *DocumentRecord) IsEmpty() bool {
	if r == nil {
		return true
	}
	return r.DocumentType == "" && r.DocumentNumber == "" && r.Date == "" &&
		r.ClientInfo.IsEmpty() && r.ReceiverInfo.IsEmpty() && len(r.Items) == 0 &&
		r.Subtotal == "" && r.CGST == "" && r.SGST == "" && r.IGST == "" && r.TotalAmount == ""
}
