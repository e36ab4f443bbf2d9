package types

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ExtractionResult is the structured field set produced by the extraction
// service for one receipt. Required fields mirror the tool schema the
// extractor is instructed to call; everything else is optional and may be
// empty when the receipt does not carry it.
type ExtractionResult struct {
	VendorName  string `json:"vendor_name"`
	VendorTIN   string `json:"vendor_tin,omitempty"`
	VendorPhone string `json:"vendor_phone,omitempty"`
	VRN         string `json:"vrn,omitempty"`
	// ReceiptDate is the extractor's date string in YYYY-MM-DD form. Parsing
	// happens in the processing engine; a malformed value never fails a job.
	ReceiptDate   string `json:"receipt_date"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	UIN           string `json:"uin,omitempty"`

	TotalAmount decimal.Decimal `json:"total_amount"`
	VATAmount   decimal.Decimal `json:"vat_amount,omitempty"`

	VerificationCode string `json:"receipt_verification_code,omitempty"`

	CustomerName   string `json:"customer_name,omitempty"`
	CustomerIDType string `json:"customer_id_type,omitempty"`
	CustomerID     string `json:"customer_id,omitempty"`

	ExtractedDescription string `json:"llm_extracted_description"`
	TaxAnalysis          string `json:"llm_tax_analysis"`

	// Raw holds the extractor's argument payload verbatim for audit.
	Raw json.RawMessage `json:"-"`
}

// HasVerificationCode reports whether the result carries a usable dedup key.
// Blank and whitespace-only codes do not participate in deduplication.
func (r *ExtractionResult) HasVerificationCode() bool {
	return strings.TrimSpace(r.VerificationCode) != ""
}
