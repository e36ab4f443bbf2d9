package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is the structured outcome of a successfully processed submission.
// Exactly one receipt exists per completed submission, and it is never
// mutated after creation.
type Receipt struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submissionId"`
	DeviceID     string `json:"deviceId"`

	VendorName  string `json:"vendorName"`
	VendorTIN   string `json:"vendorTin,omitempty"`
	VendorPhone string `json:"vendorPhone,omitempty"`
	// VRN is the vendor's VAT Registration Number.
	VRN           string `json:"vrn,omitempty"`
	ReceiptNumber string `json:"receiptNumber,omitempty"`
	// UIN is the unique invoice number printed by the fiscal device.
	UIN string `json:"uin,omitempty"`

	// VerificationCode is the portal-issued code used as the deduplication
	// key. nil means the receipt carries no code and does not participate in
	// dedup; a non-nil value is globally unique.
	VerificationCode *string `json:"verificationCode,omitempty"`

	ReceiptDate *time.Time      `json:"receiptDate,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	VATAmount   decimal.Decimal `json:"vatAmount"`

	CustomerName   string `json:"customerName,omitempty"`
	CustomerIDType string `json:"customerIdType,omitempty"`
	CustomerID     string `json:"customerId,omitempty"`

	Description string `json:"description,omitempty"`
	TaxAnalysis string `json:"taxAnalysis,omitempty"`

	// RawPayload retains the extractor's tool-call arguments verbatim for
	// audit and export.
	RawPayload  json.RawMessage `json:"rawPayload,omitempty"`
	ProcessedAt time.Time       `json:"processedAt"`
}
