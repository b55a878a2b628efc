package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceExtraction is the structured result an extractor reports for an
// invoice document, together with its confidence in the extraction as a
// whole. Confidence lies in [0,1] and is what confidence-gated steps gate on.
type InvoiceExtraction struct {
	VendorName    string          `json:"vendorName"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Amount        decimal.Decimal `json:"amount"`
	IssueDate     *time.Time      `json:"issueDate,omitempty"`
	Confidence    float64         `json:"confidence"`
	// Fields carries extractor-specific extras that do not warrant their
	// own column, e.g. line items or tax breakdowns.
	Fields map[string]any `json:"fields,omitempty"`
}
