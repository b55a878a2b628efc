package domain

import "github.com/shopspring/decimal"

// EntryType indicates whether a journal entry is a Debit or a Credit.
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// JournalEntry represents a single leg within a Transaction, affecting one
// account. Amounts are non-negative; direction is carried by EntryType.
type JournalEntry struct {
	EntryID       string          `json:"entryID"`       // Primary Key (UUID)
	TransactionID string          `json:"transactionID"` // FK -> Transaction.transactionID (Not Null)
	AccountID     string          `json:"accountID"`     // FK -> Account.accountID (Not Null)
	EntryType     EntryType       `json:"entryType"`     // DEBIT or CREDIT (Not Null)
	Amount        decimal.Decimal `json:"amount"`        // Non-negative
	Description   string          `json:"description"`   // Nullable
	AuditFields
}
