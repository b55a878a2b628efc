package models

import "github.com/shopspring/decimal"

// EntryType indicates whether a journal entry row is a Debit or a Credit.
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// JournalEntry represents a single journal entry row within a transaction.
type JournalEntry struct {
	EntryID       string          `db:"entry_id"`
	TransactionID string          `db:"transaction_id"`
	AccountID     string          `db:"account_id"`
	EntryType     EntryType       `db:"entry_type"`
	Amount        decimal.Decimal `db:"amount"`
	Description   string          `db:"description"`
	AuditFields
}
