package dto

import (
	"time"

	"github.com/opsarc/paperflow/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RecordEntryRequest defines one journal entry line of a transaction request.
type RecordEntryRequest struct {
	AccountID   string           `json:"accountID" binding:"required"`
	EntryType   domain.EntryType `json:"entryType" binding:"required,oneof=DEBIT CREDIT"`
	Amount      decimal.Decimal  `json:"amount" binding:"required"`
	Description string           `json:"description"` // Optional note for this line
}

// RecordTransactionRequest defines the data needed to record a balanced
// transaction. Entries must balance: the debit total and credit total may
// differ by at most the rounding epsilon.
type RecordTransactionRequest struct {
	Date        time.Time `json:"date" binding:"required"`
	Description string    `json:"description" binding:"required"`
	// Source names the origin of the posting, e.g. "manual" or a workflow
	// execution id. Defaults to "manual" when empty.
	Source string `json:"source"`
	// ExternalID is the idempotency key. Re-posting with an already recorded
	// external id returns the existing transaction untouched.
	ExternalID *string              `json:"externalID"`
	Metadata   map[string]any       `json:"metadata"`
	Entries    []RecordEntryRequest `json:"entries" binding:"required,min=2,dive"`
}

// JournalEntryResponse defines the data returned for a single entry line.
type JournalEntryResponse struct {
	EntryID     string           `json:"entryID"`
	AccountID   string           `json:"accountID"`
	EntryType   domain.EntryType `json:"entryType"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description,omitempty"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID string                 `json:"transactionID"`
	WorkspaceID   string                 `json:"workspaceID"`
	Date          time.Time              `json:"date"`
	Description   string                 `json:"description"`
	Source        string                 `json:"source"`
	ExternalID    *string                `json:"externalID,omitempty"`
	Status        string                 `json:"status"`
	Metadata      map[string]any         `json:"metadata,omitempty"`
	Entries       []JournalEntryResponse `json:"entries,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	CreatedBy     string                 `json:"createdBy"`
}

// ToJournalEntryResponse converts a domain.JournalEntry to its DTO.
func ToJournalEntryResponse(entry *domain.JournalEntry) JournalEntryResponse {
	return JournalEntryResponse{
		EntryID:     entry.EntryID,
		AccountID:   entry.AccountID,
		EntryType:   entry.EntryType,
		Amount:      entry.Amount,
		Description: entry.Description,
	}
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID: txn.TransactionID,
		WorkspaceID:   txn.WorkspaceID,
		Date:          txn.TransactionDate,
		Description:   txn.Description,
		Source:        txn.Source,
		ExternalID:    txn.ExternalID,
		Status:        string(txn.Status),
		Metadata:      txn.Metadata,
		CreatedAt:     txn.CreatedAt,
		CreatedBy:     txn.CreatedBy,
	}
	if len(txn.Entries) > 0 {
		entries := make([]JournalEntryResponse, len(txn.Entries))
		for i := range txn.Entries {
			entries[i] = ToJournalEntryResponse(&txn.Entries[i])
		}
		resp.Entries = entries
	}
	return resp
}

// ToTransactionResponses converts a slice of domain.Transaction to []TransactionResponse.
func ToTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i, txn := range txns {
		responses[i] = ToTransactionResponse(&txn)
	}
	return responses
}

// ListTransactionsParams defines query parameters for listing transactions.
type ListTransactionsParams struct {
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"nextToken"`
	// IncludeEntries loads the journal entry lines for each transaction.
	IncludeEntries bool `form:"includeEntries,default=false"`
}

// ListTransactionsResponse wraps a page of transactions.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// TrialBalanceRowResponse is one account line of a trial balance report.
type TrialBalanceRowResponse struct {
	AccountID   string             `json:"accountID"`
	AccountName string             `json:"accountName"`
	AccountType domain.AccountType `json:"accountType"`
	TotalDebit  decimal.Decimal    `json:"totalDebit"`
	TotalCredit decimal.Decimal    `json:"totalCredit"`
	Balance     decimal.Decimal    `json:"balance"`
}

// TrialBalanceResponse is the full trial balance report for a workspace.
// A healthy ledger always reports totalDebit equal to totalCredit.
type TrialBalanceResponse struct {
	AsOf        time.Time                 `json:"asOf"`
	Rows        []TrialBalanceRowResponse `json:"rows"`
	TotalDebit  decimal.Decimal           `json:"totalDebit"`
	TotalCredit decimal.Decimal           `json:"totalCredit"`
}

// ToTrialBalanceResponse converts a domain report to its DTO.
func ToTrialBalanceResponse(report *domain.TrialBalanceReport, asOf time.Time) TrialBalanceResponse {
	rows := make([]TrialBalanceRowResponse, len(report.Rows))
	for i, row := range report.Rows {
		rows[i] = TrialBalanceRowResponse{
			AccountID:   row.AccountID,
			AccountName: row.AccountName,
			AccountType: row.AccountType,
			TotalDebit:  row.Debit,
			TotalCredit: row.Credit,
			Balance:     row.Balance,
		}
	}
	return TrialBalanceResponse{
		AsOf:        asOf,
		Rows:        rows,
		TotalDebit:  report.TotalDebit,
		TotalCredit: report.TotalCredit,
	}
}
