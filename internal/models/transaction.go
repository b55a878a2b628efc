package models

import "time"

// TransactionStatus indicates the state of a ledger transaction row.
type TransactionStatus string

const (
	Posted TransactionStatus = "POSTED"
)

// Transaction represents a transaction header row. Metadata is stored as a
// JSONB blob and decoded by the mapping layer.
type Transaction struct {
	TransactionID   string            `db:"transaction_id"`
	WorkspaceID     string            `db:"workspace_id"`
	TransactionDate time.Time         `db:"transaction_date"`
	Description     string            `db:"description"`
	Source          string            `db:"source"`
	ExternalID      *string           `db:"external_id"`
	Status          TransactionStatus `db:"status"`
	Metadata        []byte            `db:"metadata"`
	AuditFields
}
