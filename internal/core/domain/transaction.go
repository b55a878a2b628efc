package domain

import "time"

// TransactionStatus indicates the state of a ledger transaction. The ledger
// is append-only: corrections are new offsetting transactions, so POSTED is
// the only status a persisted transaction ever carries.
type TransactionStatus string

const (
	Posted TransactionStatus = "POSTED"
)

// Transaction represents a single balanced financial event composed of
// multiple journal entries. Once posted it is immutable.
type Transaction struct {
	TransactionID   string            `json:"transactionID"`        // Primary Key (UUID)
	WorkspaceID     string            `json:"workspaceID"`          // FK -> workspaces.workspace_id (Not Null)
	TransactionDate time.Time         `json:"transactionDate"`      // Date the event occurred
	Description     string            `json:"description"`          // User description (Not Null)
	Source          string            `json:"source"`               // Origin of the posting, e.g. "manual" or a workflow id
	ExternalID      *string           `json:"externalID,omitempty"` // Idempotency key, unique per workspace when set
	Status          TransactionStatus `json:"status"`               // Always POSTED
	Metadata        map[string]any    `json:"metadata,omitempty"`   // Free-form annotations (invoice number, vendor, ...)
	AuditFields
	// Entries are loaded separately for list queries and inline for single reads.
	Entries []JournalEntry `json:"entries,omitempty"`
}
