package domain

// Workspace represents an isolated environment containing accounts, ledger
// transactions and workflow executions. Every query against workspace-owned
// data is scoped by WorkspaceID.
type Workspace struct {
	WorkspaceID string `json:"workspaceID"` // Primary Key (UUID)
	Name        string `json:"name"`        // User-defined name for the workspace
	Description string `json:"description"` // Optional description
	IsActive    bool   `json:"isActive"`    // Disabled workspaces reject writes
	Version     int64  `json:"version"`     // Optimistic concurrency version
	AuditFields
}
