package domain

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// IsDebitNormal reports whether debits increase the balance of this account
// type. Asset and Expense balances are debits minus credits; Liability,
// Equity and Revenue balances are credits minus debits.
func (t AccountType) IsDebitNormal() bool {
	return t == Asset || t == Expense
}

// KnownAccountTypes lists every valid AccountType.
func KnownAccountTypes() []AccountType {
	return []AccountType{Asset, Liability, Equity, Revenue, Expense}
}

// Account represents a financial account within the core domain.
// Balances are never stored on the account; they are derived from journal
// entries at read time. Accounts are deactivated, never deleted.
type Account struct {
	AccountID   string      `json:"accountID"`   // Primary Key (UUID)
	WorkspaceID string      `json:"workspaceID"` // FK -> workspaces.workspace_id (NON-NULL)
	Code        string      `json:"code"`        // Chart-of-accounts code, unique per workspace
	Name        string      `json:"name"`        // User-defined name
	AccountType AccountType `json:"accountType"` // ASSET, LIABILITY, etc.
	Description string      `json:"description"` // Nullable user description
	IsActive    bool        `json:"isActive"`    // Inactive accounts reject new entries
	AuditFields
}
