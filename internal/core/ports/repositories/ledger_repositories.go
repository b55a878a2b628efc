package repositories

import (
	"context"
	"time"

	"github.com/opsarc/paperflow/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerReader defines read operations for transaction headers
type LedgerReader interface {
	// FindTransactionByID retrieves a specific transaction by its unique identifier.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindTransactionByExternalID retrieves a transaction by its idempotency key within a workspace.
	FindTransactionByExternalID(ctx context.Context, workspaceID string, externalID string) (*domain.Transaction, error)

	// ListTransactionsByWorkspace retrieves a paginated list of transactions for a given workspace using token-based pagination.
	// It returns the transactions, a token for the next page, and an error.
	ListTransactionsByWorkspace(ctx context.Context, workspaceID string, limit int, nextToken *string) ([]domain.Transaction, *string, error)
}

// LedgerWriter defines write operations for transaction data
type LedgerWriter interface {
	// SaveTransaction persists a transaction header and its journal entries atomically.
	SaveTransaction(ctx context.Context, txn domain.Transaction, entries []domain.JournalEntry) error
}

// EntryReader defines read operations for journal entries
type EntryReader interface {
	// FindEntriesByTransactionID retrieves all journal entries for a single transaction.
	FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.JournalEntry, error)

	// FindEntriesByTransactionIDs retrieves entries for multiple transactions, grouped by transaction ID.
	FindEntriesByTransactionIDs(ctx context.Context, transactionIDs []string) (map[string][]domain.JournalEntry, error)
}

// BalanceReader defines derived-balance reads. Balances are never stored;
// these aggregate posted journal entries at query time.
type BalanceReader interface {
	// GetAccountActivity returns the summed debit and credit amounts posted
	// to an account up to and including asOf.
	GetAccountActivity(ctx context.Context, workspaceID string, accountID string, asOf time.Time) (debits decimal.Decimal, credits decimal.Decimal, err error)

	// GetTrialBalanceRows returns per-account debit/credit totals for every
	// account in the workspace, up to and including asOf.
	GetTrialBalanceRows(ctx context.Context, workspaceID string, asOf time.Time) ([]domain.TrialBalanceRow, error)
}

// LedgerRepositoryFacade combines all ledger-related repository interfaces
// This is a facade for clients that need access to all operations
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
	EntryReader
	BalanceReader
}

// LedgerRepositoryWithTx extends LedgerRepositoryFacade with transaction capabilities
type LedgerRepositoryWithTx interface {
	LedgerRepositoryFacade
	TransactionManager
}
