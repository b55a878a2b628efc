package services

import (
	"context"
	"time"

	"github.com/opsarc/paperflow/internal/core/domain"
	"github.com/opsarc/paperflow/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerReaderSvc defines read operations for ledger transactions
type LedgerReaderSvc interface {
	// GetTransactionByID retrieves a transaction with its journal entries.
	GetTransactionByID(ctx context.Context, workspaceID string, transactionID string) (*domain.Transaction, error)

	// ListTransactions retrieves a paginated list of transactions in a workspace.
	ListTransactions(ctx context.Context, workspaceID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)
}

// LedgerWriterSvc defines write operations for ledger transactions
type LedgerWriterSvc interface {
	// RecordTransaction validates and persists a balanced transaction with
	// its journal entries. When the request carries an external id that was
	// already recorded in the workspace, the existing transaction is
	// returned unchanged.
	RecordTransaction(ctx context.Context, workspaceID string, req dto.RecordTransactionRequest, actorID string) (*domain.Transaction, error)
}

// LedgerCalculatorSvc defines derived-balance reads over posted entries
type LedgerCalculatorSvc interface {
	// GetAccountBalance computes the account's balance from its posted
	// entries, signed by the account type's convention. A nil asOf means now.
	GetAccountBalance(ctx context.Context, workspaceID string, accountID string, asOf *time.Time) (decimal.Decimal, error)

	// GetTrialBalance aggregates every account's activity in the workspace.
	GetTrialBalance(ctx context.Context, workspaceID string, asOf *time.Time) (*domain.TrialBalanceReport, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces
// This is a facade for clients that need access to all operations
type LedgerSvcFacade interface {
	LedgerReaderSvc
	LedgerWriterSvc
	LedgerCalculatorSvc
}
