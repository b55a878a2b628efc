package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opsarc/paperflow/internal/apperrors"
	"github.com/opsarc/paperflow/internal/core/domain"
	portsrepo "github.com/opsarc/paperflow/internal/core/ports/repositories"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/dto"
	"github.com/opsarc/paperflow/internal/utils/accounting"
)

var (
	ErrUnbalancedTransaction  = errors.New("transaction entries do not balance")
	ErrTransactionMinEntries  = errors.New("transaction must have at least two journal entries")
	ErrTransactionMinAccounts = errors.New("transaction must touch at least two different accounts")
	ErrAccountNotFound        = errors.New("account not found")
	ErrDescriptionMissing     = errors.New("transaction description is required")
)

// defaultTransactionSource labels postings that arrive without an explicit
// origin, e.g. manual API calls.
const defaultTransactionSource = "manual"

// ledgerService provides core double-entry ledger operations.
type ledgerService struct {
	BaseService
	ledgerRepo portsrepo.LedgerRepositoryFacade
	accountSvc portssvc.AccountReaderSvc
}

// NewLedgerService creates a new ledger service with the provided dependencies
func NewLedgerService(ledgerRepo portsrepo.LedgerRepositoryFacade, accountSvc portssvc.AccountReaderSvc, authorizer portssvc.WorkspaceAuthorizerSvc) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		ledgerRepo: ledgerRepo,
		accountSvc: accountSvc,
	}
	svc.WorkspaceAuthorizer = authorizer
	return svc
}

// Ensure ledgerService implements the LedgerSvcFacade interface
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// validateEntries checks structural invariants: at least two entries across
// at least two accounts, no negative amounts, and debit/credit agreement
// within the rounding epsilon.
func (s *ledgerService) validateEntries(entries []domain.JournalEntry) error {
	if len(entries) < 2 {
		return ErrTransactionMinEntries
	}

	accountSet := make(map[string]bool)
	for _, entry := range entries {
		accountSet[entry.AccountID] = true
		if entry.Amount.IsNegative() {
			return fmt.Errorf("%w: entry amount must not be negative for account %s", apperrors.ErrValidation, entry.AccountID)
		}
	}
	if len(accountSet) < 2 {
		return ErrTransactionMinAccounts
	}

	debits, credits := accounting.SumEntrySides(entries)
	if !accounting.IsBalanced(debits, credits) {
		return fmt.Errorf("%w: debits sum is %s and credits sum is %s",
			ErrUnbalancedTransaction, debits.String(), credits.String())
	}
	return nil
}

// RecordTransaction validates and atomically persists a balanced transaction.
// When the request carries an external id already recorded in the workspace,
// the existing transaction is returned unchanged, whether the duplicate is
// detected up front or by losing the insert race.
func (s *ledgerService) RecordTransaction(ctx context.Context, workspaceID string, req dto.RecordTransactionRequest, actorID string) (*domain.Transaction, error) {
	if err := s.EnsureWorkspaceActive(ctx, workspaceID); err != nil {
		return nil, err
	}

	if req.Description == "" {
		return nil, ErrDescriptionMissing
	}

	now := time.Now().UTC()
	transactionID := uuid.NewString()

	entries := make([]domain.JournalEntry, len(req.Entries))
	accountIDs := make([]string, 0, len(req.Entries))
	for i, entryReq := range req.Entries {
		entries[i] = domain.JournalEntry{
			EntryID:       uuid.NewString(),
			TransactionID: transactionID,
			AccountID:     entryReq.AccountID,
			EntryType:     entryReq.EntryType,
			Amount:        entryReq.Amount,
			Description:   entryReq.Description,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actorID,
				LastUpdatedAt: now,
				LastUpdatedBy: actorID,
			},
		}
		accountIDs = append(accountIDs, entryReq.AccountID)
	}

	if err := s.validateEntries(entries); err != nil {
		return nil, err
	}

	// Every referenced account must exist in this workspace and accept entries.
	uniqueAccountIDs := uniqueStrings(accountIDs)
	accountsMap, err := s.accountSvc.GetAccountsByIDs(ctx, workspaceID, uniqueAccountIDs)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch accounts for transaction",
			slog.String("workspace_id", workspaceID))
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	for _, id := range uniqueAccountIDs {
		account, found := accountsMap[id]
		if !found {
			return nil, fmt.Errorf("%w: ID %s", ErrAccountNotFound, id)
		}
		if !account.IsActive {
			return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, id)
		}
	}

	// Idempotency pre-check. The unique index remains the arbiter under
	// concurrency; this read just avoids burning an insert in the common case.
	if req.ExternalID != nil && *req.ExternalID != "" {
		existing, err := s.findExistingByExternalID(ctx, workspaceID, *req.ExternalID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.LogInfo(ctx, "Transaction replayed, returning existing row",
				slog.String("transaction_id", existing.TransactionID),
				slog.String("external_id", *req.ExternalID))
			return existing, nil
		}
	}

	source := req.Source
	if source == "" {
		source = defaultTransactionSource
	}

	txn := domain.Transaction{
		TransactionID:   transactionID,
		WorkspaceID:     workspaceID,
		TransactionDate: req.Date,
		Description:     req.Description,
		Source:          source,
		ExternalID:      req.ExternalID,
		Status:          domain.Posted,
		Metadata:        req.Metadata,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	if err := s.ledgerRepo.SaveTransaction(ctx, txn, entries); err != nil {
		// A concurrent writer with the same external id may have won the
		// insert race; in that case the existing transaction is the answer.
		if errors.Is(err, apperrors.ErrConflict) && req.ExternalID != nil && *req.ExternalID != "" {
			existing, findErr := s.findExistingByExternalID(ctx, workspaceID, *req.ExternalID)
			if findErr == nil && existing != nil {
				s.LogInfo(ctx, "Transaction insert lost idempotency race, returning existing row",
					slog.String("transaction_id", existing.TransactionID),
					slog.String("external_id", *req.ExternalID))
				return existing, nil
			}
		}
		s.LogError(ctx, err, "Failed to save transaction",
			slog.String("transaction_id", transactionID),
			slog.String("workspace_id", workspaceID))
		return nil, err
	}

	s.LogInfo(ctx, "Transaction recorded successfully",
		slog.String("transaction_id", transactionID),
		slog.String("workspace_id", workspaceID),
		slog.Int("entry_count", len(entries)))

	txn.Entries = entries
	return &txn, nil
}

// findExistingByExternalID loads a previously recorded transaction with its
// entries. A nil transaction with nil error means no such row exists.
func (s *ledgerService) findExistingByExternalID(ctx context.Context, workspaceID string, externalID string) (*domain.Transaction, error) {
	existing, err := s.ledgerRepo.FindTransactionByExternalID(ctx, workspaceID, externalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		s.LogError(ctx, err, "Failed to check external id for existing transaction",
			slog.String("external_id", externalID),
			slog.String("workspace_id", workspaceID))
		return nil, fmt.Errorf("failed to check external id: %w", err)
	}

	entries, err := s.ledgerRepo.FindEntriesByTransactionID(ctx, existing.TransactionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch entries for existing transaction",
			slog.String("transaction_id", existing.TransactionID))
		return nil, fmt.Errorf("failed to fetch entries for transaction %s: %w", existing.TransactionID, err)
	}
	existing.Entries = entries
	return existing, nil
}

// GetTransactionByID retrieves a transaction together with its entries.
func (s *ledgerService) GetTransactionByID(ctx context.Context, workspaceID string, transactionID string) (*domain.Transaction, error) {
	txn, err := s.ledgerRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find transaction by ID",
				slog.String("transaction_id", transactionID))
		}
		return nil, err
	}

	if txn.WorkspaceID != workspaceID {
		s.LogDebug(ctx, "Transaction found but belongs to different workspace",
			slog.String("transaction_id", transactionID),
			slog.String("transaction_workspace", txn.WorkspaceID),
			slog.String("requested_workspace", workspaceID))
		return nil, apperrors.ErrNotFound // Obscure existence
	}

	entries, err := s.ledgerRepo.FindEntriesByTransactionID(ctx, transactionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch entries for transaction",
			slog.String("transaction_id", transactionID))
		return nil, fmt.Errorf("failed to retrieve entries for transaction %s: %w", transactionID, apperrors.ErrInternal)
	}
	txn.Entries = entries

	return txn, nil
}

// ListTransactions retrieves a page of transactions, optionally with their
// entry lines batch-loaded.
func (s *ledgerService) ListTransactions(ctx context.Context, workspaceID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	txns, nextToken, err := s.ledgerRepo.ListTransactionsByWorkspace(ctx, workspaceID, params.Limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions",
			slog.String("workspace_id", workspaceID))
		return nil, fmt.Errorf("failed to retrieve transactions: %w", err)
	}

	if params.IncludeEntries && len(txns) > 0 {
		transactionIDs := make([]string, len(txns))
		for i, txn := range txns {
			transactionIDs[i] = txn.TransactionID
		}
		entriesMap, err := s.ledgerRepo.FindEntriesByTransactionIDs(ctx, transactionIDs)
		if err != nil {
			// Serve the page without entry lines rather than failing it.
			s.LogError(ctx, err, "Failed to batch fetch entries for transactions",
				slog.String("workspace_id", workspaceID))
		} else {
			for i := range txns {
				txns[i].Entries = entriesMap[txns[i].TransactionID]
			}
		}
	}

	return &dto.ListTransactionsResponse{
		Transactions: dto.ToTransactionResponses(txns),
		NextToken:    nextToken,
	}, nil
}

// GetAccountBalance derives an account's balance from its posted entries.
// Nothing is ever read from a stored balance column; there is none.
func (s *ledgerService) GetAccountBalance(ctx context.Context, workspaceID string, accountID string, asOf *time.Time) (decimal.Decimal, error) {
	account, err := s.accountSvc.GetAccountByID(ctx, workspaceID, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	at := time.Now().UTC()
	if asOf != nil {
		at = asOf.UTC()
	}

	debits, credits, err := s.ledgerRepo.GetAccountActivity(ctx, workspaceID, accountID, at)
	if err != nil {
		s.LogError(ctx, err, "Failed to aggregate account activity",
			slog.String("account_id", accountID),
			slog.String("workspace_id", workspaceID))
		return decimal.Zero, fmt.Errorf("failed to aggregate activity for account %s: %w", accountID, err)
	}

	return accounting.BalanceFromTotals(account.AccountType, debits, credits), nil
}

// GetTrialBalance aggregates every account's posted activity in the
// workspace. For a ledger built from balanced transactions the report's
// debit and credit totals agree.
func (s *ledgerService) GetTrialBalance(ctx context.Context, workspaceID string, asOf *time.Time) (*domain.TrialBalanceReport, error) {
	if err := s.EnsureWorkspaceExists(ctx, workspaceID); err != nil {
		return nil, err
	}

	at := time.Now().UTC()
	if asOf != nil {
		at = asOf.UTC()
	}

	rows, err := s.ledgerRepo.GetTrialBalanceRows(ctx, workspaceID, at)
	if err != nil {
		s.LogError(ctx, err, "Failed to aggregate trial balance rows",
			slog.String("workspace_id", workspaceID))
		return nil, fmt.Errorf("failed to build trial balance: %w", err)
	}

	report := &domain.TrialBalanceReport{
		Rows:        rows,
		Balances:    make(map[string]decimal.Decimal, len(rows)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for i := range report.Rows {
		row := &report.Rows[i]
		row.Balance = accounting.BalanceFromTotals(row.AccountType, row.Debit, row.Credit)
		report.Balances[row.AccountName] = row.Balance
		report.TotalDebit = report.TotalDebit.Add(row.Debit)
		report.TotalCredit = report.TotalCredit.Add(row.Credit)
	}

	s.LogDebug(ctx, "Trial balance computed",
		slog.String("workspace_id", workspaceID),
		slog.Int("account_count", len(report.Rows)),
		slog.String("total_debit", report.TotalDebit.String()))
	return report, nil
}

// uniqueStrings returns a slice containing only the unique strings from the input.
func uniqueStrings(input []string) []string {
	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, s := range input {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			result = append(result, s)
		}
	}
	return result
}
