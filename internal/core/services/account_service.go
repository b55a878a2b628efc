package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opsarc/paperflow/internal/apperrors"
	"github.com/opsarc/paperflow/internal/core/domain"
	portsrepo "github.com/opsarc/paperflow/internal/core/ports/repositories"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/dto"
)

// defaultChartOfAccounts is seeded into every new workspace unless creation
// opts out. Codes follow the usual numbering: 1xxx assets, 2xxx liabilities,
// 3xxx equity, 4xxx revenue, 5xxx expenses.
var defaultChartOfAccounts = []struct {
	Code        string
	Name        string
	AccountType domain.AccountType
	Description string
}{
	{Code: "1000", Name: "Cash", AccountType: domain.Asset, Description: "Cash and cash equivalents"},
	{Code: "1100", Name: "Accounts Receivable", AccountType: domain.Asset, Description: "Amounts owed by customers"},
	{Code: "2000", Name: "Accounts Payable", AccountType: domain.Liability, Description: "Amounts owed to vendors"},
	{Code: "3000", Name: "Retained Earnings", AccountType: domain.Equity, Description: "Accumulated earnings"},
	{Code: "4000", Name: "Sales Revenue", AccountType: domain.Revenue, Description: "Income from sales"},
	{Code: "5000", Name: "Operating Expenses", AccountType: domain.Expense, Description: "Day-to-day operating costs"},
}

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryFacade
}

// ServiceOption is a functional option for configuring the account service
type ServiceOption func(*accountService)

// WithWorkspaceAuthorizer adds the workspace authorizer dependency
func WithWorkspaceAuthorizer(authorizer portssvc.WorkspaceAuthorizerSvc) ServiceOption {
	return func(s *accountService) {
		s.WorkspaceAuthorizer = authorizer
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(repo portsrepo.AccountRepositoryFacade, options ...ServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		accountRepo: repo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, workspaceID string, req dto.CreateAccountRequest, actorID string) (*domain.Account, error) {
	if err := s.EnsureWorkspaceActive(ctx, workspaceID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: account code is required", apperrors.ErrValidation)
	}
	if !isKnownAccountType(req.AccountType) {
		return nil, fmt.Errorf("%w: unknown account type %q", apperrors.ErrValidation, req.AccountType)
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:   uuid.NewString(),
		WorkspaceID: workspaceID,
		Code:        strings.TrimSpace(req.Code),
		Name:        req.Name,
		AccountType: req.AccountType,
		Description: req.Description,
		IsActive:    true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account",
			slog.String("account_id", account.AccountID),
			slog.String("workspace_id", workspaceID))
		return nil, err
	}

	s.LogInfo(ctx, "Account created successfully",
		slog.String("account_id", account.AccountID),
		slog.String("code", account.Code),
		slog.String("workspace_id", workspaceID))
	return &account, nil
}

// CreateDefaultAccounts seeds the workspace's default chart of accounts in a
// single batch.
func (s *accountService) CreateDefaultAccounts(ctx context.Context, workspaceID string, actorID string) ([]domain.Account, error) {
	now := time.Now().UTC()
	accounts := make([]domain.Account, len(defaultChartOfAccounts))
	for i, def := range defaultChartOfAccounts {
		accounts[i] = domain.Account{
			AccountID:   uuid.NewString(),
			WorkspaceID: workspaceID,
			Code:        def.Code,
			Name:        def.Name,
			AccountType: def.AccountType,
			Description: def.Description,
			IsActive:    true,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actorID,
				LastUpdatedAt: now,
				LastUpdatedBy: actorID,
			},
		}
	}

	if err := s.accountRepo.SaveAccounts(ctx, accounts); err != nil {
		s.LogError(ctx, err, "Failed to seed default accounts",
			slog.String("workspace_id", workspaceID))
		return nil, err
	}

	s.LogInfo(ctx, "Default chart of accounts created",
		slog.Int("count", len(accounts)),
		slog.String("workspace_id", workspaceID))
	return accounts, nil
}

func (s *accountService) GetAccountByID(ctx context.Context, workspaceID string, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account by ID",
				slog.String("account_id", accountID))
		}
		return nil, err
	}

	if account.WorkspaceID != workspaceID {
		s.LogDebug(ctx, "Account found but belongs to different workspace",
			slog.String("account_id", accountID),
			slog.String("account_workspace", account.WorkspaceID),
			slog.String("requested_workspace", workspaceID))
		// Return NotFound to obscure existence from other workspaces
		return nil, apperrors.ErrNotFound
	}

	return account, nil
}

func (s *accountService) GetAccountByCode(ctx context.Context, workspaceID string, code string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByCode(ctx, workspaceID, code)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account by code",
				slog.String("code", code),
				slog.String("workspace_id", workspaceID))
		}
		return nil, err
	}
	return account, nil
}

func (s *accountService) GetAccountsByIDs(ctx context.Context, workspaceID string, accountIDs []string) (map[string]domain.Account, error) {
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		s.LogError(ctx, err, "Failed to find accounts by IDs",
			slog.String("account_ids", fmt.Sprintf("%v", accountIDs)))
		return nil, err
	}

	for _, account := range accounts {
		if account.WorkspaceID != workspaceID {
			s.LogDebug(ctx, "Account found but belongs to different workspace",
				slog.String("account_id", account.AccountID),
				slog.String("account_workspace", account.WorkspaceID),
				slog.String("requested_workspace", workspaceID))
			return nil, apperrors.ErrNotFound
		}
	}

	return accounts, nil
}

func (s *accountService) ListAccounts(ctx context.Context, workspaceID string, limit int, offset int) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccounts(ctx, workspaceID, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts",
			slog.String("workspace_id", workspaceID),
			slog.Int("limit", limit),
			slog.Int("offset", offset))
		return nil, fmt.Errorf("failed to list accounts for workspace %s: %w", workspaceID, err)
	}

	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

func (s *accountService) UpdateAccount(ctx context.Context, workspaceID string, accountID string, req dto.UpdateAccountRequest, actorID string) (*domain.Account, error) {
	if err := s.EnsureWorkspaceActive(ctx, workspaceID); err != nil {
		return nil, err
	}

	account, err := s.GetAccountByID(ctx, workspaceID, accountID)
	if err != nil {
		return nil, err
	}

	updated := false
	if req.Name != nil {
		account.Name = *req.Name
		updated = true
	}
	if req.Description != nil {
		account.Description = *req.Description
		updated = true
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
		updated = true
	}
	if !updated {
		s.LogDebug(ctx, "No fields provided for account update",
			slog.String("account_id", accountID))
		return account, nil
	}

	now := time.Now().UTC()
	account.LastUpdatedAt = now
	account.LastUpdatedBy = actorID

	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		s.LogError(ctx, err, "Failed to update account",
			slog.String("account_id", accountID))
		return nil, err
	}

	s.LogInfo(ctx, "Account updated successfully",
		slog.String("account_id", account.AccountID),
		slog.String("workspace_id", account.WorkspaceID))
	return account, nil
}

func (s *accountService) DeactivateAccount(ctx context.Context, workspaceID string, accountID string, actorID string) error {
	if err := s.EnsureWorkspaceActive(ctx, workspaceID); err != nil {
		return err
	}

	// Verify the account exists and belongs to the workspace first
	if _, err := s.GetAccountByID(ctx, workspaceID, accountID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.accountRepo.DeactivateAccount(ctx, accountID, actorID, now); err != nil {
		s.LogError(ctx, err, "Failed to deactivate account",
			slog.String("account_id", accountID))
		return err
	}

	s.LogInfo(ctx, "Account deactivated successfully",
		slog.String("account_id", accountID),
		slog.String("workspace_id", workspaceID))
	return nil
}

func isKnownAccountType(t domain.AccountType) bool {
	for _, known := range domain.KnownAccountTypes() {
		if t == known {
			return true
		}
	}
	return false
}
