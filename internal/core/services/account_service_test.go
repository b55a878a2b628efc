package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/opsarc/paperflow/internal/apperrors"
	"github.com/opsarc/paperflow/internal/core/domain"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/core/services"
	"github.com/opsarc/paperflow/internal/dto"
)

// MockAccountRepository is a mock type for the AccountRepositoryFacade interface
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountByCode(ctx context.Context, workspaceID string, code string) (*domain.Account, error) {
	args := m.Called(ctx, workspaceID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, workspaceID string, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, workspaceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) SaveAccounts(ctx context.Context, accounts []domain.Account) error {
	args := m.Called(ctx, accounts)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, accountID string, userID string, now time.Time) error {
	args := m.Called(ctx, accountID, userID, now)
	return args.Error(0)
}

// MockWorkspaceAuthorizer is a mock type for the WorkspaceAuthorizerSvc interface
type MockWorkspaceAuthorizer struct {
	mock.Mock
}

func (m *MockWorkspaceAuthorizer) EnsureWorkspaceExists(ctx context.Context, workspaceID string) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}

func (m *MockWorkspaceAuthorizer) EnsureWorkspaceActive(ctx context.Context, workspaceID string) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}

// --- Test Suite Setup ---

type AccountServiceTestSuite struct {
	suite.Suite
	mockRepo       *MockAccountRepository
	mockAuthorizer *MockWorkspaceAuthorizer
	service        portssvc.AccountSvcFacade
	workspaceID    string
	actorID        string
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockAccountRepository)
	suite.mockAuthorizer = new(MockWorkspaceAuthorizer)
	suite.service = services.NewAccountService(suite.mockRepo, services.WithWorkspaceAuthorizer(suite.mockAuthorizer))
	suite.workspaceID = uuid.NewString()
	suite.actorID = uuid.NewString()
}

func (suite *AccountServiceTestSuite) allowActiveWorkspace() {
	suite.mockAuthorizer.On("EnsureWorkspaceActive", mock.Anything, suite.workspaceID).Return(nil).Once()
}

// --- Test Cases ---

func (suite *AccountServiceTestSuite) TestCreateAccount_Success() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		Code:        "6000",
		Name:        "Travel Expenses",
		AccountType: domain.Expense,
		Description: "Flights and hotels",
	}

	suite.allowActiveWorkspace()
	suite.mockRepo.On("SaveAccount", ctx, mock.MatchedBy(func(account domain.Account) bool {
		return account.WorkspaceID == suite.workspaceID &&
			account.Code == "6000" &&
			account.AccountType == domain.Expense &&
			account.IsActive &&
			account.CreatedBy == suite.actorID
	})).Return(nil).Once()

	account, err := suite.service.CreateAccount(ctx, suite.workspaceID, req, suite.actorID)

	suite.Require().NoError(err)
	suite.Require().NotNil(account)
	suite.NotEmpty(account.AccountID)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockAuthorizer.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCreateAccount_InactiveWorkspaceRejected() {
	ctx := context.Background()
	suite.mockAuthorizer.On("EnsureWorkspaceActive", mock.Anything, suite.workspaceID).
		Return(apperrors.NewValidationFailedError("workspace is inactive")).Once()

	account, err := suite.service.CreateAccount(ctx, suite.workspaceID, dto.CreateAccountRequest{
		Code: "6000", Name: "Travel Expenses", AccountType: domain.Expense,
	}, suite.actorID)

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
	suite.Nil(account)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_BlankCode() {
	ctx := context.Background()
	suite.allowActiveWorkspace()

	_, err := suite.service.CreateAccount(ctx, suite.workspaceID, dto.CreateAccountRequest{
		Code: "   ", Name: "Travel Expenses", AccountType: domain.Expense,
	}, suite.actorID)

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_UnknownType() {
	ctx := context.Background()
	suite.allowActiveWorkspace()

	_, err := suite.service.CreateAccount(ctx, suite.workspaceID, dto.CreateAccountRequest{
		Code: "6000", Name: "Mystery", AccountType: domain.AccountType("CONTRA"),
	}, suite.actorID)

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "unknown account type")
}

func (suite *AccountServiceTestSuite) TestCreateDefaultAccounts_SeedsFullChart() {
	ctx := context.Background()

	var seeded []domain.Account
	suite.mockRepo.On("SaveAccounts", ctx, mock.AnythingOfType("[]domain.Account")).
		Run(func(args mock.Arguments) {
			seeded = args.Get(1).([]domain.Account)
		}).Return(nil).Once()

	accounts, err := suite.service.CreateDefaultAccounts(ctx, suite.workspaceID, suite.actorID)

	suite.Require().NoError(err)
	suite.Require().Len(accounts, 6)
	suite.Require().Len(seeded, 6)

	byCode := make(map[string]domain.Account, len(seeded))
	for _, account := range seeded {
		byCode[account.Code] = account
	}
	suite.Equal(domain.Asset, byCode["1000"].AccountType)
	suite.Equal(domain.Asset, byCode["1100"].AccountType)
	suite.Equal(domain.Liability, byCode["2000"].AccountType)
	suite.Equal(domain.Equity, byCode["3000"].AccountType)
	suite.Equal(domain.Revenue, byCode["4000"].AccountType)
	suite.Equal(domain.Expense, byCode["5000"].AccountType)
	for _, account := range seeded {
		suite.True(account.IsActive)
		suite.Equal(suite.workspaceID, account.WorkspaceID)
	}
}

func (suite *AccountServiceTestSuite) TestGetAccountByID_WrongWorkspaceObscured() {
	ctx := context.Background()
	account := &domain.Account{
		AccountID:   uuid.NewString(),
		WorkspaceID: uuid.NewString(), // different workspace
		Code:        "1000",
	}
	suite.mockRepo.On("FindAccountByID", ctx, account.AccountID).Return(account, nil).Once()

	got, err := suite.service.GetAccountByID(ctx, suite.workspaceID, account.AccountID)

	suite.Require().ErrorIs(err, apperrors.ErrNotFound)
	suite.Nil(got)
}

func (suite *AccountServiceTestSuite) TestGetAccountsByIDs_ForeignAccountObscuresWholeBatch() {
	ctx := context.Background()
	local := domain.Account{AccountID: uuid.NewString(), WorkspaceID: suite.workspaceID}
	foreign := domain.Account{AccountID: uuid.NewString(), WorkspaceID: uuid.NewString()}
	ids := []string{local.AccountID, foreign.AccountID}

	suite.mockRepo.On("FindAccountsByIDs", ctx, ids).Return(map[string]domain.Account{
		local.AccountID:   local,
		foreign.AccountID: foreign,
	}, nil).Once()

	got, err := suite.service.GetAccountsByIDs(ctx, suite.workspaceID, ids)

	suite.Require().ErrorIs(err, apperrors.ErrNotFound)
	suite.Nil(got)
}

func (suite *AccountServiceTestSuite) TestUpdateAccount_PartialUpdate() {
	ctx := context.Background()
	account := &domain.Account{
		AccountID:   uuid.NewString(),
		WorkspaceID: suite.workspaceID,
		Code:        "5000",
		Name:        "Operating Expenses",
		IsActive:    true,
	}
	newName := "General Operating Expenses"

	suite.allowActiveWorkspace()
	suite.mockRepo.On("FindAccountByID", ctx, account.AccountID).Return(account, nil).Once()
	suite.mockRepo.On("UpdateAccount", ctx, mock.MatchedBy(func(updated domain.Account) bool {
		return updated.Name == newName &&
			updated.IsActive &&
			updated.LastUpdatedBy == suite.actorID
	})).Return(nil).Once()

	updated, err := suite.service.UpdateAccount(ctx, suite.workspaceID, account.AccountID, dto.UpdateAccountRequest{Name: &newName}, suite.actorID)

	suite.Require().NoError(err)
	suite.Equal(newName, updated.Name)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestUpdateAccount_NoFieldsIsANoOp() {
	ctx := context.Background()
	account := &domain.Account{
		AccountID:   uuid.NewString(),
		WorkspaceID: suite.workspaceID,
		Name:        "Cash",
	}

	suite.allowActiveWorkspace()
	suite.mockRepo.On("FindAccountByID", ctx, account.AccountID).Return(account, nil).Once()

	updated, err := suite.service.UpdateAccount(ctx, suite.workspaceID, account.AccountID, dto.UpdateAccountRequest{}, suite.actorID)

	suite.Require().NoError(err)
	suite.Equal("Cash", updated.Name)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestDeactivateAccount_Success() {
	ctx := context.Background()
	account := &domain.Account{
		AccountID:   uuid.NewString(),
		WorkspaceID: suite.workspaceID,
		IsActive:    true,
	}

	suite.allowActiveWorkspace()
	suite.mockRepo.On("FindAccountByID", ctx, account.AccountID).Return(account, nil).Once()
	suite.mockRepo.On("DeactivateAccount", ctx, account.AccountID, suite.actorID, mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err := suite.service.DeactivateAccount(ctx, suite.workspaceID, account.AccountID, suite.actorID)

	suite.Require().NoError(err)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestListAccounts_NilPageBecomesEmpty() {
	ctx := context.Background()
	suite.mockRepo.On("ListAccounts", ctx, suite.workspaceID, 50, 0).Return(nil, nil).Once()

	accounts, err := suite.service.ListAccounts(ctx, suite.workspaceID, 50, 0)

	suite.Require().NoError(err)
	suite.NotNil(accounts)
	suite.Empty(accounts)
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
