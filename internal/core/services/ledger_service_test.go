package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/opsarc/paperflow/internal/apperrors"
	"github.com/opsarc/paperflow/internal/core/domain"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/core/services"
	"github.com/opsarc/paperflow/internal/dto"
)

// MockLedgerRepository is a mock type for the LedgerRepositoryFacade interface
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) FindTransactionByExternalID(ctx context.Context, workspaceID string, externalID string) (*domain.Transaction, error) {
	args := m.Called(ctx, workspaceID, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) ListTransactionsByWorkspace(ctx context.Context, workspaceID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, workspaceID, limit, nextToken)
	var txns []domain.Transaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]domain.Transaction)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return txns, token, args.Error(2)
}

func (m *MockLedgerRepository) SaveTransaction(ctx context.Context, txn domain.Transaction, entries []domain.JournalEntry) error {
	args := m.Called(ctx, txn, entries)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.JournalEntry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalEntry), args.Error(1)
}

func (m *MockLedgerRepository) FindEntriesByTransactionIDs(ctx context.Context, transactionIDs []string) (map[string][]domain.JournalEntry, error) {
	args := m.Called(ctx, transactionIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]domain.JournalEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetAccountActivity(ctx context.Context, workspaceID string, accountID string, asOf time.Time) (decimal.Decimal, decimal.Decimal, error) {
	args := m.Called(ctx, workspaceID, accountID, asOf)
	return args.Get(0).(decimal.Decimal), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockLedgerRepository) GetTrialBalanceRows(ctx context.Context, workspaceID string, asOf time.Time) ([]domain.TrialBalanceRow, error) {
	args := m.Called(ctx, workspaceID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TrialBalanceRow), args.Error(1)
}

// MockAccountReaderSvc is a mock type for the AccountReaderSvc interface
type MockAccountReaderSvc struct {
	mock.Mock
}

func (m *MockAccountReaderSvc) GetAccountByID(ctx context.Context, workspaceID string, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, workspaceID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountReaderSvc) GetAccountByCode(ctx context.Context, workspaceID string, code string) (*domain.Account, error) {
	args := m.Called(ctx, workspaceID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountReaderSvc) GetAccountsByIDs(ctx context.Context, workspaceID string, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, workspaceID, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountReaderSvc) ListAccounts(ctx context.Context, workspaceID string, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, workspaceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

// --- Test Suite Setup ---

type LedgerServiceTestSuite struct {
	suite.Suite
	mockRepo       *MockLedgerRepository
	mockAccountSvc *MockAccountReaderSvc
	service        portssvc.LedgerSvcFacade
	workspaceID    string
	cashAccount    domain.Account
	revenueAccount domain.Account
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockLedgerRepository)
	suite.mockAccountSvc = new(MockAccountReaderSvc)
	suite.service = services.NewLedgerService(suite.mockRepo, suite.mockAccountSvc, nil)
	suite.workspaceID = uuid.NewString()
	suite.cashAccount = domain.Account{
		AccountID:   uuid.NewString(),
		WorkspaceID: suite.workspaceID,
		Code:        "1000",
		Name:        "Cash",
		AccountType: domain.Asset,
		IsActive:    true,
	}
	suite.revenueAccount = domain.Account{
		AccountID:   uuid.NewString(),
		WorkspaceID: suite.workspaceID,
		Code:        "4000",
		Name:        "Sales Revenue",
		AccountType: domain.Revenue,
		IsActive:    true,
	}
}

func (suite *LedgerServiceTestSuite) accountsMap() map[string]domain.Account {
	return map[string]domain.Account{
		suite.cashAccount.AccountID:    suite.cashAccount,
		suite.revenueAccount.AccountID: suite.revenueAccount,
	}
}

func (suite *LedgerServiceTestSuite) balancedRequest(amount string) dto.RecordTransactionRequest {
	return dto.RecordTransactionRequest{
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Description: "Cash sale",
		Entries: []dto.RecordEntryRequest{
			{AccountID: suite.cashAccount.AccountID, EntryType: domain.Debit, Amount: decimal.RequireFromString(amount)},
			{AccountID: suite.revenueAccount.AccountID, EntryType: domain.Credit, Amount: decimal.RequireFromString(amount)},
		},
	}
}

// --- RecordTransaction ---

func (suite *LedgerServiceTestSuite) TestRecordTransaction_Success() {
	ctx := context.Background()
	actorID := uuid.NewString()
	req := suite.balancedRequest("100.00")

	suite.mockAccountSvc.On("GetAccountsByIDs", ctx, suite.workspaceID,
		mock.AnythingOfType("[]string")).Return(suite.accountsMap(), nil).Once()
	suite.mockRepo.On("SaveTransaction", ctx,
		mock.MatchedBy(func(txn domain.Transaction) bool {
			return txn.WorkspaceID == suite.workspaceID &&
				txn.Status == domain.Posted &&
				txn.Source == "manual" &&
				txn.Description == "Cash sale"
		}),
		mock.MatchedBy(func(entries []domain.JournalEntry) bool {
			return len(entries) == 2 &&
				entries[0].EntryID != "" &&
				entries[0].TransactionID == entries[1].TransactionID
		})).Return(nil).Once()

	txn, err := suite.service.RecordTransaction(ctx, suite.workspaceID, req, actorID)

	suite.Require().NoError(err)
	suite.Require().NotNil(txn)
	suite.NotEmpty(txn.TransactionID)
	suite.Equal(domain.Posted, txn.Status)
	suite.Len(txn.Entries, 2)
	suite.Equal(actorID, txn.CreatedBy)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockAccountSvc.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestRecordTransaction_UnbalancedRejected() {
	ctx := context.Background()
	req := dto.RecordTransactionRequest{
		Date:        time.Now().UTC(),
		Description: "Off by a cent",
		Entries: []dto.RecordEntryRequest{
			{AccountID: suite.cashAccount.AccountID, EntryType: domain.Debit, Amount: decimal.RequireFromString("100.00")},
			{AccountID: suite.revenueAccount.AccountID, EntryType: domain.Credit, Amount: decimal.RequireFromString("99.99")},
		},
	}

	txn, err := suite.service.RecordTransaction(ctx, suite.workspaceID, req, uuid.NewString())

	suite.Require().ErrorIs(err, services.ErrUnbalancedTransaction)
	suite.Nil(txn)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveTransaction", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestRecordTransaction_SubCentDriftAccepted() {
	ctx := context.Background()
	req := dto.RecordTransactionRequest{
		Date:        time.Now().UTC(),
		Description: "Rounding drift from extraction",
		Entries: []dto.RecordEntryRequest{
			{AccountID: suite.cashAccount.AccountID, EntryType: domain.Debit, Amount: decimal.RequireFromString("100.004")},
			{AccountID: suite.revenueAccount.AccountID, EntryType: domain.Credit, Amount: decimal.RequireFromString("100.00")},
		},
	}

	suite.mockAccountSvc.On("GetAccountsByIDs", ctx, suite.workspaceID,
		mock.AnythingOfType("[]string")).Return(suite.accountsMap(), nil).Once()
	suite.mockRepo.On("SaveTransaction", ctx, mock.Anything, mock.Anything).Return(nil).Once()

	txn, err := suite.service.RecordTransaction(ctx, suite.workspaceID, req, uuid.NewString())

	suite.Require().NoError(err)
	suite.NotNil(txn)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestRecordTransaction_MinEntries() {
	ctx := context.Background()
	req := dto.RecordTransactionRequest{
		Date:        time.Now().UTC(),
		Description: "One-legged",
		Entries: []dto.RecordEntryRequest{
			{AccountID: suite.cashAccount.AccountID, EntryType: domain.Debit, Amount: decimal.RequireFromString("10.00")},
		},
	}

	_, err := suite.service.RecordTransaction(ctx, suite.workspaceID, req, uuid.NewString())

	suite.Require().ErrorIs(err, services.ErrTransactionMinEntries)
}

func (suite *LedgerServiceTestSuite) TestRecordTransaction_MinAccounts() {
	ctx := context.Background()
	req := dto.RecordTransactionRequest{
		Date:        time.Now().UTC(),
		Description: "Self transfer",
		Entries: []dto.RecordEntryRequest{
			{AccountID: suite.cashAccount.AccountID, EntryType: domain.Debit, Amount: decimal.RequireFromString("10.00")},
			{AccountID: suite.cashAccount.AccountID, EntryType: domain.Credit, Amount: decimal.RequireFromString("10.00")},
		},
	}

	_, err := suite.service.RecordTransaction(ctx, suite.workspaceID, req, uuid.NewString())

	suite.Require().ErrorIs(err, services.ErrTransactionMinAccounts)
}

func (suite *LedgerServiceTestSuite) TestRecordTransaction_NegativeAmount() {
	ctx := context.Background()
	req := dto.RecordTransactionRequest{
		Date:        time.Now().UTC(),
		Description: "Negative leg",
		Entries: []dto.RecordEntryRequest{
			{AccountID: suite.cashAccount.AccountID, EntryType: domain.Debit, Amount: decimal.RequireFromString("-5.00")},
			{AccountID: suite.revenueAccount.AccountID, EntryType: domain.Credit, Amount: decimal.RequireFromString("-5.00")},
		},
	}

	_, err := suite.service.RecordTransaction(ctx, suite.workspaceID, req, uuid.NewString())

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestRecordTransaction_MissingDescription() {
	ctx := context.Background()
	req := suite.balancedRequest("10.00")
	req.Description = ""

	_, err := suite.service.RecordTransaction(ctx, suite.workspaceID, req, uuid.NewString())

	suite.Require().ErrorIs(err, services.ErrDescriptionMissing)
}

func (suite *LedgerServiceTestSuite) TestRecordTransaction_InactiveAccount() {
	ctx := context.Background()
	req := suite.balancedRequest("10.00")

	inactive := suite.cashAccount
	inactive.IsActive = false
	accounts := map[string]domain.Account{
		inactive.AccountID:             inactive,
		suite.revenueAccount.AccountID: suite.revenueAccount,
	}
	suite.mockAccountSvc.On("GetAccountsByIDs", ctx, suite.workspaceID,
		mock.AnythingOfType("[]string")).Return(accounts, nil).Once()

	_, err := suite.service.RecordTransaction(ctx, suite.workspaceID, req, uuid.NewString())

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveTransaction", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestRecordTransaction_UnknownAccount() {
	ctx := context.Background()
	req := suite.balancedRequest("10.00")

	accounts := map[string]domain.Account{
		suite.cashAccount.AccountID: suite.cashAccount,
		// revenue account missing from the lookup result
	}
	suite.mockAccountSvc.On("GetAccountsByIDs", ctx, suite.workspaceID,
		mock.AnythingOfType("[]string")).Return(accounts, nil).Once()

	_, err := suite.service.RecordTransaction(ctx, suite.workspaceID, req, uuid.NewString())

	suite.Require().ErrorIs(err, services.ErrAccountNotFound)
}

func (suite *LedgerServiceTestSuite) TestRecordTransaction_IdempotentReplayReturnsExisting() {
	ctx := context.Background()
	externalID := "wf:exec-1:process"
	req := suite.balancedRequest("42.00")
	req.ExternalID = &externalID

	existing := &domain.Transaction{
		TransactionID: uuid.NewString(),
		WorkspaceID:   suite.workspaceID,
		ExternalID:    &externalID,
		Status:        domain.Posted,
	}
	existingEntries := []domain.JournalEntry{
		{EntryID: uuid.NewString(), TransactionID: existing.TransactionID},
		{EntryID: uuid.NewString(), TransactionID: existing.TransactionID},
	}

	suite.mockAccountSvc.On("GetAccountsByIDs", ctx, suite.workspaceID,
		mock.AnythingOfType("[]string")).Return(suite.accountsMap(), nil).Once()
	suite.mockRepo.On("FindTransactionByExternalID", ctx, suite.workspaceID, externalID).
		Return(existing, nil).Once()
	suite.mockRepo.On("FindEntriesByTransactionID", ctx, existing.TransactionID).
		Return(existingEntries, nil).Once()

	txn, err := suite.service.RecordTransaction(ctx, suite.workspaceID, req, uuid.NewString())

	suite.Require().NoError(err)
	suite.Equal(existing.TransactionID, txn.TransactionID)
	suite.Len(txn.Entries, 2)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveTransaction", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestRecordTransaction_LostInsertRaceReturnsWinner() {
	ctx := context.Background()
	externalID := "wf:exec-1:process"
	req := suite.balancedRequest("42.00")
	req.ExternalID = &externalID

	winner := &domain.Transaction{
		TransactionID: uuid.NewString(),
		WorkspaceID:   suite.workspaceID,
		ExternalID:    &externalID,
		Status:        domain.Posted,
	}

	suite.mockAccountSvc.On("GetAccountsByIDs", ctx, suite.workspaceID,
		mock.AnythingOfType("[]string")).Return(suite.accountsMap(), nil).Once()
	// Pre-check sees nothing, the insert loses the race, the re-read finds the winner.
	suite.mockRepo.On("FindTransactionByExternalID", ctx, suite.workspaceID, externalID).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("SaveTransaction", ctx, mock.Anything, mock.Anything).
		Return(apperrors.NewConflictError("transaction with this external id already exists")).Once()
	suite.mockRepo.On("FindTransactionByExternalID", ctx, suite.workspaceID, externalID).
		Return(winner, nil).Once()
	suite.mockRepo.On("FindEntriesByTransactionID", ctx, winner.TransactionID).
		Return([]domain.JournalEntry{{}, {}}, nil).Once()

	txn, err := suite.service.RecordTransaction(ctx, suite.workspaceID, req, uuid.NewString())

	suite.Require().NoError(err)
	suite.Equal(winner.TransactionID, txn.TransactionID)
	suite.mockRepo.AssertExpectations(suite.T())
}

// --- Reads ---

func (suite *LedgerServiceTestSuite) TestGetTransactionByID_WrongWorkspaceObscured() {
	ctx := context.Background()
	txn := &domain.Transaction{
		TransactionID: uuid.NewString(),
		WorkspaceID:   uuid.NewString(), // different workspace
	}
	suite.mockRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()

	got, err := suite.service.GetTransactionByID(ctx, suite.workspaceID, txn.TransactionID)

	suite.Require().ErrorIs(err, apperrors.ErrNotFound)
	suite.Nil(got)
}

func (suite *LedgerServiceTestSuite) TestListTransactions_IncludesEntries() {
	ctx := context.Background()
	txnID := uuid.NewString()
	txns := []domain.Transaction{{TransactionID: txnID, WorkspaceID: suite.workspaceID}}
	entries := map[string][]domain.JournalEntry{
		txnID: {{EntryID: uuid.NewString(), TransactionID: txnID}},
	}

	suite.mockRepo.On("ListTransactionsByWorkspace", ctx, suite.workspaceID, 20, (*string)(nil)).
		Return(txns, nil, nil).Once()
	suite.mockRepo.On("FindEntriesByTransactionIDs", ctx, []string{txnID}).
		Return(entries, nil).Once()

	resp, err := suite.service.ListTransactions(ctx, suite.workspaceID, dto.ListTransactionsParams{Limit: 20, IncludeEntries: true})

	suite.Require().NoError(err)
	suite.Require().Len(resp.Transactions, 1)
	suite.Len(resp.Transactions[0].Entries, 1)
	suite.mockRepo.AssertExpectations(suite.T())
}

// --- Derived balances ---

func (suite *LedgerServiceTestSuite) TestGetAccountBalance_DebitNormal() {
	ctx := context.Background()
	suite.mockAccountSvc.On("GetAccountByID", ctx, suite.workspaceID, suite.cashAccount.AccountID).
		Return(&suite.cashAccount, nil).Once()
	suite.mockRepo.On("GetAccountActivity", ctx, suite.workspaceID, suite.cashAccount.AccountID, mock.AnythingOfType("time.Time")).
		Return(decimal.RequireFromString("150.00"), decimal.RequireFromString("30.00"), nil).Once()

	balance, err := suite.service.GetAccountBalance(ctx, suite.workspaceID, suite.cashAccount.AccountID, nil)

	suite.Require().NoError(err)
	suite.True(balance.Equal(decimal.RequireFromString("120.00")), "asset balance is debits minus credits, got %s", balance)
}

func (suite *LedgerServiceTestSuite) TestGetAccountBalance_CreditNormal() {
	ctx := context.Background()
	suite.mockAccountSvc.On("GetAccountByID", ctx, suite.workspaceID, suite.revenueAccount.AccountID).
		Return(&suite.revenueAccount, nil).Once()
	suite.mockRepo.On("GetAccountActivity", ctx, suite.workspaceID, suite.revenueAccount.AccountID, mock.AnythingOfType("time.Time")).
		Return(decimal.RequireFromString("30.00"), decimal.RequireFromString("150.00"), nil).Once()

	balance, err := suite.service.GetAccountBalance(ctx, suite.workspaceID, suite.revenueAccount.AccountID, nil)

	suite.Require().NoError(err)
	suite.True(balance.Equal(decimal.RequireFromString("120.00")), "revenue balance is credits minus debits, got %s", balance)
}

func (suite *LedgerServiceTestSuite) TestGetTrialBalance_TotalsAgreeAndSignedSumIsZero() {
	ctx := context.Background()
	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	rows := []domain.TrialBalanceRow{
		{AccountID: suite.cashAccount.AccountID, AccountName: "Cash", AccountType: domain.Asset,
			Debit: decimal.RequireFromString("500.00"), Credit: decimal.RequireFromString("200.00")},
		{AccountID: uuid.NewString(), AccountName: "Accounts Payable", AccountType: domain.Liability,
			Debit: decimal.RequireFromString("50.00"), Credit: decimal.RequireFromString("150.00")},
		{AccountID: suite.revenueAccount.AccountID, AccountName: "Sales Revenue", AccountType: domain.Revenue,
			Debit: decimal.Zero, Credit: decimal.RequireFromString("200.00")},
	}

	suite.mockRepo.On("GetTrialBalanceRows", ctx, suite.workspaceID, asOf).Return(rows, nil).Once()

	report, err := suite.service.GetTrialBalance(ctx, suite.workspaceID, &asOf)

	suite.Require().NoError(err)
	suite.Require().Len(report.Rows, 3)

	suite.True(report.TotalDebit.Equal(decimal.RequireFromString("550.00")))
	suite.True(report.TotalCredit.Equal(decimal.RequireFromString("550.00")))
	suite.True(report.TotalDebit.Equal(report.TotalCredit), "debit and credit totals must agree")

	suite.True(report.Rows[0].Balance.Equal(decimal.RequireFromString("300.00")))
	suite.True(report.Rows[1].Balance.Equal(decimal.RequireFromString("100.00")))
	suite.True(report.Rows[2].Balance.Equal(decimal.RequireFromString("200.00")))

	// Convention-signed balances cancel out across the whole ledger.
	signedSum := decimal.Zero
	for _, row := range report.Rows {
		if row.AccountType.IsDebitNormal() {
			signedSum = signedSum.Add(row.Balance)
		} else {
			signedSum = signedSum.Sub(row.Balance)
		}
	}
	suite.True(signedSum.IsZero(), "signed balances should sum to zero, got %s", signedSum)

	suite.Equal(report.Balances["Cash"], report.Rows[0].Balance)
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
