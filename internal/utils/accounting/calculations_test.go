package accounting_test

import (
	"testing"

	"github.com/opsarc/paperflow/internal/core/domain"
	"github.com/opsarc/paperflow/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSignedAmount(t *testing.T) {
	amount := decimal.RequireFromString("100.00")

	tests := []struct {
		name        string
		entryType   domain.EntryType
		accountType domain.AccountType
		want        string
	}{
		{name: "debit to asset is positive", entryType: domain.Debit, accountType: domain.Asset, want: "100"},
		{name: "credit to asset is negative", entryType: domain.Credit, accountType: domain.Asset, want: "-100"},
		{name: "debit to expense is positive", entryType: domain.Debit, accountType: domain.Expense, want: "100"},
		{name: "credit to liability is positive", entryType: domain.Credit, accountType: domain.Liability, want: "100"},
		{name: "debit to liability is negative", entryType: domain.Debit, accountType: domain.Liability, want: "-100"},
		{name: "credit to revenue is positive", entryType: domain.Credit, accountType: domain.Revenue, want: "100"},
		{name: "debit to equity is negative", entryType: domain.Debit, accountType: domain.Equity, want: "-100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := domain.JournalEntry{AccountID: "acc-1", EntryType: tt.entryType, Amount: amount}
			got, err := accounting.CalculateSignedAmount(entry, tt.accountType)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestCalculateSignedAmount_UnknownType(t *testing.T) {
	entry := domain.JournalEntry{AccountID: "acc-1", EntryType: domain.Debit, Amount: decimal.NewFromInt(1)}
	_, err := accounting.CalculateSignedAmount(entry, domain.AccountType("MYSTERY"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown account type")
}

func TestSumEntrySidesAndIsBalanced(t *testing.T) {
	entries := []domain.JournalEntry{
		{EntryType: domain.Debit, Amount: decimal.RequireFromString("100.00")},
		{EntryType: domain.Credit, Amount: decimal.RequireFromString("60.00")},
		{EntryType: domain.Credit, Amount: decimal.RequireFromString("40.00")},
	}

	debits, credits := accounting.SumEntrySides(entries)
	assert.True(t, debits.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, credits.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, accounting.IsBalanced(debits, credits))
}

func TestIsBalanced_Tolerance(t *testing.T) {
	tests := []struct {
		name    string
		debits  string
		credits string
		want    bool
	}{
		{name: "exactly balanced", debits: "250.00", credits: "250.00", want: true},
		{name: "sub-cent drift is absorbed", debits: "100.004", credits: "100.00", want: true},
		{name: "drift at the epsilon boundary", debits: "100.005", credits: "100.00", want: true},
		{name: "one cent off is rejected", debits: "100.00", credits: "99.99", want: false},
		{name: "grossly unbalanced", debits: "100.00", credits: "10.00", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := accounting.IsBalanced(decimal.RequireFromString(tt.debits), decimal.RequireFromString(tt.credits))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBalanceFromTotals(t *testing.T) {
	debits := decimal.RequireFromString("300.00")
	credits := decimal.RequireFromString("120.00")

	tests := []struct {
		name        string
		accountType domain.AccountType
		want        string
	}{
		{name: "asset balance is debits minus credits", accountType: domain.Asset, want: "180"},
		{name: "expense balance is debits minus credits", accountType: domain.Expense, want: "180"},
		{name: "liability balance is credits minus debits", accountType: domain.Liability, want: "-180"},
		{name: "equity balance is credits minus debits", accountType: domain.Equity, want: "-180"},
		{name: "revenue balance is credits minus debits", accountType: domain.Revenue, want: "-180"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := accounting.BalanceFromTotals(tt.accountType, debits, credits)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

// For any balanced set of postings, summing each account's balance with
// debit-normal accounts positive and credit-normal accounts negative must
// come out to zero.
func TestConventionSignedBalancesSumToZero(t *testing.T) {
	type posting struct {
		account     string
		accountType domain.AccountType
		entryType   domain.EntryType
		amount      string
	}
	postings := []posting{
		{"cash", domain.Asset, domain.Debit, "500.00"},
		{"revenue", domain.Revenue, domain.Credit, "500.00"},
		{"expense", domain.Expense, domain.Debit, "120.00"},
		{"payable", domain.Liability, domain.Credit, "120.00"},
		{"payable", domain.Liability, domain.Debit, "20.00"},
		{"cash", domain.Asset, domain.Credit, "20.00"},
	}

	debitsByAccount := map[string]decimal.Decimal{}
	creditsByAccount := map[string]decimal.Decimal{}
	types := map[string]domain.AccountType{}
	for _, p := range postings {
		types[p.account] = p.accountType
		amt := decimal.RequireFromString(p.amount)
		if p.entryType == domain.Debit {
			debitsByAccount[p.account] = debitsByAccount[p.account].Add(amt)
		} else {
			creditsByAccount[p.account] = creditsByAccount[p.account].Add(amt)
		}
	}

	sum := decimal.Zero
	for account, accountType := range types {
		balance := accounting.BalanceFromTotals(accountType, debitsByAccount[account], creditsByAccount[account])
		if !accountType.IsDebitNormal() {
			balance = balance.Neg()
		}
		sum = sum.Add(balance)
	}
	assert.True(t, sum.IsZero(), "signed balances sum to %s", sum)
}
