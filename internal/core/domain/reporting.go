package domain

import (
	"github.com/shopspring/decimal"
)

// TrialBalanceRow represents a single account row in a trial balance report.
// Balance is signed by the account type's convention (debit-normal accounts
// report debits minus credits, credit-normal the reverse).
type TrialBalanceRow struct {
	AccountID   string          `json:"accountID"`
	AccountName string          `json:"accountName"`
	AccountType AccountType     `json:"accountType"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// TrialBalanceReport aggregates per-account activity across a workspace. For
// any set of balanced transactions TotalDebit equals TotalCredit.
type TrialBalanceReport struct {
	Rows []TrialBalanceRow `json:"rows"`
	// Balances maps account name to its convention-signed balance.
	Balances    map[string]decimal.Decimal `json:"balances"`
	TotalDebit  decimal.Decimal            `json:"totalDebit"`
	TotalCredit decimal.Decimal            `json:"totalCredit"`
}
