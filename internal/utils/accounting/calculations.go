package accounting

import (
	"fmt"

	"github.com/opsarc/paperflow/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceEpsilon is the largest debit/credit discrepancy a transaction may
// carry and still count as balanced. It absorbs sub-cent rounding introduced
// by upstream document extraction; a full cent of drift is rejected.
var BalanceEpsilon = decimal.RequireFromString("0.005")

// CalculateSignedAmount applies the correct sign to a journal entry amount based on account type and entry type.
// This is used in both services and repositories to ensure consistent accounting logic.
func CalculateSignedAmount(entry domain.JournalEntry, accountType domain.AccountType) (decimal.Decimal, error) {
	signedAmount := entry.Amount
	isDebit := entry.EntryType == domain.Debit

	// Determine sign based on accounting convention
	// DEBIT to ASSET/EXPENSE -> Positive (+)
	// CREDIT to ASSET/EXPENSE -> Negative (-)
	// DEBIT to LIABILITY/EQUITY/REVENUE -> Negative (-)
	// CREDIT to LIABILITY/EQUITY/REVENUE -> Positive (+)
	switch accountType {
	case domain.Asset, domain.Expense:
		if !isDebit { // Credit to Asset/Expense
			signedAmount = signedAmount.Neg()
		}
	case domain.Liability, domain.Equity, domain.Revenue:
		if isDebit { // Debit to Liability/Equity/Revenue
			signedAmount = signedAmount.Neg()
		}
	default:
		return decimal.Zero, fmt.Errorf("unknown account type '%s' encountered for account ID %s", accountType, entry.AccountID)
	}
	return signedAmount, nil
}

// SumEntrySides totals the debit and credit sides of a set of journal entries.
func SumEntrySides(entries []domain.JournalEntry) (debits decimal.Decimal, credits decimal.Decimal) {
	debits = decimal.Zero
	credits = decimal.Zero
	for _, entry := range entries {
		if entry.EntryType == domain.Debit {
			debits = debits.Add(entry.Amount)
		} else {
			credits = credits.Add(entry.Amount)
		}
	}
	return debits, credits
}

// IsBalanced reports whether the debit and credit sides agree within
// BalanceEpsilon.
func IsBalanced(debits, credits decimal.Decimal) bool {
	return debits.Sub(credits).Abs().LessThanOrEqual(BalanceEpsilon)
}

// BalanceFromTotals derives an account balance from its summed debit and
// credit activity. Debit-normal accounts (asset, expense) report debits minus
// credits; credit-normal accounts report credits minus debits.
func BalanceFromTotals(accountType domain.AccountType, debits, credits decimal.Decimal) decimal.Decimal {
	if accountType.IsDebitNormal() {
		return debits.Sub(credits)
	}
	return credits.Sub(debits)
}
