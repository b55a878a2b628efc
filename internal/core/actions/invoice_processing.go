package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opsarc/paperflow/internal/core/domain"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/dto"
)

// Chart-of-accounts codes the invoice posting books against when the step
// parameters do not override them.
const (
	defaultExpenseAccountCode = "5000"
	defaultPayableAccountCode = "2000"
)

// invoiceProcessingAction extracts structured fields from an invoice document
// and, once the result has cleared its confidence gate, posts the invoice to
// the ledger as an expense against accounts payable.
type invoiceProcessingAction struct {
	extractor portssvc.DocumentExtractorSvc
	ledger    portssvc.LedgerWriterSvc
	accounts  portssvc.AccountReaderSvc
}

var _ Action = (*invoiceProcessingAction)(nil)
var _ Committer = (*invoiceProcessingAction)(nil)

// Execute runs the extraction only. Nothing is posted here, so pausing the
// execution on a low-confidence result leaves the ledger untouched.
func (a *invoiceProcessingAction) Execute(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	document, _ := req.Params["document"].(map[string]any)
	if document == nil {
		// No nested document, treat the merged params themselves as the payload.
		document = req.Params
	}

	extraction, err := a.extractor.ExtractInvoice(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("invoice extraction failed: %w", err)
	}

	output := map[string]any{
		"vendorName":    extraction.VendorName,
		"invoiceNumber": extraction.InvoiceNumber,
		"amount":        extraction.Amount.String(),
		"confidence":    extraction.Confidence,
	}
	if extraction.IssueDate != nil {
		output["issueDate"] = extraction.IssueDate.UTC().Format(time.RFC3339)
	}
	if len(extraction.Fields) > 0 {
		output["fields"] = extraction.Fields
	}
	return &ActionResult{Output: output, Confidence: extraction.Confidence}, nil
}

// Commit books the extracted invoice: a debit against the expense account and
// a matching credit against accounts payable. The posting's external id is
// derived from the execution and step, so replaying the step after a crash or
// an approval resume lands on the already recorded row instead of a duplicate.
func (a *invoiceProcessingAction) Commit(ctx context.Context, req ActionRequest, result *ActionResult) (map[string]any, error) {
	rawAmount, _ := result.Output["amount"].(string)
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("extracted invoice amount %q is not a number: %w", rawAmount, err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("extracted invoice amount %s must be positive", amount)
	}

	expenseCode := stringParam(req.Params, "expenseAccountCode", defaultExpenseAccountCode)
	payableCode := stringParam(req.Params, "payableAccountCode", defaultPayableAccountCode)
	expenseAccount, err := a.accounts.GetAccountByCode(ctx, req.WorkspaceID, expenseCode)
	if err != nil {
		return nil, fmt.Errorf("resolving expense account %s: %w", expenseCode, err)
	}
	payableAccount, err := a.accounts.GetAccountByCode(ctx, req.WorkspaceID, payableCode)
	if err != nil {
		return nil, fmt.Errorf("resolving payable account %s: %w", payableCode, err)
	}

	vendorName, _ := result.Output["vendorName"].(string)
	invoiceNumber, _ := result.Output["invoiceNumber"].(string)
	description := "Invoice " + invoiceNumber
	if vendorName != "" {
		description += " from " + vendorName
	}

	date := time.Now().UTC()
	if issued, ok := result.Output["issueDate"].(string); ok {
		if parsed, parseErr := time.Parse(time.RFC3339, issued); parseErr == nil {
			date = parsed
		}
	}

	externalID := PostingExternalID(req.ExecutionID, req.StepID)
	txn, err := a.ledger.RecordTransaction(ctx, req.WorkspaceID, dto.RecordTransactionRequest{
		Date:        date,
		Description: description,
		Source:      "workflow:" + req.ExecutionID,
		ExternalID:  &externalID,
		Metadata: map[string]any{
			"executionID":   req.ExecutionID,
			"stepID":        req.StepID,
			"vendorName":    vendorName,
			"invoiceNumber": invoiceNumber,
		},
		Entries: []dto.RecordEntryRequest{
			{AccountID: expenseAccount.AccountID, EntryType: domain.Debit, Amount: amount, Description: description},
			{AccountID: payableAccount.AccountID, EntryType: domain.Credit, Amount: amount, Description: description},
		},
	}, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("posting invoice to ledger: %w", err)
	}

	return map[string]any{"transactionID": txn.TransactionID}, nil
}

// PostingExternalID derives the idempotency key a workflow step uses for its
// ledger posting.
func PostingExternalID(executionID, stepID string) string {
	return "wf:" + executionID + ":" + stepID
}

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
