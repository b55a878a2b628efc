package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/opsarc/paperflow/internal/apperrors"
	"github.com/opsarc/paperflow/internal/core/domain"
	portsrepo "github.com/opsarc/paperflow/internal/core/ports/repositories"
	"github.com/opsarc/paperflow/internal/models"
	"github.com/opsarc/paperflow/internal/utils/mapping"
	"github.com/opsarc/paperflow/internal/utils/pagination"
)

type PgxLedgerRepository struct {
	BaseRepository
}

// newPgxLedgerRepository creates a new repository for transaction and journal entry data.
func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryWithTx {
	return &PgxLedgerRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxLedgerRepository implements portsrepo.LedgerRepositoryWithTx
var _ portsrepo.LedgerRepositoryWithTx = (*PgxLedgerRepository)(nil)

const transactionSelectColumns = `
	transaction_id, workspace_id, transaction_date, description, source,
	external_id, status, metadata,
	created_at, created_by, last_updated_at, last_updated_by
`

// SaveTransaction persists the transaction header and its journal entries
// within a single DB transaction, so a failed entry insert never leaves a
// dangling header.
func (r *PgxLedgerRepository) SaveTransaction(ctx context.Context, txn domain.Transaction, entries []domain.JournalEntry) error {
	modelTxn, err := mapping.ToModelTransaction(txn)
	if err != nil {
		return apperrors.NewAppError(500, "failed to map transaction "+txn.TransactionID, err)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	defer r.Rollback(ctx, tx) // Will be ignored if transaction is committed successfully

	headerQuery := `
		INSERT INTO transactions (
			transaction_id, workspace_id, transaction_date, description, source,
			external_id, status, metadata,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = tx.Exec(ctx, headerQuery,
		modelTxn.TransactionID,
		modelTxn.WorkspaceID,
		modelTxn.TransactionDate,
		modelTxn.Description,
		modelTxn.Source,
		modelTxn.ExternalID,
		modelTxn.Status,
		modelTxn.Metadata,
		modelTxn.CreatedAt,
		modelTxn.CreatedBy,
		modelTxn.LastUpdatedAt,
		modelTxn.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// The workspace-scoped external_id unique index is the arbiter
			// for idempotent replays; callers re-read the existing row.
			return apperrors.NewConflictError("transaction with this external id already exists in workspace " + modelTxn.WorkspaceID)
		}
		return apperrors.NewAppError(500, "failed to insert transaction "+modelTxn.TransactionID, err)
	}

	batch := &pgx.Batch{}
	entryQuery := `
		INSERT INTO journal_entries (entry_id, transaction_id, account_id, entry_type, amount, description, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	for _, entry := range entries {
		modelEntry := mapping.ToModelJournalEntry(entry)
		batch.Queue(entryQuery,
			modelEntry.EntryID,
			modelEntry.TransactionID,
			modelEntry.AccountID,
			modelEntry.EntryType,
			modelEntry.Amount,
			modelEntry.Description,
			modelEntry.CreatedAt,
			modelEntry.CreatedBy,
			modelEntry.LastUpdatedAt,
			modelEntry.LastUpdatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	err = br.Close() // Close the batch results to surface errors from each command
	if err != nil {
		return apperrors.NewAppError(500, "failed to execute entry batch for transaction "+modelTxn.TransactionID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return apperrors.NewAppError(500, "failed to commit transaction "+modelTxn.TransactionID, err)
	}

	return nil
}

// FindTransactionByID retrieves a transaction header by its ID.
func (r *PgxLedgerRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionSelectColumns + ` FROM transactions WHERE transaction_id = $1;`

	modelTxn, err := r.scanTransactionRow(r.Pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find transaction by ID "+transactionID, err)
	}

	domainTxn, err := mapping.ToDomainTransaction(*modelTxn)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to map transaction "+transactionID, err)
	}
	return &domainTxn, nil
}

// FindTransactionByExternalID retrieves a transaction by its idempotency key
// within a workspace.
func (r *PgxLedgerRepository) FindTransactionByExternalID(ctx context.Context, workspaceID string, externalID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionSelectColumns + ` FROM transactions WHERE workspace_id = $1 AND external_id = $2;`

	modelTxn, err := r.scanTransactionRow(r.Pool.QueryRow(ctx, query, workspaceID, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find transaction by external ID "+externalID, err)
	}

	domainTxn, err := mapping.ToDomainTransaction(*modelTxn)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to map transaction with external ID "+externalID, err)
	}
	return &domainTxn, nil
}

func (r *PgxLedgerRepository) scanTransactionRow(row pgx.Row) (*models.Transaction, error) {
	var m models.Transaction
	var externalID sql.NullString

	err := row.Scan(
		&m.TransactionID,
		&m.WorkspaceID,
		&m.TransactionDate,
		&m.Description,
		&m.Source,
		&externalID,
		&m.Status,
		&m.Metadata,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if externalID.Valid {
		m.ExternalID = &externalID.String
	}
	return &m, nil
}

// ListTransactionsByWorkspace retrieves a paginated list of transactions for a specific workspace using token-based pagination.
// It returns the list of transactions, a token for the next page (if any), and an error.
func (r *PgxLedgerRepository) ListTransactionsByWorkspace(ctx context.Context, workspaceID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + transactionSelectColumns + ` FROM transactions WHERE workspace_id = $1`

	// Ordering must be stable: transaction_date DESC with created_at DESC as
	// the tie-breaker, matching the cursor tuple below.
	orderByClause := `ORDER BY transaction_date DESC, created_at DESC`

	var rows pgx.Rows
	var err error
	args := []interface{}{workspaceID}

	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}

		cursorClause := `AND (transaction_date, created_at) < ($2, $3)`
		args = append(args, lastDate, lastCreatedAt)

		query := baseQuery + " " + cursorClause + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	} else {
		query := baseQuery + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	}

	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query transactions for workspace "+workspaceID, err)
	}
	defer rows.Close()

	modelTxns := make([]models.Transaction, 0, fetchLimit)
	for rows.Next() {
		var m models.Transaction
		var externalID sql.NullString

		scanErr := rows.Scan(
			&m.TransactionID,
			&m.WorkspaceID,
			&m.TransactionDate,
			&m.Description,
			&m.Source,
			&externalID,
			&m.Status,
			&m.Metadata,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan transaction row for workspace "+workspaceID, scanErr)
		}
		if externalID.Valid {
			m.ExternalID = &externalID.String
		}
		modelTxns = append(modelTxns, m)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating transaction rows for workspace "+workspaceID, err)
	}

	var nextTokenVal *string
	results := modelTxns
	if len(modelTxns) > limit {
		// The token points at the last item included in this page; the next
		// query starts strictly after it.
		lastTxn := modelTxns[limit-1]
		newToken := pagination.EncodeToken(lastTxn.TransactionDate, lastTxn.CreatedAt)
		nextTokenVal = &newToken
		results = modelTxns[:limit]
	}

	domainTxns := make([]domain.Transaction, len(results))
	for i, m := range results {
		domainTxn, mapErr := mapping.ToDomainTransaction(m)
		if mapErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to map transaction "+m.TransactionID, mapErr)
		}
		domainTxns[i] = domainTxn
	}

	return domainTxns, nextTokenVal, nil
}

// FindEntriesByTransactionID retrieves all journal entries associated with a specific transaction.
func (r *PgxLedgerRepository) FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.JournalEntry, error) {
	query := `
		SELECT entry_id, transaction_id, account_id, entry_type, amount, description, created_at, created_by, last_updated_at, last_updated_by
		FROM journal_entries
		WHERE transaction_id = $1
		ORDER BY entry_id;
	`
	rows, err := r.Pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query entries for transaction "+transactionID, err)
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		var e models.JournalEntry
		err := rows.Scan(
			&e.EntryID,
			&e.TransactionID,
			&e.AccountID,
			&e.EntryType,
			&e.Amount,
			&e.Description,
			&e.CreatedAt,
			&e.CreatedBy,
			&e.LastUpdatedAt,
			&e.LastUpdatedBy,
		)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan entry row for transaction "+transactionID, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating entry rows for transaction "+transactionID, err)
	}

	return mapping.ToDomainJournalEntrySlice(entries), nil
}

// FindEntriesByTransactionIDs retrieves all entries for a given list of transaction IDs.
// It returns a map where keys are transaction IDs and values are slices of entries.
func (r *PgxLedgerRepository) FindEntriesByTransactionIDs(ctx context.Context, transactionIDs []string) (map[string][]domain.JournalEntry, error) {
	if len(transactionIDs) == 0 {
		return map[string][]domain.JournalEntry{}, nil
	}

	query := `
		SELECT entry_id, transaction_id, account_id, entry_type, amount, description, created_at, created_by, last_updated_at, last_updated_by
		FROM journal_entries
		WHERE transaction_id = ANY($1)
		ORDER BY transaction_id, entry_id;
	`

	rows, err := r.Pool.Query(ctx, query, transactionIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query entries for transaction IDs", err)
	}
	defer rows.Close()

	entriesMap := make(map[string][]domain.JournalEntry)
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(
			&e.EntryID,
			&e.TransactionID,
			&e.AccountID,
			&e.EntryType,
			&e.Amount,
			&e.Description,
			&e.CreatedAt,
			&e.CreatedBy,
			&e.LastUpdatedAt,
			&e.LastUpdatedBy,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan entry row during batch fetch", err)
		}

		domainEntry := mapping.ToDomainJournalEntry(e)
		entriesMap[domainEntry.TransactionID] = append(entriesMap[domainEntry.TransactionID], domainEntry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating entry rows during batch fetch", err)
	}

	// Ensure even transactions with no entries have an entry (empty slice)
	for _, tid := range transactionIDs {
		if _, exists := entriesMap[tid]; !exists {
			entriesMap[tid] = []domain.JournalEntry{}
		}
	}

	return entriesMap, nil
}

// GetAccountActivity sums the debit and credit amounts posted to an account
// up to and including asOf. Balances are derived from this, never stored.
func (r *PgxLedgerRepository) GetAccountActivity(ctx context.Context, workspaceID string, accountID string, asOf time.Time) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN e.entry_type = 'DEBIT' THEN e.amount ELSE 0 END), 0) AS total_debit,
			COALESCE(SUM(CASE WHEN e.entry_type = 'CREDIT' THEN e.amount ELSE 0 END), 0) AS total_credit
		FROM journal_entries e
		JOIN transactions t ON e.transaction_id = t.transaction_id
		WHERE e.account_id = $1
			AND t.workspace_id = $2
			AND t.transaction_date <= $3
			AND t.status = 'POSTED'
	`

	var debits, credits decimal.Decimal
	err := r.Pool.QueryRow(ctx, query, accountID, workspaceID, asOf).Scan(&debits, &credits)
	if err != nil {
		return decimal.Zero, decimal.Zero, apperrors.NewAppError(500, "failed to query activity for account "+accountID, err)
	}

	return debits, credits, nil
}

// GetTrialBalanceRows aggregates per-account debit/credit totals for every
// account in the workspace up to and including asOf. Accounts without any
// postings are included with zero totals so the report covers the whole
// chart of accounts.
func (r *PgxLedgerRepository) GetTrialBalanceRows(ctx context.Context, workspaceID string, asOf time.Time) ([]domain.TrialBalanceRow, error) {
	query := `
		SELECT
			a.account_id,
			a.name AS account_name,
			a.account_type,
			COALESCE(act.total_debit, 0) AS total_debit,
			COALESCE(act.total_credit, 0) AS total_credit
		FROM accounts a
		LEFT JOIN (
			SELECT
				e.account_id,
				SUM(CASE WHEN e.entry_type = 'DEBIT' THEN e.amount ELSE 0 END) AS total_debit,
				SUM(CASE WHEN e.entry_type = 'CREDIT' THEN e.amount ELSE 0 END) AS total_credit
			FROM journal_entries e
			JOIN transactions t ON e.transaction_id = t.transaction_id
			WHERE t.workspace_id = $2
				AND t.status = 'POSTED'
				AND t.transaction_date <= $1
			GROUP BY e.account_id
		) act ON act.account_id = a.account_id
		WHERE a.workspace_id = $2
		ORDER BY a.code
	`

	rows, err := r.Pool.Query(ctx, query, asOf, workspaceID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query trial balance for workspace "+workspaceID, err)
	}
	defer rows.Close()

	var result []domain.TrialBalanceRow
	for rows.Next() {
		var row domain.TrialBalanceRow
		var accountType string

		if err := rows.Scan(
			&row.AccountID,
			&row.AccountName,
			&accountType,
			&row.Debit,
			&row.Credit,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan trial balance row", err)
		}

		row.AccountType = domain.AccountType(accountType)
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating trial balance rows", err)
	}

	if len(result) == 0 {
		// Return empty slice instead of nil
		return []domain.TrialBalanceRow{}, nil
	}

	return result, nil
}
