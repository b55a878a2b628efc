package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsarc/paperflow/internal/apperrors"
	"github.com/opsarc/paperflow/internal/core/domain"
	portsrepo "github.com/opsarc/paperflow/internal/core/ports/repositories"
	"github.com/opsarc/paperflow/internal/utils/pagination"
)

type PgxExecutionRepository struct {
	BaseRepository
}

// newPgxExecutionRepository creates a new repository for workflow execution data.
func newPgxExecutionRepository(pool *pgxpool.Pool) portsrepo.ExecutionRepositoryFacade {
	return &PgxExecutionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxExecutionRepository implements portsrepo.ExecutionRepositoryFacade
var _ portsrepo.ExecutionRepositoryFacade = (*PgxExecutionRepository)(nil)

// executionRecord is the row shape of workflow_executions. The context maps
// are stored as JSONB blobs and decoded on the way out.
type executionRecord struct {
	ExecutionID   string
	WorkspaceID   string
	DefinitionID  string
	Status        string
	CurrentStepID sql.NullString
	Input         []byte
	StepOutputs   []byte
	StepParams    []byte
	Error         sql.NullString
	Version       int64
	CreatedAt     time.Time
	CreatedBy     string
	LastUpdatedAt time.Time
	LastUpdatedBy string
}

func toExecutionRecord(d domain.WorkflowExecution) (executionRecord, error) {
	rec := executionRecord{
		ExecutionID:   d.ExecutionID,
		WorkspaceID:   d.WorkspaceID,
		DefinitionID:  d.DefinitionID,
		Status:        string(d.Status),
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
		CreatedBy:     d.CreatedBy,
		LastUpdatedAt: d.LastUpdatedAt,
		LastUpdatedBy: d.LastUpdatedBy,
	}
	if d.CurrentStepID != nil {
		rec.CurrentStepID = sql.NullString{String: *d.CurrentStepID, Valid: true}
	}
	if d.Error != nil {
		rec.Error = sql.NullString{String: *d.Error, Valid: true}
	}

	var err error
	if len(d.Input) > 0 {
		rec.Input, err = gojson.Marshal(d.Input)
		if err != nil {
			return executionRecord{}, fmt.Errorf("failed to encode execution input: %w", err)
		}
	}
	if len(d.StepOutputs) > 0 {
		rec.StepOutputs, err = gojson.Marshal(d.StepOutputs)
		if err != nil {
			return executionRecord{}, fmt.Errorf("failed to encode execution step outputs: %w", err)
		}
	}
	if len(d.StepParams) > 0 {
		rec.StepParams, err = gojson.Marshal(d.StepParams)
		if err != nil {
			return executionRecord{}, fmt.Errorf("failed to encode execution step params: %w", err)
		}
	}
	return rec, nil
}

func (rec executionRecord) toDomain() (domain.WorkflowExecution, error) {
	d := domain.WorkflowExecution{
		ExecutionID:  rec.ExecutionID,
		WorkspaceID:  rec.WorkspaceID,
		DefinitionID: rec.DefinitionID,
		Status:       domain.ExecutionStatus(rec.Status),
		Version:      rec.Version,
		AuditFields: domain.AuditFields{
			CreatedAt:     rec.CreatedAt,
			CreatedBy:     rec.CreatedBy,
			LastUpdatedAt: rec.LastUpdatedAt,
			LastUpdatedBy: rec.LastUpdatedBy,
		},
	}
	if rec.CurrentStepID.Valid {
		stepID := rec.CurrentStepID.String
		d.CurrentStepID = &stepID
	}
	if rec.Error.Valid {
		execErr := rec.Error.String
		d.Error = &execErr
	}

	if len(rec.Input) > 0 {
		if err := gojson.Unmarshal(rec.Input, &d.Input); err != nil {
			return domain.WorkflowExecution{}, fmt.Errorf("failed to decode execution input: %w", err)
		}
	}
	if len(rec.StepOutputs) > 0 {
		if err := gojson.Unmarshal(rec.StepOutputs, &d.StepOutputs); err != nil {
			return domain.WorkflowExecution{}, fmt.Errorf("failed to decode execution step outputs: %w", err)
		}
	}
	if len(rec.StepParams) > 0 {
		if err := gojson.Unmarshal(rec.StepParams, &d.StepParams); err != nil {
			return domain.WorkflowExecution{}, fmt.Errorf("failed to decode execution step params: %w", err)
		}
	}
	return d, nil
}

const executionSelectColumns = `
	execution_id, workspace_id, definition_id, status, current_step_id,
	input, step_outputs, step_params, error, version,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanExecutionRow(row pgx.Row) (executionRecord, error) {
	var rec executionRecord
	err := row.Scan(
		&rec.ExecutionID,
		&rec.WorkspaceID,
		&rec.DefinitionID,
		&rec.Status,
		&rec.CurrentStepID,
		&rec.Input,
		&rec.StepOutputs,
		&rec.StepParams,
		&rec.Error,
		&rec.Version,
		&rec.CreatedAt,
		&rec.CreatedBy,
		&rec.LastUpdatedAt,
		&rec.LastUpdatedBy,
	)
	return rec, err
}

// SaveExecution persists a new execution with its initial context.
func (r *PgxExecutionRepository) SaveExecution(ctx context.Context, execution domain.WorkflowExecution) error {
	rec, err := toExecutionRecord(execution)
	if err != nil {
		return apperrors.NewAppError(500, "failed to map execution "+execution.ExecutionID, err)
	}

	query := `
		INSERT INTO workflow_executions (
			execution_id, workspace_id, definition_id, status, current_step_id,
			input, step_outputs, step_params, error, version,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err = r.Pool.Exec(ctx, query,
		rec.ExecutionID,
		rec.WorkspaceID,
		rec.DefinitionID,
		rec.Status,
		rec.CurrentStepID,
		rec.Input,
		rec.StepOutputs,
		rec.StepParams,
		rec.Error,
		1,
		rec.CreatedAt,
		rec.CreatedBy,
		rec.LastUpdatedAt,
		rec.LastUpdatedBy,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return apperrors.NewConflictError("execution ID " + rec.ExecutionID + " already exists")
			}
			if pgErr.Code == "23503" { // foreign_key_violation on workspace_id
				return apperrors.NewValidationFailedError("workspace " + rec.WorkspaceID + " does not exist")
			}
		}
		return apperrors.NewAppError(500, "failed to save execution "+rec.ExecutionID, err)
	}
	return nil
}

// UpdateExecution checkpoints the execution state. The row is only written
// when its stored version still equals expectedVersion; a concurrent writer
// that got there first leaves RowsAffected at zero and the caller sees a
// conflict instead of a silently clobbered checkpoint.
func (r *PgxExecutionRepository) UpdateExecution(ctx context.Context, execution domain.WorkflowExecution, expectedVersion int64) error {
	rec, err := toExecutionRecord(execution)
	if err != nil {
		return apperrors.NewAppError(500, "failed to map execution "+execution.ExecutionID, err)
	}

	query := `
		UPDATE workflow_executions
		SET status = $1, current_step_id = $2, step_outputs = $3, step_params = $4, error = $5,
			last_updated_at = $6, last_updated_by = $7, version = version + 1
		WHERE execution_id = $8 AND version = $9;
	`
	result, err := r.Pool.Exec(ctx, query,
		rec.Status,
		rec.CurrentStepID,
		rec.StepOutputs,
		rec.StepParams,
		rec.Error,
		rec.LastUpdatedAt,
		rec.LastUpdatedBy,
		rec.ExecutionID,
		expectedVersion,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update execution "+rec.ExecutionID, err)
	}

	// Check if any rows were affected
	rowsAffected := result.RowsAffected()
	if rowsAffected == 0 {
		return apperrors.NewConflictError("optimistic locking failed: execution " + rec.ExecutionID)
	}

	return nil
}

// FindExecutionByID retrieves a specific execution by its unique identifier.
func (r *PgxExecutionRepository) FindExecutionByID(ctx context.Context, executionID string) (*domain.WorkflowExecution, error) {
	query := `SELECT ` + executionSelectColumns + ` FROM workflow_executions WHERE execution_id = $1;`

	rec, err := scanExecutionRow(r.Pool.QueryRow(ctx, query, executionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find execution by ID "+executionID, err)
	}

	execution, err := rec.toDomain()
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to map execution "+executionID, err)
	}
	return &execution, nil
}

// ListExecutionsByWorkspace retrieves a paginated list of executions for a workspace using token-based pagination.
// Results are ordered newest first.
func (r *PgxExecutionRepository) ListExecutionsByWorkspace(ctx context.Context, workspaceID string, limit int, nextToken *string) ([]domain.WorkflowExecution, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + executionSelectColumns + ` FROM workflow_executions WHERE workspace_id = $1`
	orderByClause := `ORDER BY created_at DESC`

	var rows pgx.Rows
	var err error
	args := []interface{}{workspaceID}

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, decodeErr := pagination.DecodeDateBasedToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}

		cursorClause := `AND created_at < $2`
		args = append(args, lastCreatedAt)

		query := baseQuery + " " + cursorClause + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	} else {
		query := baseQuery + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	}

	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query executions for workspace "+workspaceID, err)
	}
	defer rows.Close()

	records := make([]executionRecord, 0, fetchLimit)
	for rows.Next() {
		var rec executionRecord
		scanErr := rows.Scan(
			&rec.ExecutionID,
			&rec.WorkspaceID,
			&rec.DefinitionID,
			&rec.Status,
			&rec.CurrentStepID,
			&rec.Input,
			&rec.StepOutputs,
			&rec.StepParams,
			&rec.Error,
			&rec.Version,
			&rec.CreatedAt,
			&rec.CreatedBy,
			&rec.LastUpdatedAt,
			&rec.LastUpdatedBy,
		)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan execution row for workspace "+workspaceID, scanErr)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating execution rows for workspace "+workspaceID, err)
	}

	var nextTokenVal *string
	results := records
	if len(records) > limit {
		lastRec := records[limit-1]
		newToken := pagination.EncodeDateBasedToken(lastRec.CreatedAt)
		nextTokenVal = &newToken
		results = records[:limit]
	}

	executions := make([]domain.WorkflowExecution, len(results))
	for i, rec := range results {
		execution, mapErr := rec.toDomain()
		if mapErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to map execution "+rec.ExecutionID, mapErr)
		}
		executions[i] = execution
	}

	return executions, nextTokenVal, nil
}
