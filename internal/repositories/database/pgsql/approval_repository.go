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
)

type PgxApprovalRepository struct {
	BaseRepository
}

// newPgxApprovalRepository creates a new repository for approval request data.
func newPgxApprovalRepository(pool *pgxpool.Pool) portsrepo.ApprovalRepositoryFacade {
	return &PgxApprovalRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxApprovalRepository implements portsrepo.ApprovalRepositoryFacade
var _ portsrepo.ApprovalRepositoryFacade = (*PgxApprovalRepository)(nil)

const approvalSelectColumns = `
	approval_request_id, workspace_id, execution_id, step_id, reason, params,
	status, requested_at, reviewer_id, reviewed_at, decision_reason,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanApprovalRow(row pgx.Row) (*domain.ApprovalRequest, error) {
	var req domain.ApprovalRequest
	var params []byte
	var reviewerID, decisionReason sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(
		&req.ApprovalRequestID,
		&req.WorkspaceID,
		&req.ExecutionID,
		&req.StepID,
		&req.Reason,
		&params,
		&req.Status,
		&req.RequestedAt,
		&reviewerID,
		&reviewedAt,
		&decisionReason,
		&req.CreatedAt,
		&req.CreatedBy,
		&req.LastUpdatedAt,
		&req.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		if err := gojson.Unmarshal(params, &req.Params); err != nil {
			return nil, fmt.Errorf("failed to decode approval params: %w", err)
		}
	}
	if reviewerID.Valid {
		req.ReviewerID = &reviewerID.String
	}
	if reviewedAt.Valid {
		req.ReviewedAt = &reviewedAt.Time
	}
	if decisionReason.Valid {
		req.DecisionReason = &decisionReason.String
	}
	return &req, nil
}

// SaveApprovalRequest persists a new pending approval request.
func (r *PgxApprovalRepository) SaveApprovalRequest(ctx context.Context, request domain.ApprovalRequest) error {
	var params []byte
	if len(request.Params) > 0 {
		encoded, err := gojson.Marshal(request.Params)
		if err != nil {
			return apperrors.NewAppError(500, "failed to encode approval params for "+request.ApprovalRequestID, err)
		}
		params = encoded
	}

	query := `
		INSERT INTO approval_requests (
			approval_request_id, workspace_id, execution_id, step_id, reason, params,
			status, requested_at, reviewer_id, reviewed_at, decision_reason,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	var reviewerID, decisionReason sql.NullString
	var reviewedAt sql.NullTime
	if request.ReviewerID != nil {
		reviewerID = sql.NullString{String: *request.ReviewerID, Valid: true}
	}
	if request.ReviewedAt != nil {
		reviewedAt = sql.NullTime{Time: *request.ReviewedAt, Valid: true}
	}
	if request.DecisionReason != nil {
		decisionReason = sql.NullString{String: *request.DecisionReason, Valid: true}
	}

	_, err := r.Pool.Exec(ctx, query,
		request.ApprovalRequestID,
		request.WorkspaceID,
		request.ExecutionID,
		request.StepID,
		request.Reason,
		params,
		request.Status,
		request.RequestedAt,
		reviewerID,
		reviewedAt,
		decisionReason,
		request.CreatedAt,
		request.CreatedBy,
		request.LastUpdatedAt,
		request.LastUpdatedBy,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return apperrors.NewConflictError("approval request ID " + request.ApprovalRequestID + " already exists")
			}
			if pgErr.Code == "23503" { // foreign_key_violation
				return apperrors.NewValidationFailedError("execution " + request.ExecutionID + " does not exist")
			}
		}
		return apperrors.NewAppError(500, "failed to save approval request "+request.ApprovalRequestID, err)
	}
	return nil
}

// FindApprovalRequestByID retrieves a specific approval request by its unique identifier.
func (r *PgxApprovalRepository) FindApprovalRequestByID(ctx context.Context, approvalRequestID string) (*domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalSelectColumns + ` FROM approval_requests WHERE approval_request_id = $1;`

	req, err := scanApprovalRow(r.Pool.QueryRow(ctx, query, approvalRequestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find approval request by ID "+approvalRequestID, err)
	}
	return req, nil
}

// FindApprovalByExecutionAndStep retrieves the most recent approval request
// raised for a given execution and step.
func (r *PgxApprovalRepository) FindApprovalByExecutionAndStep(ctx context.Context, executionID string, stepID string) (*domain.ApprovalRequest, error) {
	query := `
		SELECT ` + approvalSelectColumns + `
		FROM approval_requests
		WHERE execution_id = $1 AND step_id = $2
		ORDER BY requested_at DESC
		LIMIT 1;
	`

	req, err := scanApprovalRow(r.Pool.QueryRow(ctx, query, executionID, stepID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find approval request for execution "+executionID+" step "+stepID, err)
	}
	return req, nil
}

// ListApprovalsByWorkspace retrieves approval requests for a workspace,
// optionally filtered by status, newest first.
func (r *PgxApprovalRepository) ListApprovalsByWorkspace(ctx context.Context, workspaceID string, status *domain.ApprovalStatus, limit int, offset int) ([]domain.ApprovalRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	baseQuery := `SELECT ` + approvalSelectColumns + ` FROM approval_requests WHERE workspace_id = $1`
	args := []interface{}{workspaceID}

	if status != nil {
		baseQuery += ` AND status = $` + strconv.Itoa(len(args)+1)
		args = append(args, *status)
	}

	query := baseQuery +
		` ORDER BY requested_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2) + `;`
	args = append(args, limit, offset)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query approval requests for workspace "+workspaceID, err)
	}
	defer rows.Close()

	requests := []domain.ApprovalRequest{}
	for rows.Next() {
		var req domain.ApprovalRequest
		var params []byte
		var reviewerID, decisionReason sql.NullString
		var reviewedAt sql.NullTime

		scanErr := rows.Scan(
			&req.ApprovalRequestID,
			&req.WorkspaceID,
			&req.ExecutionID,
			&req.StepID,
			&req.Reason,
			&params,
			&req.Status,
			&req.RequestedAt,
			&reviewerID,
			&reviewedAt,
			&decisionReason,
			&req.CreatedAt,
			&req.CreatedBy,
			&req.LastUpdatedAt,
			&req.LastUpdatedBy,
		)
		if scanErr != nil {
			return nil, apperrors.NewAppError(500, "failed to scan approval request row for workspace "+workspaceID, scanErr)
		}

		if len(params) > 0 {
			if err := gojson.Unmarshal(params, &req.Params); err != nil {
				return nil, apperrors.NewAppError(500, "failed to decode approval params for "+req.ApprovalRequestID, err)
			}
		}
		if reviewerID.Valid {
			req.ReviewerID = &reviewerID.String
		}
		if reviewedAt.Valid {
			req.ReviewedAt = &reviewedAt.Time
		}
		if decisionReason.Valid {
			req.DecisionReason = &decisionReason.String
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating approval request rows for workspace "+workspaceID, err)
	}

	return requests, nil
}

// ResolveApprovalRequest moves a request out of PENDING exactly once. The
// WHERE clause only matches rows still pending, so the second resolver of a
// race sees zero rows affected and gets a conflict back.
func (r *PgxApprovalRepository) ResolveApprovalRequest(ctx context.Context, approvalRequestID string, status domain.ApprovalStatus, reviewerID string, decisionReason *string, now time.Time) error {
	query := `
		UPDATE approval_requests
		SET status = $1, reviewer_id = $2, reviewed_at = $3, decision_reason = $4,
			last_updated_at = $3, last_updated_by = $2
		WHERE approval_request_id = $5 AND status = $6;
	`

	var reason sql.NullString
	if decisionReason != nil {
		reason = sql.NullString{String: *decisionReason, Valid: true}
	}

	result, err := r.Pool.Exec(ctx, query, status, reviewerID, now, reason, approvalRequestID, domain.ApprovalPending)
	if err != nil {
		return apperrors.NewAppError(500, "failed to resolve approval request "+approvalRequestID, err)
	}

	if result.RowsAffected() == 0 {
		// Either the request does not exist or it was already resolved.
		_, findErr := r.FindApprovalRequestByID(ctx, approvalRequestID)
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return apperrors.ErrNotFound
		} else if findErr != nil {
			return apperrors.NewAppError(500, "failed to check approval request after resolve attempt for "+approvalRequestID, findErr)
		}
		return apperrors.NewConflictError("approval request " + approvalRequestID + " is already resolved")
	}

	return nil
}
