package services_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/opsarc/paperflow/internal/apperrors"
	"github.com/opsarc/paperflow/internal/core/domain"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/core/services"
)

type ApprovalServiceTestSuite struct {
	suite.Suite
	mockApprovalRepo *MockApprovalRepository
	mockExecRepo     *MockExecutionRepository
	service          portssvc.ApprovalSvcFacade
	workspaceID      string
	approverID       string
}

func (suite *ApprovalServiceTestSuite) SetupTest() {
	suite.mockApprovalRepo = new(MockApprovalRepository)
	suite.mockExecRepo = new(MockExecutionRepository)
	suite.service = services.NewApprovalService(suite.mockApprovalRepo, suite.mockExecRepo, nil)
	suite.workspaceID = uuid.NewString()
	suite.approverID = uuid.NewString()
}

func (suite *ApprovalServiceTestSuite) pendingRequest() *domain.ApprovalRequest {
	return &domain.ApprovalRequest{
		ApprovalRequestID: uuid.NewString(),
		WorkspaceID:       suite.workspaceID,
		ExecutionID:       uuid.NewString(),
		StepID:            "process",
		Reason:            "confidence 0.60 is below threshold 0.90 for step process",
		Status:            domain.ApprovalPending,
	}
}

func (suite *ApprovalServiceTestSuite) waitingExecution(executionID string, version int64) *domain.WorkflowExecution {
	currentStep := "process"
	return &domain.WorkflowExecution{
		ExecutionID:   executionID,
		WorkspaceID:   suite.workspaceID,
		Status:        domain.ExecutionWaitingApproval,
		CurrentStepID: &currentStep,
		Version:       version,
	}
}

// --- RequestIntervention ---

func (suite *ApprovalServiceTestSuite) TestRequestIntervention_Success() {
	ctx := context.Background()
	executionID := uuid.NewString()
	params := map[string]any{"document": map[string]any{"vendorName": "Acme Supplies"}}

	suite.mockApprovalRepo.On("SaveApprovalRequest", ctx, mock.MatchedBy(func(request domain.ApprovalRequest) bool {
		return request.WorkspaceID == suite.workspaceID &&
			request.ExecutionID == executionID &&
			request.StepID == "process" &&
			request.Status == domain.ApprovalPending
	})).Return(nil).Once()

	request, err := suite.service.RequestIntervention(ctx, suite.workspaceID, executionID, "process", "low confidence", params, suite.approverID)

	suite.Require().NoError(err)
	suite.Require().NotNil(request)
	suite.NotEmpty(request.ApprovalRequestID)
	suite.Equal(domain.ApprovalPending, request.Status)
	suite.Equal(params, request.Params)
	suite.mockApprovalRepo.AssertExpectations(suite.T())
}

func (suite *ApprovalServiceTestSuite) TestRequestIntervention_SaveError() {
	ctx := context.Background()
	suite.mockApprovalRepo.On("SaveApprovalRequest", ctx, mock.Anything).Return(assert.AnError).Once()

	request, err := suite.service.RequestIntervention(ctx, suite.workspaceID, uuid.NewString(), "process", "low confidence", nil, suite.approverID)

	suite.Require().ErrorIs(err, assert.AnError)
	suite.Nil(request)
}

// --- Approve ---

func (suite *ApprovalServiceTestSuite) TestApprove_ResolvesWithoutResuming() {
	ctx := context.Background()
	request := suite.pendingRequest()
	execution := suite.waitingExecution(request.ExecutionID, 2)

	suite.mockApprovalRepo.On("FindApprovalRequestByID", ctx, request.ApprovalRequestID).Return(request, nil).Once()
	suite.mockExecRepo.On("FindExecutionByID", ctx, request.ExecutionID).Return(execution, nil).Once()
	suite.mockApprovalRepo.On("ResolveApprovalRequest", ctx, request.ApprovalRequestID,
		domain.ApprovalApproved, suite.approverID, (*string)(nil), mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	resolved, err := suite.service.Approve(ctx, suite.workspaceID, request.ApprovalRequestID, suite.approverID)

	suite.Require().NoError(err)
	suite.Equal(domain.ApprovalApproved, resolved.Status)
	suite.Require().NotNil(resolved.ReviewerID)
	suite.Equal(suite.approverID, *resolved.ReviewerID)
	suite.NotNil(resolved.ReviewedAt)

	// Approval never advances the execution; resuming is a separate call.
	suite.mockExecRepo.AssertNotCalled(suite.T(), "UpdateExecution", mock.Anything, mock.Anything, mock.Anything)
	suite.mockApprovalRepo.AssertExpectations(suite.T())
}

func (suite *ApprovalServiceTestSuite) TestApprove_AlreadyResolved() {
	ctx := context.Background()
	request := suite.pendingRequest()
	request.Status = domain.ApprovalRejected

	suite.mockApprovalRepo.On("FindApprovalRequestByID", ctx, request.ApprovalRequestID).Return(request, nil).Once()

	_, err := suite.service.Approve(ctx, suite.workspaceID, request.ApprovalRequestID, suite.approverID)

	suite.Require().ErrorIs(err, services.ErrApprovalAlreadyResolved)
	suite.mockApprovalRepo.AssertNotCalled(suite.T(), "ResolveApprovalRequest",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ApprovalServiceTestSuite) TestApprove_LostResolutionRace() {
	ctx := context.Background()
	request := suite.pendingRequest()
	execution := suite.waitingExecution(request.ExecutionID, 2)

	suite.mockApprovalRepo.On("FindApprovalRequestByID", ctx, request.ApprovalRequestID).Return(request, nil).Once()
	suite.mockExecRepo.On("FindExecutionByID", ctx, request.ExecutionID).Return(execution, nil).Once()
	// Another reviewer resolved it between our read and this write.
	suite.mockApprovalRepo.On("ResolveApprovalRequest", ctx, request.ApprovalRequestID,
		domain.ApprovalApproved, suite.approverID, (*string)(nil), mock.AnythingOfType("time.Time")).
		Return(apperrors.NewConflictError("approval request is not pending")).Once()

	_, err := suite.service.Approve(ctx, suite.workspaceID, request.ApprovalRequestID, suite.approverID)

	suite.Require().ErrorIs(err, services.ErrApprovalAlreadyResolved)
}

func (suite *ApprovalServiceTestSuite) TestApprove_TerminalExecution() {
	ctx := context.Background()
	request := suite.pendingRequest()
	execution := &domain.WorkflowExecution{
		ExecutionID: request.ExecutionID,
		WorkspaceID: suite.workspaceID,
		Status:      domain.ExecutionCancelled,
	}

	suite.mockApprovalRepo.On("FindApprovalRequestByID", ctx, request.ApprovalRequestID).Return(request, nil).Once()
	suite.mockExecRepo.On("FindExecutionByID", ctx, request.ExecutionID).Return(execution, nil).Once()

	_, err := suite.service.Approve(ctx, suite.workspaceID, request.ApprovalRequestID, suite.approverID)

	suite.Require().ErrorIs(err, services.ErrInvalidState)
	suite.mockApprovalRepo.AssertNotCalled(suite.T(), "ResolveApprovalRequest",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ApprovalServiceTestSuite) TestApprove_WrongWorkspaceObscured() {
	ctx := context.Background()
	request := suite.pendingRequest()
	request.WorkspaceID = uuid.NewString() // different workspace

	suite.mockApprovalRepo.On("FindApprovalRequestByID", ctx, request.ApprovalRequestID).Return(request, nil).Once()

	_, err := suite.service.Approve(ctx, suite.workspaceID, request.ApprovalRequestID, suite.approverID)

	suite.Require().ErrorIs(err, apperrors.ErrNotFound)
}

// --- Reject ---

func (suite *ApprovalServiceTestSuite) TestReject_FailsPausedExecution() {
	ctx := context.Background()
	request := suite.pendingRequest()
	execution := suite.waitingExecution(request.ExecutionID, 5)
	reason := "vendor name does not match the purchase order"

	suite.mockApprovalRepo.On("FindApprovalRequestByID", ctx, request.ApprovalRequestID).Return(request, nil).Once()
	suite.mockExecRepo.On("FindExecutionByID", ctx, request.ExecutionID).Return(execution, nil).Once()
	suite.mockApprovalRepo.On("ResolveApprovalRequest", ctx, request.ApprovalRequestID,
		domain.ApprovalRejected, suite.approverID, &reason, mock.AnythingOfType("time.Time")).
		Return(nil).Once()
	suite.mockExecRepo.On("UpdateExecution", ctx, mock.MatchedBy(func(updated domain.WorkflowExecution) bool {
		return updated.Status == domain.ExecutionFailed &&
			updated.Error != nil &&
			strings.Contains(*updated.Error, fmt.Sprintf("step process rejected by %s", suite.approverID)) &&
			strings.Contains(*updated.Error, reason)
	}), int64(5)).Return(nil).Once()

	resolved, err := suite.service.Reject(ctx, suite.workspaceID, request.ApprovalRequestID, suite.approverID, reason)

	suite.Require().NoError(err)
	suite.Equal(domain.ApprovalRejected, resolved.Status)
	suite.Require().NotNil(resolved.DecisionReason)
	suite.Equal(reason, *resolved.DecisionReason)
	suite.mockExecRepo.AssertExpectations(suite.T())
	suite.mockApprovalRepo.AssertExpectations(suite.T())
}

func (suite *ApprovalServiceTestSuite) TestReject_EmptyReason() {
	ctx := context.Background()

	_, err := suite.service.Reject(ctx, suite.workspaceID, uuid.NewString(), suite.approverID, "")

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
	suite.mockApprovalRepo.AssertNotCalled(suite.T(), "FindApprovalRequestByID", mock.Anything, mock.Anything)
}

func (suite *ApprovalServiceTestSuite) TestReject_AlreadyResolved() {
	ctx := context.Background()
	request := suite.pendingRequest()
	request.Status = domain.ApprovalApproved

	suite.mockApprovalRepo.On("FindApprovalRequestByID", ctx, request.ApprovalRequestID).Return(request, nil).Once()

	_, err := suite.service.Reject(ctx, suite.workspaceID, request.ApprovalRequestID, suite.approverID, "too risky")

	suite.Require().ErrorIs(err, services.ErrApprovalAlreadyResolved)
}

func (suite *ApprovalServiceTestSuite) TestReject_RetriesAfterConcurrentVersionBump() {
	ctx := context.Background()
	request := suite.pendingRequest()
	execution := suite.waitingExecution(request.ExecutionID, 5)
	reloaded := suite.waitingExecution(request.ExecutionID, 6)
	reason := "amount looks wrong"

	suite.mockApprovalRepo.On("FindApprovalRequestByID", ctx, request.ApprovalRequestID).Return(request, nil).Once()
	suite.mockExecRepo.On("FindExecutionByID", ctx, request.ExecutionID).Return(execution, nil).Once()
	suite.mockApprovalRepo.On("ResolveApprovalRequest", ctx, request.ApprovalRequestID,
		domain.ApprovalRejected, suite.approverID, &reason, mock.AnythingOfType("time.Time")).
		Return(nil).Once()
	// First failure write loses the version check; the reload still shows a
	// waiting execution, so the second attempt lands.
	suite.mockExecRepo.On("UpdateExecution", ctx, mock.Anything, int64(5)).
		Return(apperrors.NewConflictError("execution version mismatch")).Once()
	suite.mockExecRepo.On("FindExecutionByID", ctx, request.ExecutionID).Return(reloaded, nil).Once()
	suite.mockExecRepo.On("UpdateExecution", ctx, mock.Anything, int64(6)).Return(nil).Once()

	resolved, err := suite.service.Reject(ctx, suite.workspaceID, request.ApprovalRequestID, suite.approverID, reason)

	suite.Require().NoError(err)
	suite.Equal(domain.ApprovalRejected, resolved.Status)
	suite.mockExecRepo.AssertExpectations(suite.T())
}

func (suite *ApprovalServiceTestSuite) TestReject_SkipsExecutionThatAlreadyMovedOn() {
	ctx := context.Background()
	request := suite.pendingRequest()
	execution := suite.waitingExecution(request.ExecutionID, 5)
	cancelled := &domain.WorkflowExecution{
		ExecutionID: request.ExecutionID,
		WorkspaceID: suite.workspaceID,
		Status:      domain.ExecutionCancelled,
		Version:     6,
	}
	reason := "duplicate invoice"

	suite.mockApprovalRepo.On("FindApprovalRequestByID", ctx, request.ApprovalRequestID).Return(request, nil).Once()
	suite.mockExecRepo.On("FindExecutionByID", ctx, request.ExecutionID).Return(execution, nil).Once()
	suite.mockApprovalRepo.On("ResolveApprovalRequest", ctx, request.ApprovalRequestID,
		domain.ApprovalRejected, suite.approverID, &reason, mock.AnythingOfType("time.Time")).
		Return(nil).Once()
	// The reload finds the execution cancelled, so no failure transition is forced.
	suite.mockExecRepo.On("UpdateExecution", ctx, mock.Anything, int64(5)).
		Return(apperrors.NewConflictError("execution version mismatch")).Once()
	suite.mockExecRepo.On("FindExecutionByID", ctx, request.ExecutionID).Return(cancelled, nil).Once()

	resolved, err := suite.service.Reject(ctx, suite.workspaceID, request.ApprovalRequestID, suite.approverID, reason)

	suite.Require().NoError(err)
	suite.Equal(domain.ApprovalRejected, resolved.Status)
	suite.mockExecRepo.AssertNotCalled(suite.T(), "UpdateExecution", mock.Anything, mock.Anything, int64(6))
}

func (suite *ApprovalServiceTestSuite) TestReject_TerminalExecution() {
	ctx := context.Background()
	request := suite.pendingRequest()
	execution := &domain.WorkflowExecution{
		ExecutionID: request.ExecutionID,
		WorkspaceID: suite.workspaceID,
		Status:      domain.ExecutionFailed,
	}

	suite.mockApprovalRepo.On("FindApprovalRequestByID", ctx, request.ApprovalRequestID).Return(request, nil).Once()
	suite.mockExecRepo.On("FindExecutionByID", ctx, request.ExecutionID).Return(execution, nil).Once()

	_, err := suite.service.Reject(ctx, suite.workspaceID, request.ApprovalRequestID, suite.approverID, "stale")

	suite.Require().ErrorIs(err, services.ErrInvalidState)
	suite.mockApprovalRepo.AssertNotCalled(suite.T(), "ResolveApprovalRequest",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Reads ---

func (suite *ApprovalServiceTestSuite) TestGetApprovalRequestByID_WrongWorkspaceObscured() {
	ctx := context.Background()
	request := suite.pendingRequest()
	request.WorkspaceID = uuid.NewString()

	suite.mockApprovalRepo.On("FindApprovalRequestByID", ctx, request.ApprovalRequestID).Return(request, nil).Once()

	got, err := suite.service.GetApprovalRequestByID(ctx, suite.workspaceID, request.ApprovalRequestID)

	suite.Require().ErrorIs(err, apperrors.ErrNotFound)
	suite.Nil(got)
}

func (suite *ApprovalServiceTestSuite) TestListApprovals_FiltersByStatus() {
	ctx := context.Background()
	status := domain.ApprovalPending
	requests := []domain.ApprovalRequest{*suite.pendingRequest()}

	suite.mockApprovalRepo.On("ListApprovalsByWorkspace", ctx, suite.workspaceID, &status, 10, 0).
		Return(requests, nil).Once()

	got, err := suite.service.ListApprovals(ctx, suite.workspaceID, &status, 10, 0)

	suite.Require().NoError(err)
	suite.Len(got, 1)
}

func (suite *ApprovalServiceTestSuite) TestListApprovals_NilPageBecomesEmpty() {
	ctx := context.Background()
	suite.mockApprovalRepo.On("ListApprovalsByWorkspace", ctx, suite.workspaceID, (*domain.ApprovalStatus)(nil), 10, 0).
		Return(nil, nil).Once()

	got, err := suite.service.ListApprovals(ctx, suite.workspaceID, nil, 10, 0)

	suite.Require().NoError(err)
	suite.NotNil(got)
	suite.Empty(got)
}

func TestApprovalServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ApprovalServiceTestSuite))
}
