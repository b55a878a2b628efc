package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opsarc/paperflow/internal/apperrors"
	"github.com/opsarc/paperflow/internal/core/domain"
	"github.com/opsarc/paperflow/internal/core/services"
	"github.com/opsarc/paperflow/internal/dto"
	"github.com/opsarc/paperflow/internal/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type WorkflowHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mocks       *handlerMocks
	workspaceID string
}

func (suite *WorkflowHandlerTestSuite) SetupTest() {
	suite.router, suite.mocks = newHandlerTestRouter()
	suite.workspaceID = uuid.NewString()
}

func (suite *WorkflowHandlerTestSuite) newExecution(status domain.ExecutionStatus, currentStepID *string) *domain.WorkflowExecution {
	return &domain.WorkflowExecution{
		ExecutionID:   uuid.NewString(),
		WorkspaceID:   suite.workspaceID,
		DefinitionID:  "invoice-approval",
		Status:        status,
		CurrentStepID: currentStepID,
		Version:       2,
	}
}

func (suite *WorkflowHandlerTestSuite) TestExecuteWorkflow_Success() {
	actorID := "ops-lead"
	completed := suite.newExecution(domain.ExecutionCompleted, nil)
	completed.StepOutputs = map[string]map[string]any{
		"process": {"transactionID": uuid.NewString()},
	}

	suite.mocks.workflow.On("ExecuteWorkflow",
		mock.Anything,
		suite.workspaceID,
		"invoice-approval",
		map[string]any{"documentText": "Invoice INV-042 Total: 125.00"},
		actorID,
	).Return(completed, nil).Once()

	body := `{"input":{"documentText":"Invoice INV-042 Total: 125.00"}}`
	req, _ := http.NewRequest(http.MethodPost, fmtWorkspacePath(suite.workspaceID, "/workflows/invoice-approval/executions"), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, actorID)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusCreated, w.Code)

	var resp dto.ExecutionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(completed.ExecutionID, resp.ExecutionID)
	suite.Equal(domain.ExecutionCompleted, resp.Status)
	suite.Nil(resp.CurrentStepID)
	suite.Contains(resp.StepOutputs, "process")

	suite.mocks.workflow.AssertExpectations(suite.T())
}

func (suite *WorkflowHandlerTestSuite) TestExecuteWorkflow_PausesForApproval() {
	stepID := "process"
	waiting := suite.newExecution(domain.ExecutionWaitingApproval, &stepID)

	suite.mocks.workflow.On("ExecuteWorkflow",
		mock.Anything,
		suite.workspaceID,
		"invoice-approval",
		mock.Anything,
		middleware.DefaultActorID,
	).Return(waiting, nil).Once()

	body := `{"input":{"documentText":"smudged scan"}}`
	req, _ := http.NewRequest(http.MethodPost, fmtWorkspacePath(suite.workspaceID, "/workflows/invoice-approval/executions"), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	// The run paused rather than failed, so the execution is still created.
	suite.Equal(http.StatusCreated, w.Code)

	var resp dto.ExecutionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(domain.ExecutionWaitingApproval, resp.Status)
	suite.Require().NotNil(resp.CurrentStepID)
	suite.Equal(stepID, *resp.CurrentStepID)

	suite.mocks.workflow.AssertExpectations(suite.T())
}

func (suite *WorkflowHandlerTestSuite) TestExecuteWorkflow_EmptyBodyAllowed() {
	completed := suite.newExecution(domain.ExecutionCompleted, nil)

	suite.mocks.workflow.On("ExecuteWorkflow",
		mock.Anything,
		suite.workspaceID,
		"invoice-approval",
		map[string]any(nil),
		middleware.DefaultActorID,
	).Return(completed, nil).Once()

	req, _ := http.NewRequest(http.MethodPost, fmtWorkspacePath(suite.workspaceID, "/workflows/invoice-approval/executions"), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusCreated, w.Code)
	suite.mocks.workflow.AssertExpectations(suite.T())
}

func (suite *WorkflowHandlerTestSuite) TestExecuteWorkflow_DefinitionNotFound() {
	suite.mocks.workflow.On("ExecuteWorkflow", mock.Anything, suite.workspaceID, "no-such-definition", mock.Anything, middleware.DefaultActorID).
		Return(nil, apperrors.NewNotFoundError("workflow definition not found")).Once()

	req, _ := http.NewRequest(http.MethodPost, fmtWorkspacePath(suite.workspaceID, "/workflows/no-such-definition/executions"), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.mocks.workflow.AssertExpectations(suite.T())
}

func (suite *WorkflowHandlerTestSuite) TestResumeExecution_Success() {
	actorID := "reviewer"
	executionID := uuid.NewString()
	completed := suite.newExecution(domain.ExecutionCompleted, nil)

	suite.mocks.workflow.On("ResumeWorkflow", mock.Anything, suite.workspaceID, executionID, "process", actorID).
		Return(completed, nil).Once()

	body := `{"stepID":"process"}`
	req, _ := http.NewRequest(http.MethodPost, fmtWorkspacePath(suite.workspaceID, "/executions/"+executionID+"/resume"), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, actorID)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var resp dto.ExecutionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(domain.ExecutionCompleted, resp.Status)

	suite.mocks.workflow.AssertExpectations(suite.T())
}

func (suite *WorkflowHandlerTestSuite) TestResumeExecution_NoBodyDefaultsToCurrentStep() {
	executionID := uuid.NewString()
	completed := suite.newExecution(domain.ExecutionCompleted, nil)

	suite.mocks.workflow.On("ResumeWorkflow", mock.Anything, suite.workspaceID, executionID, "", middleware.DefaultActorID).
		Return(completed, nil).Once()

	req, _ := http.NewRequest(http.MethodPost, fmtWorkspacePath(suite.workspaceID, "/executions/"+executionID+"/resume"), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	suite.mocks.workflow.AssertExpectations(suite.T())
}

func (suite *WorkflowHandlerTestSuite) TestResumeExecution_NotPaused() {
	executionID := uuid.NewString()
	stateErr := fmt.Errorf("%w: execution is COMPLETED", services.ErrInvalidState)

	suite.mocks.workflow.On("ResumeWorkflow", mock.Anything, suite.workspaceID, executionID, "", middleware.DefaultActorID).
		Return(nil, stateErr).Once()

	req, _ := http.NewRequest(http.MethodPost, fmtWorkspacePath(suite.workspaceID, "/executions/"+executionID+"/resume"), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusConflict, w.Code)
	suite.Contains(w.Body.String(), "COMPLETED")

	suite.mocks.workflow.AssertExpectations(suite.T())
}

func (suite *WorkflowHandlerTestSuite) TestCancelExecution_Success() {
	executionID := uuid.NewString()
	cancelled := suite.newExecution(domain.ExecutionCancelled, nil)
	cancelled.ExecutionID = executionID

	suite.mocks.workflow.On("CancelWorkflow", mock.Anything, suite.workspaceID, executionID, middleware.DefaultActorID).
		Return(cancelled, nil).Once()

	req, _ := http.NewRequest(http.MethodPost, fmtWorkspacePath(suite.workspaceID, "/executions/"+executionID+"/cancel"), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var resp dto.ExecutionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(domain.ExecutionCancelled, resp.Status)

	suite.mocks.workflow.AssertExpectations(suite.T())
}

func (suite *WorkflowHandlerTestSuite) TestCancelExecution_AlreadyFinished() {
	executionID := uuid.NewString()
	stateErr := fmt.Errorf("%w: execution is COMPLETED", services.ErrInvalidState)

	suite.mocks.workflow.On("CancelWorkflow", mock.Anything, suite.workspaceID, executionID, middleware.DefaultActorID).
		Return(nil, stateErr).Once()

	req, _ := http.NewRequest(http.MethodPost, fmtWorkspacePath(suite.workspaceID, "/executions/"+executionID+"/cancel"), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusConflict, w.Code)
	suite.mocks.workflow.AssertExpectations(suite.T())
}

func (suite *WorkflowHandlerTestSuite) TestGetExecution_NotFound() {
	executionID := uuid.NewString()
	suite.mocks.workflow.On("GetExecutionByID", mock.Anything, suite.workspaceID, executionID).
		Return(nil, apperrors.NewNotFoundError("execution not found")).Once()

	req, _ := http.NewRequest(http.MethodGet, fmtWorkspacePath(suite.workspaceID, "/executions/"+executionID), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.mocks.workflow.AssertExpectations(suite.T())
}

func (suite *WorkflowHandlerTestSuite) TestListExecutions_PassesCursor() {
	nextToken := "bmV4dA"
	page := &dto.ListExecutionsResponse{
		Executions: []dto.ExecutionResponse{
			dto.ToExecutionResponse(suite.newExecution(domain.ExecutionCompleted, nil)),
		},
	}

	suite.mocks.workflow.On("ListExecutions",
		mock.Anything,
		suite.workspaceID,
		mock.MatchedBy(func(params dto.ListExecutionsParams) bool {
			return params.Limit == 10 && params.NextToken != nil && *params.NextToken == nextToken
		}),
	).Return(page, nil).Once()

	req, _ := http.NewRequest(http.MethodGet, fmtWorkspacePath(suite.workspaceID, "/executions?limit=10&nextToken="+nextToken), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var resp dto.ListExecutionsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Executions, 1)

	suite.mocks.workflow.AssertExpectations(suite.T())
}

// Definition routes are served straight from the in-memory registry, so these
// tests register a real definition instead of mocking.
func (suite *WorkflowHandlerTestSuite) registerInvoiceDefinition() domain.WorkflowDefinition {
	threshold := 0.9
	def := domain.WorkflowDefinition{
		DefinitionID: "invoice-approval",
		Name:         "Invoice Approval",
		Description:  "Extracts invoice fields and posts them to the ledger.",
		StartStepID:  "process",
		Steps: []domain.WorkflowStep{
			{
				StepID:              "process",
				Name:                "Process Invoice",
				Type:                domain.StepInvoiceProcessing,
				ConfidenceThreshold: &threshold,
			},
		},
	}
	suite.Require().NoError(suite.mocks.registry.Register(def))
	return def
}

func (suite *WorkflowHandlerTestSuite) TestListDefinitions() {
	suite.registerInvoiceDefinition()

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/workflow-definitions", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var resp dto.ListWorkflowDefinitionsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Definitions, 1)
	suite.Equal("invoice-approval", resp.Definitions[0].DefinitionID)
}

func (suite *WorkflowHandlerTestSuite) TestGetDefinition() {
	def := suite.registerInvoiceDefinition()

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/workflow-definitions/"+def.DefinitionID, nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var resp dto.WorkflowDefinitionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(def.Name, resp.Name)
	suite.Equal("process", resp.StartStepID)
	suite.Require().Len(resp.Steps, 1)
	suite.Equal(domain.StepInvoiceProcessing, resp.Steps[0].Type)
	suite.Require().NotNil(resp.Steps[0].ConfidenceThreshold)
	suite.InDelta(0.9, *resp.Steps[0].ConfidenceThreshold, 1e-9)
}

func (suite *WorkflowHandlerTestSuite) TestGetDefinition_NotFound() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/workflow-definitions/no-such-definition", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNotFound, w.Code)
}

func TestWorkflowHandler(t *testing.T) {
	suite.Run(t, new(WorkflowHandlerTestSuite))
}
