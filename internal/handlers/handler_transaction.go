package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opsarc/paperflow/internal/apperrors"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/core/services"
	"github.com/opsarc/paperflow/internal/dto"
	"github.com/opsarc/paperflow/internal/middleware"
)

// transactionHandler handles HTTP requests related to ledger transactions.
type transactionHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

// newTransactionHandler creates a new transactionHandler.
func newTransactionHandler(ls portssvc.LedgerSvcFacade) *transactionHandler {
	return &transactionHandler{
		ledgerService: ls,
	}
}

// registerTransactionRoutes registers transaction routes nested under a workspace.
func registerTransactionRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newTransactionHandler(ledgerService)

	transactions := rg.Group("/transactions")
	{
		transactions.POST("", h.recordTransaction)
		transactions.GET("", h.listTransactions)
		transactions.GET("/:transaction_id", h.getTransaction)
	}
}

// recordTransaction godoc
// @Summary Record a balanced transaction
// @Description Validates and posts a balanced transaction with its journal entries. Re-posting an already recorded external id returns the existing transaction.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   transaction body dto.RecordTransactionRequest true "Transaction with journal entries"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Unbalanced entries, unknown account or validation error"
// @Failure 404 {object} map[string]string "Workspace not found"
// @Failure 500 {object} map[string]string "Failed to record transaction"
// @Router /workspaces/{workspace_id}/transactions [post]
func (h *transactionHandler) recordTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")

	var req dto.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	actorID, ok := middleware.GetActorIDFromContext(c)
	if !ok {
		actorID = middleware.DefaultActorID
	}

	logger = logger.With(slog.String("workspace_id", workspaceID), slog.String("actor_id", actorID))
	logger.Info("Received request to record transaction", slog.Int("entry_count", len(req.Entries)))

	transaction, err := h.ledgerService.RecordTransaction(c.Request.Context(), workspaceID, req, actorID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnbalancedTransaction),
			errors.Is(err, services.ErrTransactionMinEntries),
			errors.Is(err, services.ErrTransactionMinAccounts),
			errors.Is(err, services.ErrDescriptionMissing),
			errors.Is(err, services.ErrAccountNotFound),
			errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Validation error recording transaction", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Workspace not found recording transaction")
			c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
		default:
			logger.Error("Failed to record transaction in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record transaction"})
		}
		return
	}

	logger.Info("Transaction recorded successfully", slog.String("transaction_id", transaction.TransactionID))
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(transaction))
}

// getTransaction godoc
// @Summary Get a transaction by ID
// @Description Retrieves a transaction with its journal entries.
// @Tags transactions
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   transaction_id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 500 {object} map[string]string "Failed to retrieve transaction"
// @Router /workspaces/{workspace_id}/transactions/{transaction_id} [get]
func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")
	transactionID := c.Param("transaction_id")

	logger = logger.With(slog.String("workspace_id", workspaceID), slog.String("transaction_id", transactionID))
	logger.Info("Received request to get transaction")

	transaction, err := h.ledgerService.GetTransactionByID(c.Request.Context(), workspaceID, transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Transaction not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		} else {
			logger.Error("Failed to get transaction from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve transaction"})
		}
		return
	}

	logger.Info("Transaction retrieved successfully")
	c.JSON(http.StatusOK, dto.ToTransactionResponse(transaction))
}

// listTransactions godoc
// @Summary List transactions in a workspace
// @Description Retrieves a page of transactions, newest first, with a cursor for the next page.
// @Tags transactions
// @Produce  json
// @Param   workspace_id path string true "Workspace ID"
// @Param   limit query int false "Limit number of results" default(20)
// @Param   nextToken query string false "Cursor returned by the previous page"
// @Param   includeEntries query bool false "Load journal entry lines for each transaction" default(false)
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 404 {object} map[string]string "Workspace not found"
// @Failure 500 {object} map[string]string "Failed to list transactions"
// @Router /workspaces/{workspace_id}/transactions [get]
func (h *transactionHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workspaceID := c.Param("workspace_id")

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListTransactions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	logger = logger.With(slog.String("workspace_id", workspaceID))
	logger.Info("Received request to list transactions", slog.Int("limit", params.Limit), slog.Bool("include_entries", params.IncludeEntries))

	resp, err := h.ledgerService.ListTransactions(c.Request.Context(), workspaceID, params)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Workspace not found listing transactions")
			c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
		} else {
			logger.Error("Failed to list transactions from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		}
		return
	}

	logger.Info("Transactions listed successfully", slog.Int("count", len(resp.Transactions)))
	c.JSON(http.StatusOK, resp)
}
