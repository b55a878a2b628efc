package services

import (
	"context"
	"log/slog"

	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
	"github.com/opsarc/paperflow/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	WorkspaceAuthorizer portssvc.WorkspaceAuthorizerSvc
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		// Return a default logger if not found in context
		return slog.Default()
	}
	return logger
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Debug(msg, keyvals...)
}

// EnsureWorkspaceActive checks that the target workspace exists and accepts writes
func (s *BaseService) EnsureWorkspaceActive(ctx context.Context, workspaceID string) error {
	if s.WorkspaceAuthorizer != nil {
		return s.WorkspaceAuthorizer.EnsureWorkspaceActive(ctx, workspaceID)
	}
	// Without an authorizer the check is skipped, which is only acceptable in tests.
	s.LogDebug(ctx, "No workspace authorizer provided, access granted by default",
		slog.String("workspace_id", workspaceID))
	return nil
}

// EnsureWorkspaceExists checks that the target workspace exists
func (s *BaseService) EnsureWorkspaceExists(ctx context.Context, workspaceID string) error {
	if s.WorkspaceAuthorizer != nil {
		return s.WorkspaceAuthorizer.EnsureWorkspaceExists(ctx, workspaceID)
	}
	s.LogDebug(ctx, "No workspace authorizer provided, access granted by default",
		slog.String("workspace_id", workspaceID))
	return nil
}
