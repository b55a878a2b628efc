package services

import (
	"github.com/opsarc/paperflow/internal/core/actions"
	portsrepo "github.com/opsarc/paperflow/internal/core/ports/repositories"
	portssvc "github.com/opsarc/paperflow/internal/core/ports/services"
)

// Collaborators groups the external collaborator implementations the
// workflow actions depend on.
type Collaborators struct {
	Extractor portssvc.DocumentExtractorSvc
	Agent     portssvc.AgentRunnerSvc
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(repos portsrepo.RepositoryProvider, registry portssvc.DefinitionRegistrySvc, collaborators Collaborators) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}
	container.Definitions = registry

	// Initialize the workspace service first since every other service
	// authorizes against it.
	container.Workspace = NewWorkspaceService(repos.WorkspaceRepo)
	workspaceAuthorizer := container.Workspace.(portssvc.WorkspaceAuthorizerSvc)

	container.Account = NewAccountService(
		repos.AccountRepo,
		WithWorkspaceAuthorizer(workspaceAuthorizer),
	)

	// The workspace service seeds default accounts through the account
	// service, which itself authorizes against the workspace service, so
	// the seeder is attached only after both exist.
	if ws, ok := container.Workspace.(*workspaceService); ok {
		ws.accountSvc = container.Account
	}

	container.Ledger = NewLedgerService(repos.LedgerRepo, container.Account, workspaceAuthorizer)
	container.Approval = NewApprovalService(repos.ApprovalRepo, repos.ExecutionRepo, workspaceAuthorizer)

	dispatcher := actions.NewDispatcher(
		collaborators.Extractor,
		collaborators.Agent,
		container.Ledger,
		container.Account,
	)
	container.Workflow = NewWorkflowService(
		repos.ExecutionRepo,
		repos.ApprovalRepo,
		registry,
		dispatcher,
		container.Approval,
		workspaceAuthorizer,
	)

	return container
}
