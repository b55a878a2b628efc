package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/opsarc/paperflow/internal/core/ports/repositories"
)

// NewRepositoryProvider wires every Postgres repository onto a shared pool.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	workspaceRepo := newPgxWorkspaceRepository(dbPool)
	accountRepo := newPgxAccountRepository(dbPool)
	ledgerRepo := newPgxLedgerRepository(dbPool)
	executionRepo := newPgxExecutionRepository(dbPool)
	approvalRepo := newPgxApprovalRepository(dbPool)

	return portsrepo.RepositoryProvider{
		WorkspaceRepo: workspaceRepo,
		AccountRepo:   accountRepo,
		LedgerRepo:    ledgerRepo,
		ExecutionRepo: executionRepo,
		ApprovalRepo:  approvalRepo,
	}
}
