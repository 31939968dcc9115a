package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
)

// RepositoryManager vends repositories bound to a DBTX and owns schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
}

// Store is the record store seen by the services: a non-transactional
// repository plus a way to run several writes atomically.
type Store interface {
	Files() files.Repository
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo files.Repository) error) error
}
