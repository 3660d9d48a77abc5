// Package repomanager wires concrete repository implementations to a
// database handle and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/spendkeeper/spendkeeper/internal/dbx"
	"github.com/spendkeeper/spendkeeper/internal/server/repositories/expenses"
	"github.com/spendkeeper/spendkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Expenses(db dbx.DBTX) expenses.Repository
}
