package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bugsheriff/internal/dbx"
	"github.com/dmitrijs2005/bugsheriff/internal/server/repositories/orphans"
	"github.com/dmitrijs2005/bugsheriff/internal/server/repositories/programs"
	"github.com/dmitrijs2005/bugsheriff/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/bugsheriff/internal/server/repositories/reports"
	"github.com/dmitrijs2005/bugsheriff/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same constructors for plain connections and transactions.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Programs(db dbx.DBTX) programs.Repository
	Reports(db dbx.DBTX) reports.Repository
	Orphans(db dbx.DBTX) orphans.Repository
}
