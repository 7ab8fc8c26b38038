package repomanager

import (
	"context"
	"database/sql"

	"github.com/corefirst/authstore/internal/dbx"
	"github.com/corefirst/authstore/internal/repositories/emailpassword"
	"github.com/corefirst/authstore/internal/repositories/emailverification"
	"github.com/corefirst/authstore/internal/repositories/jwtsigning"
	"github.com/corefirst/authstore/internal/repositories/passwordless"
	"github.com/corefirst/authstore/internal/repositories/roles"
	"github.com/corefirst/authstore/internal/repositories/sessions"
	"github.com/corefirst/authstore/internal/repositories/thirdparty"
	"github.com/corefirst/authstore/internal/repositories/useridmapping"
	"github.com/corefirst/authstore/internal/repositories/usermetadata"
	"github.com/corefirst/authstore/internal/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX. Binding to a
// *dbx.UnitOfWork makes every repository operate inside that transaction;
// binding to the root *sql.DB gives single-statement autocommit semantics.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	EmailPassword(db dbx.DBTX) emailpassword.Repository
	ThirdParty(db dbx.DBTX) thirdparty.Repository
	Passwordless(db dbx.DBTX) passwordless.Repository
	EmailVerification(db dbx.DBTX) emailverification.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	JWTSigning(db dbx.DBTX) jwtsigning.Repository
	Roles(db dbx.DBTX) roles.Repository
	UserIDMapping(db dbx.DBTX) useridmapping.Repository
	UserMetadata(db dbx.DBTX) usermetadata.Repository
}
