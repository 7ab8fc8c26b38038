// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/corefirst/authstore/internal/catalog"
	"github.com/corefirst/authstore/internal/dbx"
	"github.com/corefirst/authstore/internal/migrations"
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
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations bound to one table catalog, and exposes a schema
// migration hook.
type PostgresRepositoryManager struct {
	cat catalog.Catalog
}

// NewPostgresRepositoryManager constructs a manager whose repositories
// resolve table names through the given catalog.
func NewPostgresRepositoryManager(cat catalog.Catalog) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{cat: cat}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db, m.cat)
}

func (m *PostgresRepositoryManager) EmailPassword(db dbx.DBTX) emailpassword.Repository {
	return emailpassword.NewPostgresRepository(db, m.cat)
}

func (m *PostgresRepositoryManager) ThirdParty(db dbx.DBTX) thirdparty.Repository {
	return thirdparty.NewPostgresRepository(db, m.cat)
}

func (m *PostgresRepositoryManager) Passwordless(db dbx.DBTX) passwordless.Repository {
	return passwordless.NewPostgresRepository(db, m.cat)
}

func (m *PostgresRepositoryManager) EmailVerification(db dbx.DBTX) emailverification.Repository {
	return emailverification.NewPostgresRepository(db, m.cat)
}

func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db, m.cat)
}

func (m *PostgresRepositoryManager) JWTSigning(db dbx.DBTX) jwtsigning.Repository {
	return jwtsigning.NewPostgresRepository(db, m.cat)
}

func (m *PostgresRepositoryManager) Roles(db dbx.DBTX) roles.Repository {
	return roles.NewPostgresRepository(db, m.cat)
}

func (m *PostgresRepositoryManager) UserIDMapping(db dbx.DBTX) useridmapping.Repository {
	return useridmapping.NewPostgresRepository(db, m.cat)
}

func (m *PostgresRepositoryManager) UserMetadata(db dbx.DBTX) usermetadata.Repository {
	return usermetadata.NewPostgresRepository(db, m.cat)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations renders the embedded migrations through the catalog and runs
// them against the provided database connection. The catalog's schema is
// created first when configured, and goose's version table is resolved
// through the catalog too, so tenants sharing a database keep separate
// migration histories.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	if schema := m.cat.Schema(); schema != "" {
		// Identifier already validated at catalog construction.
		if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
			return fmt.Errorf("schema init error: %w", err)
		}
	}

	fsys, err := migrations.Rendered(m.cat)
	if err != nil {
		return err
	}
	goose.SetBaseFS(fsys)
	goose.SetTableName(m.cat.Table("goose_db_version"))
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}
