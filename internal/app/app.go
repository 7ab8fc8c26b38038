// Package app initializes and runs the storage daemon. It opens the
// connection pool, applies migrations, and sweeps expired rows on an
// interval until shutdown.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corefirst/authstore/internal/catalog"
	"github.com/corefirst/authstore/internal/config"
	"github.com/corefirst/authstore/internal/dbx"
	"github.com/corefirst/authstore/internal/logging"
	"github.com/corefirst/authstore/internal/repomanager"
)

// SweepInterval is how often expired sessions, tokens, and codes are
// removed.
const SweepInterval = time.Hour

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	manager *dbx.Manager
	repos   repomanager.RepositoryManager
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger()

	cat, err := catalog.New(c.SchemaName, c.TablePrefix)
	if err != nil {
		return nil, fmt.Errorf("catalog init error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		manager: dbx.NewManager(db, c.LockTimeout),
		repos:   repomanager.NewPostgresRepositoryManager(cat),
	}, nil
}

// Manager exposes the unit-of-work manager for embedding callers that run
// multi-statement operations.
func (app *App) Manager() *dbx.Manager {
	return app.manager
}

// Repositories exposes the repository manager for embedding callers.
func (app *App) Repositories() repomanager.RepositoryManager {
	return app.repos
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// sweepExpired removes rows whose expiry has passed. Each sweep is a single
// autocommit statement, so a failure in one table does not block the others.
func (app *App) sweepExpired(ctx context.Context) {
	now := time.Now().UnixMilli()

	n, err := app.repos.Sessions(app.db).DeleteExpiredSessions(ctx, now)
	if err != nil {
		app.logger.Error(ctx, "session sweep failed", "error", err)
	} else if n > 0 {
		app.logger.Info(ctx, "expired sessions removed", "count", n)
	}

	n, err = app.repos.EmailPassword(app.db).DeleteExpiredResetTokens(ctx, now)
	if err != nil {
		app.logger.Error(ctx, "reset token sweep failed", "error", err)
	} else if n > 0 {
		app.logger.Info(ctx, "expired reset tokens removed", "count", n)
	}

	n, err = app.repos.EmailVerification(app.db).DeleteExpiredTokens(ctx, now)
	if err != nil {
		app.logger.Error(ctx, "verification token sweep failed", "error", err)
	} else if n > 0 {
		app.logger.Info(ctx, "expired verification tokens removed", "count", n)
	}

	n, err = app.repos.Passwordless(app.db).DeleteCodesCreatedBefore(ctx, now-config.PasswordlessCodeLifetime.Milliseconds())
	if err != nil {
		app.logger.Error(ctx, "passwordless code sweep failed", "error", err)
	} else if n > 0 {
		app.logger.Info(ctx, "stale passwordless codes removed", "count", n)
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting authstore")
	app.initSignalHandler(cancelFunc)

	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		app.logger.Error(ctx, "migrations failed", "error", err)
		return
	}
	app.logger.Info(ctx, "migrations applied")

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			app.logger.Info(ctx, "shutting down")
			if err := app.db.Close(); err != nil {
				app.logger.Error(ctx, "pool close failed", "error", err)
			}
			return
		case <-ticker.C:
			app.sweepExpired(ctx)
		}
	}
}
