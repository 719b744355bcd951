// Package server wires configuration, storage and services together and runs
// the BugSheriff HTTP API alongside the orphaned file sweeper.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/bugsheriff/internal/logging"
	"github.com/dmitrijs2005/bugsheriff/internal/server/blobstore"
	"github.com/dmitrijs2005/bugsheriff/internal/server/config"
	"github.com/dmitrijs2005/bugsheriff/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bugsheriff/internal/server/rest"
	"github.com/dmitrijs2005/bugsheriff/internal/server/services"
)

type httpServer interface {
	Run(ctx context.Context) error
}

type sweeper interface {
	Run(ctx context.Context)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	server  httpServer
	sweeper sweeper
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := blobstore.New(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	us := services.NewUserService(db, rm, c)
	ps := services.NewProgramService(db, rm, store, logger)
	rs := services.NewReportService(db, rm, store, logger)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		server:  rest.NewHTTPServer(c, logger, us, ps, rs),
		sweeper: services.NewBlobSweeper(db, rm, store, c.SweepInterval, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives, ctx is cancelled or the
// HTTP server fails, then waits for the workers and closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
	}

	app.logger.Info(ctx, "App stopped")
}
