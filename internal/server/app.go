// Package server wires the service together: account database, object
// store, exchange pipeline, notifier, retention sweeper and the HTTP API,
// and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/dbx"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/filex"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/logging"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/config"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/exchange"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/httpapi"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/objectstore"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/repositories/repomanager"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/retention"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/services"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/tracing"
)

const (
	readHeaderTimeout = 10 * time.Second
	transferTimeout   = 10 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	tracer   *sdktrace.TracerProvider
	db       *sql.DB
	store    objectstore.Store
	accounts *services.AccountService
	sweeper  *retention.Sweeper
	server   *http.Server
}

// NewApp opens every dependency named by c. On error whatever was already
// opened is closed again.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	app := &App{config: c}
	ok := false
	defer func() {
		if !ok {
			app.Close(ctx)
		}
	}()

	var err error

	app.tracer, err = tracing.InitTracer(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("tracer init error: %w", err)
	}

	app.logger = logging.New(os.Stdout, c.LogLevel)

	app.db, err = dbx.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewSQLRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app.store, err = OpenStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	scratch, err := filex.NewScratch(c.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("scratch init error: %w", err)
	}
	if n, err := scratch.Purge(); err != nil {
		return nil, fmt.Errorf("scratch purge error: %w", err)
	} else if n > 0 {
		app.logger.Warn(ctx, "removed stale scratch files", "count", n, "dir", scratch.Dir())
	}

	pc, err := PipelineConfig(c)
	if err != nil {
		return nil, err
	}
	pipeline := exchange.NewPipeline(app.store, scratch, app.logger, pc)

	app.accounts = services.NewAccountService(app.db, rm, c)
	app.sweeper = retention.NewSweeper(app.store, c.Retention, c.SweepInterval, app.logger)

	h := httpapi.NewHandler(app.accounts, pipeline, NewNotifier(c, app.logger), app.logger,
		httpapi.WithSecureCookie(c.CookieSecure),
		httpapi.WithHealthCheck(app.db.PingContext),
	)
	app.server = &http.Server{
		Addr: c.HTTPAddr,
		Handler: httpapi.NewRouter(h, httpapi.RouterOptions{
			MaxUploadBytes: c.MaxUploadBytes,
			Tracing:        app.tracer != nil,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       transferTimeout,
		WriteTimeout:      transferTimeout,
		IdleTimeout:       idleTimeout,
	}

	ok = true
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	go func() {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "server shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.server.Addr)
	if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "server error", "error", err)
		cancelFunc()
	}
}

// cleanSessions drops expired session rows every sweep interval.
func (app *App) cleanSessions(ctx context.Context) {
	interval := app.config.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := app.accounts.DeleteExpiredSessions(ctx)
		if err != nil {
			app.logger.Error(ctx, "session cleanup failed", "error", err)
			continue
		}
		if n > 0 {
			app.logger.Info(ctx, "expired sessions removed", "count", n)
		}
	}
}

// Run serves until ctx is cancelled or a signal arrives, then drains the
// HTTP server and releases every dependency.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		app.cleanSessions(ctx)
	}()

	wg.Wait()
	app.Close(context.Background())
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the store, the database and the tracer. Safe on a
// partially built App.
func (app *App) Close(ctx context.Context) {
	log := app.logger
	if log == nil {
		log = logging.Nop{}
	}

	if app.store != nil {
		if err := app.store.Close(); err != nil {
			log.Error(ctx, "object store close error", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			log.Error(ctx, "db close error", "error", err)
		}
	}
	if app.tracer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := app.tracer.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "tracer shutdown error", "error", err)
		}
	}
}
