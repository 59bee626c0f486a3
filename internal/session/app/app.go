package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/tokenward/internal/session/http"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger"
	"github.com/aussiebroadwan/tokenward/internal/session/ledger/memory"
	redisledger "github.com/aussiebroadwan/tokenward/internal/session/ledger/redis"
	"github.com/aussiebroadwan/tokenward/internal/session/service"
	"github.com/aussiebroadwan/tokenward/internal/session/store"
	"github.com/aussiebroadwan/tokenward/internal/session/store/drivers/sqlite"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
	"github.com/aussiebroadwan/tokenward/pkg/cryptox"
	"github.com/aussiebroadwan/tokenward/pkg/jwtx"
	"github.com/aussiebroadwan/tokenward/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X ...app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application owns every long-lived dependency of the session service.
type Application struct {
	cfg    Config
	logger *slog.Logger
	clock  clock.Clock

	db     store.Store
	ledger ledger.Ledger

	directory *service.DirectoryCredentials
	sessions  *service.Coordinator
	pruner    *service.Pruner

	server *http.Server
	router *httpapi.Router
}

// New validates cfg and builds the application. Nothing is listening yet.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tokenward",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		clock: clock.Real(),
	}

	if err := app.initDatabase(); err != nil {
		_ = app.closeStores()
		return nil, err
	}
	if err := app.initDirectory(); err != nil {
		_ = app.closeStores()
		return nil, err
	}
	if err := app.initLedger(); err != nil {
		_ = app.closeStores()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Directory exposes principal provisioning to the CLI.
func (app *Application) Directory() *service.DirectoryCredentials { return app.directory }

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.pruner.Start()

	app.logger.Info("tokenward starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"ledger", app.cfg.Ledger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains HTTP, stops the pruner and releases the stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down tokenward...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.pruner.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("tokenward stopped")
	return nil
}

// Close releases the stores without touching the HTTP server. It is for
// callers that never called Run, such as the useradd command.
func (app *Application) Close() error {
	return app.closeStores()
}

func (app *Application) closeStores() error {
	var errs []error
	if app.ledger != nil {
		if err := app.ledger.Close(); err != nil {
			app.logger.Error("error closing ledger", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the principal directory and applies migrations
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initDirectory() error {
	pepper, err := cryptox.LoadOrGeneratePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	app.directory = &service.DirectoryCredentials{
		Store:  app.db,
		Hasher: cryptox.NewHasher(pepper),
		Clock:  app.clock,
	}
	return nil
}

// initLedger picks the revocation backend. Redis keys outlive token expiry
// by the clock skew so a token the validator still accepts is never
// forgotten.
func (app *Application) initLedger() error {
	switch app.cfg.Ledger {
	case LedgerMemory:
		app.ledger = memory.New(app.clock)
		app.logger.Warn("using in-memory ledger; revocations are lost on restart and not shared")

	case LedgerRedis:
		l, err := redisledger.Dial(app.cfg.RedisURL, redisledger.Options{
			Prefix: app.cfg.RedisPrefix,
			Grace:  app.cfg.ClockSkew,
			Clock:  app.clock,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis ledger: %w", err)
		}
		app.ledger = l

	case LedgerSQLite:
		app.ledger = store.NewLedgerAdapter(app.db, app.clock)

	default:
		return fmt.Errorf("%w: unknown ledger backend %q", jwtx.ErrConfiguration, app.cfg.Ledger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.LedgerTimeout)
	defer cancel()
	if err := app.ledger.Ping(ctx); err != nil {
		// Not fatal: /readyz reports it and requests fail closed until it recovers.
		app.logger.Warn("ledger not reachable at startup", "ledger", app.cfg.Ledger, "error", err)
	}

	app.logger.Info("revocation ledger ready", "ledger", app.cfg.Ledger)
	return nil
}

// initServices initializes the token services and the pruner
func (app *Application) initServices() error {
	signer, err := jwtx.NewHMACSigner(app.cfg.Algorithm, []byte(app.cfg.SigningSecret))
	if err != nil {
		return err
	}
	codec := jwtx.NewCodec(signer)

	app.sessions = &service.Coordinator{
		Credentials: app.directory,
		Principals:  app.directory,
		Issuer: &service.Issuer{
			Codec:         codec,
			Clock:         app.clock,
			AccessTTL:     app.cfg.AccessTTL,
			RefreshTTL:    app.cfg.RefreshTTL,
			RememberMeTTL: app.cfg.RememberMeTTL,
			Issuer:        app.cfg.Issuer,
			Audience:      app.cfg.Audience,
		},
		Codec: codec,
		Validator: jwtx.Validator{
			Issuer:   app.cfg.Issuer,
			Audience: app.cfg.Audience,
			Skew:     app.cfg.ClockSkew,
		},
		Ledger:        app.ledger,
		Clock:         app.clock,
		LedgerTimeout: app.cfg.LedgerTimeout,
	}

	// Entries stay until the validator would reject their token anyway.
	app.pruner = service.NewPruner(app.ledger, app.logger, app.clock, app.cfg.PruneInterval, app.cfg.ClockSkew)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.sessions, app.cfg.RateLimits, BuildVersion, app.logger)
	if app.cfg.Ledger != LedgerSQLite {
		router.AddReadinessCheck("database", app.db.Ping)
	}
	if app.cfg.Cookies {
		router.UseCookies(app.cfg.CookieConfig())
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
