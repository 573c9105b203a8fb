package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"

	"citizenconnect/webclient/internal/apiclient"
	"citizenconnect/webclient/internal/audit"
	"citizenconnect/webclient/internal/config"
	"citizenconnect/webclient/internal/httpserver"
	"citizenconnect/webclient/internal/notify"
	"citizenconnect/webclient/internal/observability"
	"citizenconnect/webclient/internal/routes"
	"citizenconnect/webclient/internal/session"
	"citizenconnect/webclient/internal/storage"
	"citizenconnect/webclient/internal/store"
)

type App struct {
	cfg    config.Config
	log    *slog.Logger
	db     *sql.DB
	server *httpserver.Server
}

func New(cfg config.Config) (*App, error) {
	logger := observability.NewLogger(cfg.LogLevel)

	local, db, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	closeDB := func() {
		if db != nil {
			_ = db.Close()
		}
	}

	sess, err := session.New(local)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("create session: %w", err)
	}
	history := routes.NewHistory()

	client, err := apiclient.New(apiclient.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.RequestTimeout,
		Middleware: []apiclient.Middleware{
			apiclient.WithRequestID(),
			apiclient.WithLogging(logger),
			apiclient.WithBearer(sess),
			apiclient.WithUnauthorized(sess, history, routes.LoginPath, logger),
		},
	})
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("create api client: %w", err)
	}

	st, err := store.New(store.API{
		Auth:    client.Auth,
		Issues:  client.Issues,
		Updates: client.Updates,
	}, sess, store.Options{
		DiscardStaleResponses: cfg.DiscardStaleResponses,
		Logger:                logger,
	})
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("create store: %w", err)
	}

	table, err := routes.Default()
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("load routes: %w", err)
	}

	server := httpserver.New(cfg.HTTP, httpserver.Deps{
		Store:   st,
		API:     client,
		Routes:  table,
		History: history,
		Toasts:  notify.NewQueue(0),
		Audit:   audit.NewLogger(cfg.AuditLogFile),
		Logger:  logger,
	})

	if sess.Authenticated() {
		logger.Info("session restored", "storage", cfg.Storage.Driver)
	}

	return &App{
		cfg:    cfg,
		log:    logger,
		db:     db,
		server: server,
	}, nil
}

func openStorage(cfg config.Config) (storage.Store, *sql.DB, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return storage.NewMemoryStore(), nil, nil
	case config.StorageFile:
		s, err := storage.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("create file storage: %w", err)
		}
		return s, nil, nil
	case config.StorageSQLite:
		db, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		s, err := storage.NewSQLiteStore(db, cfg.Storage.Namespace)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("create sqlite storage: %w", err)
		}
		return s, db, nil
	case config.StoragePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		s, err := storage.NewPostgresStore(db, cfg.Storage.Namespace)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return s, db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

func (a *App) Run(ctx context.Context) error {
	defer func() {
		if a.db != nil {
			_ = a.db.Close()
		}
	}()

	errCh := make(chan error, 1)

	go func() {
		a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr, "api", a.cfg.API.BaseURL)
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}
