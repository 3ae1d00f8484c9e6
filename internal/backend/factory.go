// Package backend builds the data gateway and the session store selected by
// configuration.
package backend

import (
	"context"
	"fmt"

	"seguimiento/internal/config"
	"seguimiento/internal/gateway"
	"seguimiento/internal/gateway/appsscript"
	"seguimiento/internal/gateway/google"
	"seguimiento/internal/gateway/memory"
	"seguimiento/internal/log"
	"seguimiento/internal/session"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is a ready gateway and the function releasing it.
type Result struct {
	Gateway gateway.Gateway
	Cleanup CleanupFunc
}

// Factory creates backends from the application configuration.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentGateway)}
}

// Gateway creates the gateway for cfg.DataBackend. The sheets backend reads
// and appends data tabs directly and leaves users, config and the activity
// log to the web app.
func (f *Factory) Gateway(ctx context.Context, cfg *config.Config) (*Result, error) {
	switch cfg.DataBackend {
	case config.BackendAppsScript:
		cli, err := f.appsScript(cfg)
		if err != nil {
			return nil, err
		}
		f.logger.InfoContext(ctx, "Initialized Apps Script backend", "timeout", cfg.GatewayTimeout.String())
		return &Result{Gateway: cli, Cleanup: noop}, nil

	case config.BackendSheets:
		base, err := f.appsScript(cfg)
		if err != nil {
			return nil, err
		}
		sheets, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			ProjectsSheet:   cfg.ProjectsSheet,
			FinancialSheet:  cfg.FinancialSheet,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets backend", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return &Result{Gateway: gateway.Overlay(base, sheets), Cleanup: noop}, nil

	case config.BackendMemory:
		store, err := memory.NewFromFiles(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", cfg.DataDir)
		return &Result{Gateway: store, Cleanup: noop}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
}

func (f *Factory) appsScript(cfg *config.Config) (*appsscript.Client, error) {
	cli, err := appsscript.New(cfg.GatewayURL, cfg.GatewayTimeout,
		appsscript.WithUsersTimeout(cfg.UsersTimeout),
		appsscript.WithLogger(f.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gateway client: %w", err)
	}
	return cli, nil
}

// SessionStore is a session store plus its cleanup.
type SessionStore struct {
	Store   session.Store
	Cleanup CleanupFunc
}

// Sessions opens the store named by cfg.SessionStore.
func (f *Factory) Sessions(ctx context.Context, cfg *config.Config) (*SessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionSQLite:
		store, err := session.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite session store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite session store", "db_path", cfg.SQLiteDBPath)
		return &SessionStore{Store: store, Cleanup: store.Close}, nil
	case config.SessionMemory:
		f.logger.InfoContext(ctx, "Initialized in-memory session store")
		return &SessionStore{Store: session.NewMemoryStore(), Cleanup: noop}, nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.SessionStore)
	}
}

func noop() error { return nil }
