// Package server wires the vault services together: configuration,
// logging, database, migrations. The web layer (or the operator CLI) sits
// on top of App.
package server

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/DawPastrator/server/internal/logging"
	"github.com/DawPastrator/server/internal/server/config"
	"github.com/DawPastrator/server/internal/server/db"
	"github.com/DawPastrator/server/internal/server/services"
)

type App struct {
	Config   *config.Config
	Logger   logging.Logger
	Accounts *services.AccountService
	Vault    *services.VaultService

	conn *sql.DB
}

// NewApp opens the database, runs migrations, and constructs the services.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	accounts := services.NewAccountService(conn, logger)
	vault := services.NewVaultService(accounts, cfg, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Accounts: accounts,
		Vault:    vault,
		conn:     conn,
	}, nil
}

// Close releases the database connection.
func (app *App) Close() error {
	return app.conn.Close()
}
