// Package cli implements the interactive authkeeper client.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/client/api"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
	"github.com/dmitrijs2005/authkeeper/internal/client/sessions"
)

type App struct {
	auth   *services.AuthService
	db     *sql.DB
	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local session database and connects the API client.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := sessions.OpenDatabase(ctx, c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	auth := services.NewAuthService(api.New(c.ServerURL, c.RequestTimeout), sessions.NewSQLiteRepository(db))

	return &App{auth: auth, db: db, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

// Run serves the REPL on stdin until the user leaves or ctx ends.
func (a *App) Run(ctx context.Context) error {
	defer a.db.Close()

	fmt.Fprintln(a.out, "Welcome to authkeeper CLI (type 'help' for commands)")
	runREPL(ctx, a, func() string { return a.status(ctx) }, a.reader, a.out)
	return nil
}

func (a *App) status(ctx context.Context) string {
	if email := a.auth.CurrentEmail(ctx); email != "" {
		return "(" + email + ")"
	}
	return ""
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.auth.CurrentEmail(ctx) != ""
}
