// Package server assembles the authkeeper server: it picks the storage
// backends from the configuration, wires the services, runs the HTTP server
// and shuts everything down gracefully on SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/mail"
	"github.com/dmitrijs2005/authkeeper/internal/server/oauth"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const initTimeout = 15 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger

	sqlDB *sql.DB
	redis *redis.Client

	users    *services.UserRegistry
	sessions *services.SessionManager
	reset    *services.PasswordResetFlow
	linker   *services.OAuthLinker
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	var opts []repomanager.Option
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		opts = append(opts, repomanager.WithResetTokenRepository(resettokens.NewRedisRepository(app.redis)))
		logger.Info(ctx, "reset tokens stored in redis", "address", c.RedisAddr)
	}

	var (
		rm repomanager.RepositoryManager
		db dbx.DBTX
		tx dbx.Transactor = dbx.NoTx{}
	)

	if c.DatabaseDSN != "" {
		sqlDB, err := sql.Open("pgx", c.DatabaseDSN)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.sqlDB = sqlDB

		if err := sqlDB.PingContext(ctx); err != nil {
			app.close()
			return nil, fmt.Errorf("db init error: %w", err)
		}

		rm, err = repomanager.NewPostgresRepositoryManager(sqlDB, opts...)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := rm.RunMigrations(ctx, sqlDB); err != nil {
			app.close()
			return nil, fmt.Errorf("migrations error: %w", err)
		}

		db = sqlDB
		tx = dbx.SQLTransactor{DB: sqlDB}
	} else {
		logger.Warn(ctx, "no database configured, using in-memory storage")
		rm = repomanager.NewMemoryRepositoryManager(opts...)
	}

	issuer := auth.NewIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)

	app.users = services.NewUserRegistry(db, rm, password.NewHasher(c.BcryptCost))
	app.sessions = services.NewSessionManager(db, rm, app.users, issuer, logger.With("module", "sessions"))
	app.reset = services.NewPasswordResetFlow(db, tx, rm, app.users, newMailer(c, logger), logger.With("module", "reset"),
		c.ResetTokenValidityDuration)

	if c.GoogleOAuthEnabled() {
		provider := oauth.NewGoogle(oauth.GoogleConfig{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURI:  c.GoogleRedirectURI,
		})
		app.linker = services.NewOAuthLinker(provider, app.users, app.sessions, logger.With("module", "oauth"))
	}

	return app, nil
}

func newMailer(c *config.Config, logger logging.Logger) mail.Mailer {
	if c.SMTPHost == "" {
		return mail.NewLogMailer(logger.With("module", "mail"), c.ResetURL)
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	}, c.ResetURL)
}

// Handler returns the HTTP handler serving the API.
func (app *App) Handler() *gin.Engine {
	var linker httpapi.OAuthService
	if app.linker != nil {
		linker = app.linker
	}
	h := httpapi.NewHandler(app.users, app.sessions, app.reset, linker, app.logger, app.config.SecureCookies)
	return httpapi.NewRouter(h)
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.Handler(), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or the
// HTTP server fails. Pending reset emails are flushed before it returns.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
		cancelFunc()
	}()

	wg.Wait()

	app.reset.Wait()
	app.close()

	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
}

func (app *App) close() {
	if app.sqlDB != nil {
		if err := app.sqlDB.Close(); err != nil {
			app.logger.Error(context.Background(), "db close", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(context.Background(), "redis close", "error", err)
		}
	}
}
