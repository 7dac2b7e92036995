package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so that services can
// run several of them in one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
}

// Option customizes a manager at construction time.
type Option func(*options)

type options struct {
	resetTokens resettokens.Repository
}

// WithResetTokenRepository makes the manager hand out r instead of its own
// reset token repository, regardless of the DBTX passed in. Used to keep reset
// tokens in Redis.
func WithResetTokenRepository(r resettokens.Repository) Option {
	return func(o *options) {
		o.resetTokens = r
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
