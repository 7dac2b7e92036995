package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// MemoryRepositoryManager serves every repository from one memory.Store.
// The DBTX arguments are ignored; pair it with dbx.NoTx.
type MemoryRepositoryManager struct {
	store *memory.Store
	opts  options
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.store.Users()
}

func (m *MemoryRepositoryManager) Sessions(dbx.DBTX) sessions.Repository {
	return m.store.Sessions()
}

func (m *MemoryRepositoryManager) ResetTokens(dbx.DBTX) resettokens.Repository {
	if m.opts.resetTokens != nil {
		return m.opts.resetTokens
	}
	return m.store.ResetTokens()
}

func NewMemoryRepositoryManager(opts ...Option) RepositoryManager {
	return &MemoryRepositoryManager{store: memory.NewStore(), opts: buildOptions(opts)}
}
