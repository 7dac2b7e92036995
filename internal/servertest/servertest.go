// Package servertest starts a complete authkeeper HTTP API on an in-memory
// store for client tests.
package servertest

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// Mailbox records the last reset token mailed to each address.
type Mailbox struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *Mailbox) SendResetEmail(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[email] = token
	return nil
}

// Token returns the last token sent to email, or "".
func (m *Mailbox) Token(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

// Server is a running API plus the hooks tests need.
type Server struct {
	*httptest.Server
	Mailbox *Mailbox
	reset   *services.PasswordResetFlow
}

// WaitMail blocks until every queued reset mail is delivered.
func (s *Server) WaitMail() { s.reset.Wait() }

// New starts the API without OAuth and closes it when t ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rm := repomanager.NewMemoryRepositoryManager()
	logger := logging.Nop{}
	issuer := auth.NewIssuer([]byte("test-secret"), 15*time.Minute, 720*time.Hour)

	users := services.NewUserRegistry(nil, rm, password.NewHasher(bcrypt.MinCost))
	sessions := services.NewSessionManager(nil, rm, users, issuer, logger)
	mailbox := &Mailbox{tokens: map[string]string{}}
	reset := services.NewPasswordResetFlow(nil, dbx.NoTx{}, rm, users, mailbox, logger, 30*time.Minute)

	h := httpapi.NewHandler(users, sessions, reset, nil, logger, false)
	srv := httptest.NewServer(httpapi.NewRouter(h))
	t.Cleanup(func() {
		srv.Close()
		reset.Wait()
	})

	return &Server{Server: srv, Mailbox: mailbox, reset: reset}
}
