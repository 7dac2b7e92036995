package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/oauth"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/sessions"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 30 * 24 * time.Hour
	testResetTTL   = 30 * time.Minute
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	email string
	token string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendResetEmail(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{email: email, token: token})
	return nil
}

func (m *recordingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type fakeProvider struct {
	profile oauth.Profile
	err     error
}

func (p *fakeProvider) AuthorizationURL() string { return "https://provider.example/auth?client_id=cid" }

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string) (oauth.Profile, error) {
	if p.err != nil {
		return oauth.Profile{}, p.err
	}
	return p.profile, nil
}

type fixture struct {
	clock    *testClock
	rm       repomanager.RepositoryManager
	users    *UserRegistry
	sessions *SessionManager
	reset    *PasswordResetFlow
	mailer   *recordingMailer
	provider *fakeProvider
	linker   *OAuthLinker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithManager(t, repomanager.NewMemoryRepositoryManager())
}

func newFixtureWithManager(t *testing.T, rm repomanager.RepositoryManager) *fixture {
	t.Helper()

	clock := &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	issuer := auth.NewIssuer([]byte("test-secret"), testAccessTTL, testRefreshTTL).WithClock(clock.Now)
	logger := logging.Nop{}

	users := NewUserRegistry(nil, rm, password.NewHasher(bcrypt.MinCost))
	sessions := NewSessionManager(nil, rm, users, issuer, logger)

	mailer := &recordingMailer{}
	reset := NewPasswordResetFlow(nil, dbx.NoTx{}, rm, users, mailer, logger, testResetTTL)
	reset.now = clock.Now

	provider := &fakeProvider{}
	linker := NewOAuthLinker(provider, users, sessions, logger)

	return &fixture{
		clock:    clock,
		rm:       rm,
		users:    users,
		sessions: sessions,
		reset:    reset,
		mailer:   mailer,
		provider: provider,
		linker:   linker,
	}
}

var errBoom = errors.New("boom")

// gatedManager holds the first session upsert until release is closed and
// signals on reached when it gets there.
type gatedManager struct {
	repomanager.RepositoryManager
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func newGatedManager() *gatedManager {
	return &gatedManager{
		RepositoryManager: repomanager.NewMemoryRepositoryManager(),
		reached:           make(chan struct{}),
		release:           make(chan struct{}),
	}
}

func (g *gatedManager) Sessions(db dbx.DBTX) sessions.Repository {
	return &gatedSessions{Repository: g.RepositoryManager.Sessions(db), g: g}
}

type gatedSessions struct {
	sessions.Repository
	g *gatedManager
}

func (s *gatedSessions) Upsert(ctx context.Context, sess *models.Session, passwordHash string) (*models.Session, error) {
	s.g.once.Do(func() { close(s.g.reached) })
	<-s.g.release
	return s.Repository.Upsert(ctx, sess, passwordHash)
}
