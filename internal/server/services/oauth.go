package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/oauth"
)

// OAuthLinker signs users in through an external provider. A provider
// identity whose verified email matches an existing password account logs
// into that account; otherwise a passwordless account is created.
type OAuthLinker struct {
	provider oauth.Provider
	users    *UserRegistry
	sessions *SessionManager
	logger   logging.Logger
}

func NewOAuthLinker(provider oauth.Provider, users *UserRegistry, sessions *SessionManager, logger logging.Logger) *OAuthLinker {
	return &OAuthLinker{
		provider: provider,
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *OAuthLinker) AuthorizationURL() string {
	return s.provider.AuthorizationURL()
}

// LoginOrSignup runs the code exchange outside of any store operation and
// then hands off to the session manager.
func (s *OAuthLinker) LoginOrSignup(ctx context.Context, code string) (*models.Session, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", common.ErrOAuthExchangeFailed)
	}

	profile, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Warn(ctx, "oauth code exchange failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrOAuthExchangeFailed, err)
	}

	user, err := s.users.FindOrCreate(ctx, profile.Name, profile.Email)
	if err != nil {
		return nil, err
	}

	return s.sessions.LoginUser(ctx, user)
}
