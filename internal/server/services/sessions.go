package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// SessionManager drives the session lifecycle:
// no session -> active -> (refreshed -> active)* -> revoked.
// Expiry is never stored; it is checked lazily against the issuer's clock.
type SessionManager struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	users       *UserRegistry
	issuer      *auth.Issuer
	logger      logging.Logger
}

func NewSessionManager(db dbx.DBTX, m repomanager.RepositoryManager, users *UserRegistry, issuer *auth.Issuer, logger logging.Logger) *SessionManager {
	return &SessionManager{
		db:          db,
		repomanager: m,
		users:       users,
		issuer:      issuer,
		logger:      logger,
	}
}

// Login checks the credentials and replaces any session the user had.
// Unknown users and wrong passwords are indistinguishable.
func (s *SessionManager) Login(ctx context.Context, email, plain string) (*models.Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.users.VerifyPassword(user, plain) {
		return nil, common.ErrorUnauthorized
	}

	return s.LoginUser(ctx, user)
}

// LoginUser mints a session for an already authenticated user. The upsert
// keyed by user id makes the previous session's tokens unusable at once.
// It is bound to the password hash read with user: if the password changed
// in the meantime nothing is stored and the login is refused.
func (s *SessionManager) LoginUser(ctx context.Context, user *models.User) (*models.Session, error) {
	sessionID := uuid.NewString()

	pair, err := s.issuer.IssuePair(user.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error issuing tokens: %w", err)
	}

	session := &models.Session{ID: sessionID, UserID: user.ID}
	session.Apply(pair)

	session, err = s.repomanager.Sessions(s.db).Upsert(ctx, session, user.PasswordHash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error storing session: %w", err)
	}

	s.logger.Debug(ctx, "session issued", "user_id", user.ID, "session_id", sessionID)
	return session, nil
}

// Logout deletes the session and reports whether it existed. Calling it
// again, or with an empty id, is not an error.
func (s *SessionManager) Logout(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	existed, err := s.repomanager.Sessions(s.db).Delete(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("error deleting session: %w", err)
	}
	return existed, nil
}

// Refresh rotates the token pair of the session. Only one of several
// concurrent callers presenting the same refresh token succeeds; the
// others get common.ErrorUnauthorized.
func (s *SessionManager) Refresh(ctx context.Context, sessionID, refreshToken string) (*models.Session, error) {
	if sessionID == "" || refreshToken == "" {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Sessions(s.db)

	current, err := repo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching session: %w", err)
	}

	now := s.issuer.Now()
	if subtle.ConstantTimeCompare([]byte(current.RefreshToken), []byte(refreshToken)) != 1 || current.RefreshExpired(now) {
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.issuer.IssuePair(current.UserID, current.ID)
	if err != nil {
		return nil, fmt.Errorf("error issuing tokens: %w", err)
	}

	rotated, err := repo.Rotate(ctx, current.ID, refreshToken, now, pair)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error rotating session: %w", err)
	}

	return rotated, nil
}

// ValidateAccess resolves an access token to its owner. The token must be
// well formed, unexpired and still the current token of a live session.
func (s *SessionManager) ValidateAccess(ctx context.Context, accessToken string) (models.PublicUser, error) {
	if accessToken == "" {
		return models.PublicUser{}, common.ErrorUnauthorized
	}

	claims, err := s.issuer.ParseAccessToken(accessToken)
	if err != nil {
		return models.PublicUser{}, common.ErrorUnauthorized
	}

	session, err := s.repomanager.Sessions(s.db).GetByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.PublicUser{}, common.ErrorUnauthorized
		}
		return models.PublicUser{}, fmt.Errorf("error searching session: %w", err)
	}

	if session.ID != claims.SessionID || session.AccessExpired(s.issuer.Now()) {
		return models.PublicUser{}, common.ErrorUnauthorized
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.PublicUser{}, common.ErrorUnauthorized
		}
		return models.PublicUser{}, fmt.Errorf("error searching user: %w", err)
	}

	return user.Public(), nil
}
