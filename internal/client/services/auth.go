// Package services contains the application services of the authkeeper CLI.
// AuthService drives the server's session lifecycle and keeps the current
// session in the local store between runs.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/api"
	"github.com/dmitrijs2005/authkeeper/internal/client/sessions"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// ErrNotLoggedIn is returned when a command needs a session and there is none.
var ErrNotLoggedIn = errors.New("not logged in")

// API is the part of api.Client the service uses.
type API interface {
	Register(ctx context.Context, name, email, password string) (api.User, error)
	Login(ctx context.Context, email, password string) (api.Tokens, error)
	Refresh(ctx context.Context, sessionID, refreshToken string) (api.Tokens, error)
	Logout(ctx context.Context, sessionID, refreshToken string) error
	Me(ctx context.Context, accessToken string) (api.User, error)
	SendResetEmail(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	OAuthURL(ctx context.Context) (string, error)
	ConfirmOAuth(ctx context.Context, code string) (api.Tokens, error)
}

type AuthService struct {
	api   API
	store sessions.Repository
	now   func() time.Time
}

func NewAuthService(client API, store sessions.Repository) *AuthService {
	return &AuthService{api: client, store: store, now: time.Now}
}

// Register creates an account. It does not log in.
func (s *AuthService) Register(ctx context.Context, name, email string, password []byte) (api.User, error) {
	defer common.WipeByteArray(password)
	return s.api.Register(ctx, name, email, string(password))
}

// Login opens a server session and stores it locally, replacing any
// previous one.
func (s *AuthService) Login(ctx context.Context, email string, password []byte) error {
	defer common.WipeByteArray(password)

	t, err := s.api.Login(ctx, email, string(password))
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	return s.save(ctx, common.NormalizeEmail(email), t)
}

// LoginOAuth completes a provider login with the code the browser got.
func (s *AuthService) LoginOAuth(ctx context.Context, code string) error {
	t, err := s.api.ConfirmOAuth(ctx, code)
	if err != nil {
		return fmt.Errorf("oauth login error: %w", err)
	}
	me, err := s.api.Me(ctx, t.AccessToken)
	if err != nil {
		return fmt.Errorf("oauth profile error: %w", err)
	}
	return s.save(ctx, me.Email, t)
}

func (s *AuthService) OAuthURL(ctx context.Context) (string, error) {
	return s.api.OAuthURL(ctx)
}

// Logout ends the server session and forgets the local one. A session the
// server already dropped still counts as logged out.
func (s *AuthService) Logout(ctx context.Context) error {
	cur, err := s.current(ctx)
	if err != nil {
		return err
	}

	if err := s.api.Logout(ctx, cur.SessionID, cur.RefreshToken); err != nil && !errors.Is(err, common.ErrorUnauthorized) {
		return fmt.Errorf("logout error: %w", err)
	}
	return s.store.Clear(ctx)
}

// Refresh rotates the stored session. When the server refuses, the local
// session is dropped and ErrNotLoggedIn is returned.
func (s *AuthService) Refresh(ctx context.Context) error {
	cur, err := s.current(ctx)
	if err != nil {
		return err
	}
	return s.refresh(ctx, cur)
}

// Me returns the logged-in user, refreshing once if the access token has
// run out.
func (s *AuthService) Me(ctx context.Context) (api.User, error) {
	cur, err := s.current(ctx)
	if err != nil {
		return api.User{}, err
	}

	u, err := s.api.Me(ctx, cur.AccessToken)
	if !errors.Is(err, common.ErrorUnauthorized) {
		return u, err
	}

	if err := s.refresh(ctx, cur); err != nil {
		return api.User{}, err
	}
	cur, err = s.current(ctx)
	if err != nil {
		return api.User{}, err
	}
	return s.api.Me(ctx, cur.AccessToken)
}

// CurrentEmail reports who is logged in locally, without asking the server.
func (s *AuthService) CurrentEmail(ctx context.Context) string {
	cur, err := s.current(ctx)
	if err != nil {
		return ""
	}
	return cur.Email
}

func (s *AuthService) RequestReset(ctx context.Context, email string) error {
	return s.api.SendResetEmail(ctx, email)
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, password []byte) error {
	defer common.WipeByteArray(password)
	return s.api.ResetPassword(ctx, token, string(password))
}

func (s *AuthService) refresh(ctx context.Context, cur sessions.Session) error {
	t, err := s.api.Refresh(ctx, cur.SessionID, cur.RefreshToken)
	if errors.Is(err, common.ErrorUnauthorized) {
		if err := s.store.Clear(ctx); err != nil {
			return err
		}
		return ErrNotLoggedIn
	}
	if err != nil {
		return fmt.Errorf("refresh error: %w", err)
	}
	return s.save(ctx, cur.Email, t)
}

// current loads the stored session, treating a refresh cookie that has
// run out as no session at all.
func (s *AuthService) current(ctx context.Context) (sessions.Session, error) {
	cur, err := s.store.Load(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		return sessions.Session{}, ErrNotLoggedIn
	}
	if err != nil {
		return sessions.Session{}, err
	}
	if !cur.RefreshValidUntil.IsZero() && !s.now().Before(cur.RefreshValidUntil) {
		if err := s.store.Clear(ctx); err != nil {
			return sessions.Session{}, err
		}
		return sessions.Session{}, ErrNotLoggedIn
	}
	return cur, nil
}

func (s *AuthService) save(ctx context.Context, email string, t api.Tokens) error {
	return s.store.Save(ctx, sessions.Session{
		Email:             email,
		SessionID:         t.SessionID,
		RefreshToken:      t.RefreshToken,
		AccessToken:       t.AccessToken,
		RefreshValidUntil: t.RefreshValidUntil,
	})
}
