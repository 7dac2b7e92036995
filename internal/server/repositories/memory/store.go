// Package memory keeps users, sessions and reset tokens in process memory.
// It backs the server when no database is configured and is used by the
// service tests. One mutex guards the whole store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	users   map[string]models.User
	byEmail map[string]string

	sessions      map[string]models.Session
	sessionByUser map[string]string

	resetTokens map[string]models.PasswordResetToken

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:         make(map[string]models.User),
		byEmail:       make(map[string]string),
		sessions:      make(map[string]models.Session),
		sessionByUser: make(map[string]string),
		resetTokens:   make(map[string]models.PasswordResetToken),
		now:           time.Now,
	}
}

func (s *Store) Users() *UserRepository             { return &UserRepository{s: s} }
func (s *Store) Sessions() *SessionRepository       { return &SessionRepository{s: s} }
func (s *Store) ResetTokens() *ResetTokenRepository { return &ResetTokenRepository{s: s} }

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.byEmail[user.Email]; ok {
		return nil, common.ErrorConflict
	}

	now := r.s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.s.users[user.ID] = *user
	r.s.byEmail[user.Email] = user.ID

	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID string, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = r.s.now()
	r.s.users[userID] = u
	return nil
}

type SessionRepository struct{ s *Store }

func (r *SessionRepository) Upsert(ctx context.Context, sess *models.Session, passwordHash string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// the credential check and the write happen under one lock
	if u, ok := r.s.users[sess.UserID]; !ok || u.PasswordHash != passwordHash {
		return nil, common.ErrorNotFound
	}

	if old, ok := r.s.sessionByUser[sess.UserID]; ok {
		delete(r.s.sessions, old)
	}

	now := r.s.now()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	r.s.sessions[sess.ID] = *sess
	r.s.sessionByUser[sess.UserID] = sess.ID
	return sess, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &sess, nil
}

func (r *SessionRepository) GetByAccessToken(ctx context.Context, accessToken string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, sess := range r.s.sessions {
		if sess.AccessToken == accessToken {
			return &sess, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *SessionRepository) Rotate(ctx context.Context, id string, refreshToken string, now time.Time, pair models.TokenPair) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok || sess.RefreshToken != refreshToken || sess.RefreshExpired(now) {
		return nil, common.ErrorNotFound
	}

	sess.Apply(pair)
	sess.UpdatedAt = r.s.now()
	r.s.sessions[id] = sess
	return &sess, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return false, nil
	}
	delete(r.s.sessions, id)
	delete(r.s.sessionByUser, sess.UserID)
	return true, nil
}

func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if id, ok := r.s.sessionByUser[userID]; ok {
		delete(r.s.sessions, id)
		delete(r.s.sessionByUser, userID)
	}
	return nil
}

type ResetTokenRepository struct{ s *Store }

func (r *ResetTokenRepository) Create(ctx context.Context, t *models.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.resetTokens[t.Token]; ok {
		return common.ErrorConflict
	}
	r.s.resetTokens[t.Token] = *t
	return nil
}

func (r *ResetTokenRepository) Consume(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.resetTokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.s.resetTokens, token)
	return &t, nil
}

func (r *ResetTokenRepository) DeleteByUserID(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for k, t := range r.s.resetTokens {
		if t.UserID == userID {
			delete(r.s.resetTokens, k)
		}
	}
	return nil
}
