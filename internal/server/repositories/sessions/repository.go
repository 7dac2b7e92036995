// Package sessions declares the session repository contract and its
// PostgreSQL implementation. A user owns at most one session row.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	// Upsert stores s as the only session of s.UserID, replacing any
	// previous one in a single atomic step. The write only happens while
	// the user still has passwordHash, the credential the session was
	// granted for; otherwise common.ErrorNotFound.
	Upsert(ctx context.Context, s *models.Session, passwordHash string) (*models.Session, error)

	// GetByID and GetByAccessToken return common.ErrorNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.Session, error)
	GetByAccessToken(ctx context.Context, accessToken string) (*models.Session, error)

	// Rotate swaps in pair only if the session still carries refreshToken
	// and that token is valid at now. Otherwise common.ErrorNotFound.
	Rotate(ctx context.Context, id string, refreshToken string, now time.Time, pair models.TokenPair) (*models.Session, error)

	// Delete reports whether a session was removed.
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByUserID(ctx context.Context, userID string) error
}
