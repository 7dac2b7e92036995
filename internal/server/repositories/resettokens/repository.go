// Package resettokens stores single-use password reset tokens. Two
// implementations are provided: PostgreSQL and Redis.
package resettokens

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.PasswordResetToken) error

	// Consume removes the token and returns it. The token is gone after
	// the call whether or not it turns out to be expired. Unknown or
	// already consumed tokens yield common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.PasswordResetToken, error)

	DeleteByUserID(ctx context.Context, userID string) error
}
