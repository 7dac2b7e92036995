// Package users declares the user repository contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository stores user identity records. Emails are stored already
// normalized; uniqueness is enforced by the store.
type Repository interface {
	// Create inserts user and fills in ID and timestamps. A duplicate email
	// yields common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail and GetByID return common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// UpdatePasswordHash replaces the stored hash; common.ErrorNotFound if
	// the user does not exist.
	UpdatePasswordHash(ctx context.Context, userID string, hash string) error
}
