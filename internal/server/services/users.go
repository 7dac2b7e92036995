package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// UserRegistry owns user identity records. The password hash never leaves
// it except inside models.User, which callers must not serialize.
type UserRegistry struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	hasher      *password.Hasher
}

func NewUserRegistry(db dbx.DBTX, m repomanager.RepositoryManager, hasher *password.Hasher) *UserRegistry {
	return &UserRegistry{
		db:          db,
		repomanager: m,
		hasher:      hasher,
	}
}

// Register creates a password account. A taken email (after normalization)
// yields common.ErrorConflict.
func (s *UserRegistry) Register(ctx context.Context, name, email, plain string) (models.PublicUser, error) {
	name = strings.TrimSpace(name)
	email = common.NormalizeEmail(email)
	if name == "" || email == "" {
		return models.PublicUser{}, fmt.Errorf("%w: name and email are required", common.ErrorValidation)
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return models.PublicUser{}, err
	}

	return s.create(ctx, name, email, hash)
}

func (s *UserRegistry) create(ctx context.Context, name, email, hash string) (models.PublicUser, error) {
	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("error creating user: %w", err)
	}
	return user.Public(), nil
}

func (s *UserRegistry) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByEmail(ctx, common.NormalizeEmail(email))
}

func (s *UserRegistry) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// FindOrCreate returns the account registered under email, creating a
// passwordless one if there is none. Losing a creation race to a concurrent
// caller is resolved by reading the winner's row.
func (s *UserRegistry) FindOrCreate(ctx context.Context, name, email string) (*models.User, error) {
	email = common.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrorValidation)
	}

	user, err := s.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if strings.TrimSpace(name) == "" {
		name = email
	}

	created, err := s.repomanager.Users(s.db).Create(ctx, &models.User{Name: strings.TrimSpace(name), Email: email})
	if err == nil {
		return created, nil
	}
	if errors.Is(err, common.ErrorConflict) {
		return s.FindByEmail(ctx, email)
	}
	return nil, fmt.Errorf("error creating user: %w", err)
}

// VerifyPassword compares in constant time. Accounts without a password
// never match.
func (s *UserRegistry) VerifyPassword(user *models.User, plain string) bool {
	if user == nil || !user.HasPassword() {
		return false
	}
	return s.hasher.Verify(user.PasswordHash, plain)
}

// SetPassword replaces the stored hash of userID.
func (s *UserRegistry) SetPassword(ctx context.Context, userID, plain string) error {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return err
	}
	return s.setPasswordHash(ctx, s.db, userID, hash)
}

func (s *UserRegistry) setPasswordHash(ctx context.Context, db dbx.DBTX, userID, hash string) error {
	if err := s.repomanager.Users(db).UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	return nil
}
