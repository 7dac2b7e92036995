package resettokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (token, user_id, valid_until)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, t.Token, t.UserID, t.ValidUntil); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Consume uses DELETE .. RETURNING so that exactly one caller gets the row.
func (r *PostgresRepository) Consume(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	query := `
		DELETE FROM password_reset_tokens
		WHERE token = $1
		RETURNING token, user_id, valid_until
	`
	t := &models.PasswordResetToken{}
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&t.Token, &t.UserID, &t.ValidUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) DeleteByUserID(ctx context.Context, userID string) error {
	query := `
		DELETE FROM password_reset_tokens
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
