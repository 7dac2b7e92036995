package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, user_id, access_token, refresh_token,
		access_token_valid_until, refresh_token_valid_until, created_at, updated_at`

// Upsert relies on the unique index on user_id: a second login overwrites
// the whole row, including its id. The row is only written while the user
// still has passwordHash. FOR SHARE makes a concurrent password change wait
// for this statement, or makes this statement see the new hash and write
// nothing.
func (r *PostgresRepository) Upsert(ctx context.Context, s *models.Session, passwordHash string) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, user_id, access_token, refresh_token,
			access_token_valid_until, refresh_token_valid_until)
		SELECT $1::uuid, u.id, $3::text, $4::text, $5::timestamptz, $6::timestamptz
		FROM users u
		WHERE u.id = $2 AND u.password_hash = $7
		FOR SHARE
		ON CONFLICT (user_id) DO UPDATE SET
			id = EXCLUDED.id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			access_token_valid_until = EXCLUDED.access_token_valid_until,
			refresh_token_valid_until = EXCLUDED.refresh_token_valid_until,
			created_at = now(),
			updated_at = now()
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.UserID, s.AccessToken, s.RefreshToken,
		s.AccessTokenValidUntil, s.RefreshTokenValidUntil, passwordHash).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + selectColumns + `
		FROM sessions
		WHERE id = $1`
	return scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByAccessToken(ctx context.Context, accessToken string) (*models.Session, error) {
	query := `SELECT ` + selectColumns + `
		FROM sessions
		WHERE access_token = $1`
	return scanSession(r.db.QueryRowContext(ctx, query, accessToken))
}

// Rotate is a compare-and-swap on the refresh token. Of two concurrent
// callers presenting the same token only one matches the WHERE clause.
func (r *PostgresRepository) Rotate(ctx context.Context, id string, refreshToken string, now time.Time, pair models.TokenPair) (*models.Session, error) {
	query := `
		UPDATE sessions SET
			access_token = $3,
			refresh_token = $4,
			access_token_valid_until = $5,
			refresh_token_valid_until = $6,
			updated_at = now()
		WHERE id = $1 AND refresh_token = $2 AND refresh_token_valid_until > $7
		RETURNING ` + selectColumns
	return scanSession(r.db.QueryRowContext(ctx, query,
		id, refreshToken, pair.AccessToken, pair.RefreshToken,
		pair.AccessTokenValidUntil, pair.RefreshTokenValidUntil, now))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	query := `
		DELETE FROM sessions
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) DeleteByUserID(ctx context.Context, userID string) error {
	query := `
		DELETE FROM sessions
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanSession(row *sql.Row) (*models.Session, error) {
	s := &models.Session{}
	err := row.Scan(&s.ID, &s.UserID, &s.AccessToken, &s.RefreshToken,
		&s.AccessTokenValidUntil, &s.RefreshTokenValidUntil, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
