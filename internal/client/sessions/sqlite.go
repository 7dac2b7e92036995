package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save replaces the stored session.
func (r *SQLiteRepository) Save(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO local_session (slot, email, session_id, refresh_token, access_token, refresh_valid_until)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			email = excluded.email,
			session_id = excluded.session_id,
			refresh_token = excluded.refresh_token,
			access_token = excluded.access_token,
			refresh_valid_until = excluded.refresh_valid_until
	`, s.Email, s.SessionID, s.RefreshToken, s.AccessToken, s.RefreshValidUntil.Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (Session, error) {
	var (
		s     Session
		until int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT email, session_id, refresh_token, access_token, refresh_valid_until
		FROM local_session WHERE slot = 1
	`).Scan(&s.Email, &s.SessionID, &s.RefreshToken, &s.AccessToken, &until)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, common.ErrorNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	s.RefreshValidUntil = time.Unix(until, 0)
	return s, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM local_session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// OpenDatabase opens the SQLite file at dsn and brings its schema up to date.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}
