package resettokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ  = `(?s)^\s*INSERT\s+INTO\s+password_reset_tokens\s*\(token,\s*user_id,\s*valid_until\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`
	consumeQ = `(?s)^\s*DELETE\s+FROM\s+password_reset_tokens\s+WHERE\s+token\s*=\s*\$1\s+RETURNING\s+token,\s*user_id,\s*valid_until\s*$`
	deleteUQ = `(?s)^\s*DELETE\s+FROM\s+password_reset_tokens\s+WHERE\s+user_id\s*=\s*\$1\s*$`
)

func TestPostgresCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	exp := time.Now().Add(30 * time.Minute)
	mock.ExpectExec(insertQ).WithArgs("tok", "u1", exp).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertQ).WithArgs("tok", "u1", exp).WillReturnError(errors.New("db down"))

	tok := &models.PasswordResetToken{Token: "tok", UserID: "u1", ValidUntil: exp}
	if err := repo.Create(context.Background(), tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := repo.Create(context.Background(), tok)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgresConsume(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	exp := time.Now().Add(time.Minute)
	mock.ExpectQuery(consumeQ).WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "valid_until"}).AddRow("tok", "u1", exp))
	mock.ExpectQuery(consumeQ).WithArgs("tok").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(consumeQ).WithArgs("x").WillReturnError(errors.New("db err"))

	got, err := repo.Consume(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Consume error: %v", err)
	}
	if got.UserID != "u1" || !got.ValidUntil.Equal(exp) {
		t.Fatalf("unexpected token: %+v", got)
	}

	if _, err := repo.Consume(context.Background(), "tok"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound on second consume, got %v", err)
	}
	if _, err := repo.Consume(context.Background(), "x"); err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want wrapped db error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresDeleteByUserID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteUQ).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(deleteUQ).WithArgs("u1").WillReturnError(errors.New("db err"))

	if err := repo.DeleteByUserID(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.DeleteByUserID(context.Background(), "u1"); err == nil {
		t.Fatal("expected error")
	}
}
