package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/mail"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

const (
	resetTokenBytes = 32
	mailTimeout     = 30 * time.Second
)

// PasswordResetFlow issues and redeems single-use reset tokens.
type PasswordResetFlow struct {
	db          dbx.DBTX
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	users       *UserRegistry
	mailer      mail.Mailer
	logger      logging.Logger
	ttl         time.Duration
	now         func() time.Time

	wg sync.WaitGroup
}

func NewPasswordResetFlow(db dbx.DBTX, tx dbx.Transactor, m repomanager.RepositoryManager, users *UserRegistry,
	mailer mail.Mailer, logger logging.Logger, ttl time.Duration) *PasswordResetFlow {
	return &PasswordResetFlow{
		db:          db,
		tx:          tx,
		repomanager: m,
		users:       users,
		mailer:      mailer,
		logger:      logger,
		ttl:         ttl,
		now:         time.Now,
	}
}

// RequestReset answers the same way whether or not email is registered.
// For a known email it stores a token and mails it in the background;
// delivery failures are only logged.
func (s *PasswordResetFlow) RequestReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	token, err := common.MakeRandHexString(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("error generating reset token: %w", err)
	}

	err = s.repomanager.ResetTokens(s.db).Create(ctx, &models.PasswordResetToken{
		Token:      token,
		UserID:     user.ID,
		ValidUntil: s.now().Add(s.ttl),
	})
	if err != nil {
		return fmt.Errorf("error storing reset token: %w", err)
	}

	s.wg.Add(1)
	go func(email string) {
		defer s.wg.Done()

		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
		defer cancel()

		if err := s.mailer.SendResetEmail(mctx, email, token); err != nil {
			s.logger.Error(mctx, "reset email delivery failed", "user_id", user.ID, "error", err)
		}
	}(user.Email)

	return nil
}

// Wait blocks until every reset email handed to the mailer is done.
func (s *PasswordResetFlow) Wait() {
	s.wg.Wait()
}

// ResetPassword consumes the token first, so it is spent even if anything
// after that fails. On success the password changes and every session of the
// user is revoked, together with any other outstanding reset tokens.
func (s *PasswordResetFlow) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return common.ErrorUnauthorized
	}

	resetToken, err := s.repomanager.ResetTokens(s.db).Consume(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("error consuming reset token: %w", err)
	}

	if resetToken.Expired(s.now()) {
		return common.ErrorUnauthorized
	}

	hash, err := s.users.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.users.setPasswordHash(ctx, tx, resetToken.UserID, hash); err != nil {
			return err
		}
		if err := s.repomanager.Sessions(tx).DeleteByUserID(ctx, resetToken.UserID); err != nil {
			return fmt.Errorf("error revoking sessions: %w", err)
		}
		if err := s.repomanager.ResetTokens(tx).DeleteByUserID(ctx, resetToken.UserID); err != nil {
			return fmt.Errorf("error deleting reset tokens: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return err
	}

	s.logger.Info(ctx, "password reset", "user_id", resetToken.UserID)
	return nil
}
