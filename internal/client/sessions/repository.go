// Package sessions persists the CLI's current server session so that a
// restarted client can keep using it.
package sessions

import (
	"context"
	"time"
)

// Session is what the client knows about its server session: the two
// cookies, the last access token and when the refresh cookie runs out.
type Session struct {
	Email             string
	SessionID         string
	RefreshToken      string
	AccessToken       string
	RefreshValidUntil time.Time
}

// Repository keeps at most one session. Load returns common.ErrorNotFound
// when none is stored.
type Repository interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context) (Session, error)
	Clear(ctx context.Context) error
}
