package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/servertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*Client, *servertest.Server) {
	t.Helper()
	srv := servertest.New(t)
	return New(srv.URL+"/", 5*time.Second), srv
}

func TestRegisterLoginMe(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	u, err := c.Register(ctx, "Ann", "ann@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.NotEmpty(t, u.ID)

	_, err = c.Register(ctx, "Ann2", "ANN@example.com", "other")
	require.ErrorIs(t, err, common.ErrorConflict)

	tokens, err := c.Login(ctx, "ann@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.SessionID)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.True(t, tokens.RefreshValidUntil.After(time.Now()))

	me, err := c.Me(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)

	_, err = c.Login(ctx, "ann@example.com", "wrong")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	_, err := c.Register(ctx, "Bob", "bob@example.com", "pw123456")
	require.NoError(t, err)
	first, err := c.Login(ctx, "bob@example.com", "pw123456")
	require.NoError(t, err)

	second, err := c.Refresh(ctx, first.SessionID, first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// the old refresh token is spent
	_, err = c.Refresh(ctx, first.SessionID, first.RefreshToken)
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	require.NoError(t, c.Logout(ctx, second.SessionID, second.RefreshToken))

	_, err = c.Me(ctx, second.AccessToken)
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	// without a session cookie the server refuses
	require.ErrorIs(t, c.Logout(ctx, "", ""), common.ErrorUnauthorized)
}

func TestPasswordReset(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	_, err := c.Register(ctx, "Cy", "cy@example.com", "old-pass")
	require.NoError(t, err)

	require.NoError(t, c.SendResetEmail(ctx, "cy@example.com"))
	require.NoError(t, c.SendResetEmail(ctx, "nobody@example.com"))
	srv.WaitMail()

	token := srv.Mailbox.Token("cy@example.com")
	require.NotEmpty(t, token)

	require.NoError(t, c.ResetPassword(ctx, token, "new-pass"))
	require.ErrorIs(t, c.ResetPassword(ctx, token, "again"), common.ErrorUnauthorized)

	_, err = c.Login(ctx, "cy@example.com", "new-pass")
	require.NoError(t, err)
}

func TestOAuthDisabled(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.OAuthURL(context.Background())
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = c.ConfirmOAuth(context.Background(), "code")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestValidationError(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.Register(context.Background(), "", "not-an-email", "x")
	require.ErrorIs(t, err, common.ErrorValidation)
}

func TestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, time.Second)
	_, err := c.Login(context.Background(), "a@b.c", "x")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestSessionWithoutCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":200,"message":"ok","data":{"accessToken":"a"}}`))
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL, time.Second).Login(context.Background(), "a@b.c", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session cookies")
}

func TestServerErrorMapsToInternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	err := New(srv.URL, time.Second).SendResetEmail(context.Background(), "a@b.c")
	require.ErrorIs(t, err, common.ErrorInternal)
}
