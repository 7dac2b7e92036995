// Package api is the HTTP client of the authkeeper server API. It speaks
// the {status, message, data} envelope and carries the session cookies
// explicitly, so callers decide where the session lives.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// User is the public user view returned by the server.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tokens is a freshly issued session as seen by the client.
type Tokens struct {
	SessionID         string
	RefreshToken      string
	RefreshValidUntil time.Time
	AccessToken       string
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Register(ctx context.Context, name, email, password string) (User, error) {
	var u User
	body := map[string]string{"name": name, "email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/auth/register", body, nil, "", &u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (Tokens, error) {
	body := map[string]string{"email": email, "password": password}
	return c.session(ctx, "/auth/login", body, nil)
}

func (c *Client) Refresh(ctx context.Context, sessionID, refreshToken string) (Tokens, error) {
	return c.session(ctx, "/auth/refresh", nil, sessionCookies(sessionID, refreshToken))
}

func (c *Client) ConfirmOAuth(ctx context.Context, code string) (Tokens, error) {
	return c.session(ctx, "/auth/confirm-oauth", map[string]string{"code": code}, nil)
}

func (c *Client) Logout(ctx context.Context, sessionID, refreshToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, sessionCookies(sessionID, refreshToken), "", nil)
	return err
}

func (c *Client) Me(ctx context.Context, accessToken string) (User, error) {
	var u User
	if _, err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, accessToken, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (c *Client) SendResetEmail(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/send-reset-email", map[string]string{"email": email}, nil, "", nil)
	return err
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	body := map[string]string{"token": token, "password": password}
	_, err := c.do(ctx, http.MethodPost, "/auth/reset-pwd", body, nil, "", nil)
	return err
}

func (c *Client) OAuthURL(ctx context.Context) (string, error) {
	var data struct {
		URL string `json:"url"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/auth/get-oauth-url", nil, nil, "", &data); err != nil {
		return "", err
	}
	return data.URL, nil
}

// session posts to an endpoint that answers with a new session: the access
// token in the body and the session id and refresh token as cookies.
func (c *Client) session(ctx context.Context, path string, body any, cookies []*http.Cookie) (Tokens, error) {
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	resp, err := c.do(ctx, http.MethodPost, path, body, cookies, "", &data)
	if err != nil {
		return Tokens{}, err
	}

	t := Tokens{AccessToken: data.AccessToken}
	for _, ck := range resp.Cookies() {
		switch ck.Name {
		case common.SessionCookieName:
			t.SessionID = ck.Value
		case common.RefreshTokenCookieName:
			t.RefreshToken = ck.Value
			t.RefreshValidUntil = ck.Expires
		}
	}
	if t.SessionID == "" || t.RefreshToken == "" {
		return Tokens{}, fmt.Errorf("%s: response carries no session cookies", path)
	}
	return t, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, cookies []*http.Cookie, accessToken string, out any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+accessToken)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%s: malformed response (status %d)", path, resp.StatusCode)
		}
	}

	if resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("%s: decode data: %w", path, err)
		}
	}
	return resp, nil
}

// statusError maps a failing status onto the shared sentinels.
func statusError(status int, message string) error {
	var base error
	switch status {
	case http.StatusUnauthorized:
		base = common.ErrorUnauthorized
	case http.StatusConflict:
		base = common.ErrorConflict
	case http.StatusNotFound:
		base = common.ErrorNotFound
	case http.StatusBadRequest:
		base = common.ErrorValidation
	default:
		base = common.ErrorInternal
	}
	if message == "" {
		return fmt.Errorf("%w (status %d)", base, status)
	}
	return fmt.Errorf("%w: %s", base, message)
}

func sessionCookies(sessionID, refreshToken string) []*http.Cookie {
	var out []*http.Cookie
	if sessionID != "" {
		out = append(out, &http.Cookie{Name: common.SessionCookieName, Value: sessionID})
	}
	if refreshToken != "" {
		out = append(out, &http.Cookie{Name: common.RefreshTokenCookieName, Value: refreshToken})
	}
	return out
}
