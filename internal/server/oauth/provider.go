// Package oauth talks to the external OAuth provider: it builds the consent
// URL and exchanges an authorization code for the user's email identity.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrEmailNotVerified = errors.New("provider email is not verified")
	ErrMissingEmail     = errors.New("provider returned no email")
)

// Profile is what the linker needs from the provider.
type Profile struct {
	Email string
	Name  string
}

type Provider interface {
	AuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (Profile, error)
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

var googleScopes = []string{"openid", "email", "profile"}

// Google implements Provider against Google's OAuth 2.0 endpoints.
type Google struct {
	cfg GoogleConfig

	authURL     string
	tokenURL    string
	userInfoURL string

	httpClient *http.Client
}

func NewGoogle(cfg GoogleConfig) *Google {
	return &Google{
		cfg:         cfg,
		authURL:     googleAuthURL,
		tokenURL:    googleTokenURL,
		userInfoURL: googleUserInfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *Google) AuthorizationURL() string {
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", g.cfg.ClientID)
	query.Set("redirect_uri", g.cfg.RedirectURI)
	query.Set("scope", strings.Join(googleScopes, " "))
	query.Set("prompt", "select_account")

	u, err := url.Parse(g.authURL)
	if err != nil {
		return ""
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// ExchangeCode trades code for an access token and reads the profile with
// it. Profiles without a verified email are rejected.
func (g *Google) ExchangeCode(ctx context.Context, code string) (Profile, error) {
	accessToken, err := g.exchangeToken(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("token exchange: %w", err)
	}

	profile, err := g.fetchProfile(ctx, accessToken)
	if err != nil {
		return Profile{}, fmt.Errorf("profile request: %w", err)
	}
	return profile, nil
}

func (g *Google) exchangeToken(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", g.cfg.RedirectURI)
	form.Set("client_id", g.cfg.ClientID)
	form.Set("client_secret", g.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", errors.New("missing access token")
	}
	return payload.AccessToken, nil
}

func (g *Google) fetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Profile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Profile{}, err
	}

	if strings.TrimSpace(payload.Email) == "" {
		return Profile{}, ErrMissingEmail
	}
	if !payload.EmailVerified {
		return Profile{}, ErrEmailNotVerified
	}

	return Profile{Email: payload.Email, Name: firstNonEmpty(payload.Name, payload.GivenName, payload.Email)}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
