package models

import "time"

// TokenPair is a freshly minted access/refresh token pair with expiries.
type TokenPair struct {
	AccessToken            string
	RefreshToken           string
	AccessTokenValidUntil  time.Time
	RefreshTokenValidUntil time.Time
}

// Session binds a user to the current token pair. There is at most one
// Session per UserID.
type Session struct {
	ID                     string
	UserID                 string
	AccessToken            string
	RefreshToken           string
	AccessTokenValidUntil  time.Time
	RefreshTokenValidUntil time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Apply copies the tokens and expiries of p into s.
func (s *Session) Apply(p TokenPair) {
	s.AccessToken = p.AccessToken
	s.RefreshToken = p.RefreshToken
	s.AccessTokenValidUntil = p.AccessTokenValidUntil
	s.RefreshTokenValidUntil = p.RefreshTokenValidUntil
}

// AccessExpired reports whether the access token is no longer valid at now. A token
// is dead from the instant it reaches its expiry.
func (s *Session) AccessExpired(now time.Time) bool {
	return !now.Before(s.AccessTokenValidUntil)
}

// RefreshExpired reports whether the refresh token is no longer valid at now.
func (s *Session) RefreshExpired(now time.Time) bool {
	return !now.Before(s.RefreshTokenValidUntil)
}
