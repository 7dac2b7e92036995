// Package auth mints and parses the tokens handed to clients.
//
// Access tokens are HS256 JWTs that carry the user and session ids plus a
// random jti, so two tokens issued in the same second still differ.
// Refresh tokens are opaque random hex strings that only the session store
// can validate.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// tokenBytes is the amount of randomness in refresh tokens and access
// token ids (256 bits).
const tokenBytes = 32

// Claims of an access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
}

// Issuer is the token issuer. It has no persistence side effects.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret []byte, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Now reads the issuer's clock, so callers compare expiries against the
// same time source the tokens were minted with.
func (i *Issuer) Now() time.Time { return i.now() }

// IssuePair generates a new access/refresh token pair for the session and
// computes both expiry instants from the configured lifetimes.
func (i *Issuer) IssuePair(userID, sessionID string) (models.TokenPair, error) {
	now := i.now()

	access, accessUntil, err := i.generateAccessToken(userID, sessionID, now)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{
		AccessToken:            access,
		RefreshToken:           refresh,
		AccessTokenValidUntil:  accessUntil,
		RefreshTokenValidUntil: now.Add(i.refreshTTL),
	}, nil
}

func (i *Issuer) generateAccessToken(userID, sessionID string, now time.Time) (string, time.Time, error) {
	jti, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return "", time.Time{}, err
	}

	validUntil := now.Add(i.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(validUntil),
		},
		UserID:    userID,
		SessionID: sessionID,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, validUntil, nil
}

// ParseAccessToken checks signature and expiry. It returns
// common.ErrTokenExpired for expired tokens and common.ErrInvalidToken for
// anything else that fails validation.
func (i *Issuer) ParseAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.SessionID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
