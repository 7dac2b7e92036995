package auth

import (
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssuePair_ExpiriesFollowConfig(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	iss := NewIssuer([]byte("k"), 15*time.Minute, 30*24*time.Hour).WithClock(fixedClock(now))

	pair, err := iss.IssuePair("u1", "s1")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}
	if !pair.AccessTokenValidUntil.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("access expiry: got %v", pair.AccessTokenValidUntil)
	}
	if !pair.RefreshTokenValidUntil.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("refresh expiry: got %v", pair.RefreshTokenValidUntil)
	}

	raw, err := hex.DecodeString(pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh token is not hex: %v", err)
	}
	if len(raw)*8 < 128 {
		t.Fatalf("refresh token has only %d bits", len(raw)*8)
	}
}

func TestIssuePair_TokensDifferEachCall(t *testing.T) {
	t.Parallel()

	now := time.Now()
	iss := NewIssuer([]byte("k"), time.Minute, time.Hour).WithClock(fixedClock(now))

	a, err := iss.IssuePair("u1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := iss.IssuePair("u1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if a.AccessToken == b.AccessToken {
		t.Fatal("access tokens issued at the same instant must differ")
	}
	if a.RefreshToken == b.RefreshToken {
		t.Fatal("refresh tokens must differ")
	}
}

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("super-secret"), time.Hour, 2*time.Hour)

	pair, err := iss.IssuePair("user-123", "sess-9")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	claims, err := iss.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken error: %v", err)
	}
	if claims.UserID != "user-123" || claims.SessionID != "sess-9" || claims.Subject != "user-123" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestParseAccessToken_Expired(t *testing.T) {
	t.Parallel()

	issued := time.Now().Add(-time.Hour)
	iss := NewIssuer([]byte("secret"), time.Minute, time.Hour).WithClock(fixedClock(issued))

	pair, err := iss.IssuePair("u1", "s1")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	iss.WithClock(time.Now)
	_, err = iss.ParseAccessToken(pair.AccessToken)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	t.Parallel()

	pair, err := NewIssuer([]byte("right-secret"), time.Hour, time.Hour).IssuePair("u2", "s2")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	_, err = NewIssuer([]byte("wrong-secret"), time.Hour, time.Hour).ParseAccessToken(pair.AccessToken)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for bad signature, got %v", err)
	}
}

func TestParseAccessToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u", SessionID: "s"})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	_, err = NewIssuer([]byte("k"), time.Hour, time.Hour).ParseAccessToken(s)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseAccessToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer([]byte("k"), time.Hour, time.Hour).ParseAccessToken("not.a.jwt")
	if err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
