// Package password hashes and verifies user passwords with bcrypt, which
// salts every hash itself.
package password

import (
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// MaxLength is bcrypt's input limit in bytes.
const MaxLength = 72

type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, clamped to bcrypt's valid range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the salted hash of plain. Empty or over-long passwords are
// rejected with common.ErrorValidation.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" || len(plain) > MaxLength {
		return "", fmt.Errorf("%w: password must be 1..%d bytes", common.ErrorValidation, MaxLength)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify compares plain against hash in constant time. A missing or
// malformed hash never matches.
func (h *Hasher) Verify(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
