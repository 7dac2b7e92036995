package models

import "time"

// User is the stored identity record. PasswordHash is empty for accounts
// created through OAuth; such accounts cannot log in with a password until
// one is set through a reset.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the projection of User that may leave the server.
// It has no password field at all, so no serializer can leak the hash.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public builds the outward representation of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// HasPassword reports whether a password hash is stored.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
