package model

import (
	"time"
)

// AuthUser is the identity exposed to the rest of the application.
type AuthUser struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName,omitempty"`
	PhotoURL      string `json:"photoURL,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

// Account is an identity provider's record of a user.
type Account struct {
	ID            string    `json:"id" bson:"id"`
	Email         string    `json:"email" bson:"email"`
	PasswordHash  string    `json:"-" bson:"password_hash,omitempty"`
	DisplayName   string    `json:"displayName,omitempty" bson:"displayName,omitempty"`
	PhotoURL      string    `json:"photoURL,omitempty" bson:"photoURL,omitempty"`
	EmailVerified bool      `json:"emailVerified" bson:"emailVerified"`
	Disabled      bool      `json:"disabled" bson:"disabled"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// User returns the public view of the account, or nil for a nil account.
func (a *Account) User() *AuthUser {
	if a == nil {
		return nil
	}
	return &AuthUser{
		UID:           a.ID,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		PhotoURL:      a.PhotoURL,
		EmailVerified: a.EmailVerified,
	}
}
