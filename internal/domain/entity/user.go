// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// AuthProvider identifies how an account authenticates.
type AuthProvider string

const (
	// ProviderLocal marks accounts that log in with an email/password pair.
	ProviderLocal AuthProvider = "local"
	// ProviderGoogle marks accounts created or linked through Google federation.
	ProviderGoogle AuthProvider = "google"
)

// User is the identity record at the center of the system. A local user
// always carries a password hash; a federated user carries the external
// provider id instead. Linking federation onto a local account keeps the
// password so both login paths stay valid.
type User struct {
	ID           uuid.UUID    // Opaque unique id, generated at creation.
	Email        string       // Unique login identifier, stored case-sensitively.
	FullName     string       // Display name.
	AuthProvider AuthProvider // "local" or "google".
	PasswordHash string       // bcrypt hash; present iff the account has a password.
	GoogleID     string       // External subject id; present iff federated.
	BaseCVID     *uuid.UUID   // Optional reference to the user's canonical CV.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the externally visible projection of a User. It never carries
// credential material.
type Profile struct {
	UserID    uuid.UUID  `json:"userId"`
	Email     string     `json:"email"`
	FullName  string     `json:"fullName"`
	CreatedAt time.Time  `json:"createdAt"`
	BaseCVID  *uuid.UUID `json:"baseCvId,omitempty"`
}

// ToProfile strips credential fields for API responses.
func (u *User) ToProfile() *Profile {
	return &Profile{
		UserID:    u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
		BaseCVID:  u.BaseCVID,
	}
}

// AuthTokens is the ephemeral token pair returned after login, registration
// or refresh. It is never persisted.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"` // Seconds until the access token expires.
}

// TokenIdentity is the claims subset carried by both token kinds.
type TokenIdentity struct {
	UserID uuid.UUID
	Email  string
}
