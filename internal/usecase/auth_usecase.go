// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"tailor/internal/domain/entity"
	"tailor/internal/domain/service"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput carries the mutable profile fields. Nil pointers mean
// "leave unchanged".
type UpdateProfileInput struct {
	FullName *string
	Email    *string
}

// --- Output DTOs ---

// AuthOutput returns the account projection and a fresh token pair.
type AuthOutput struct {
	User   *entity.Profile
	Tokens *entity.AuthTokens
}

// RefreshOutput returns the replacement access token from a refresh.
type RefreshOutput struct {
	AccessToken string
	ExpiresIn   int
}

// FederatedLoginOutput additionally reports whether the account was created
// by this login.
type FederatedLoginOutput struct {
	User      *entity.Profile
	Tokens    *entity.AuthTokens
	IsNewUser bool
}

// AuthUsecase defines the interface for account and token business
// operations. This is the contract that the delivery layer depends on.
type AuthUsecase interface {
	// Register creates a local account. Of two concurrent registrations for
	// the same email exactly one succeeds; the other observes the conflict.
	Register(ctx context.Context, input RegisterInput) (*AuthOutput, error)

	// Login verifies the password of a local account. Unknown accounts and
	// wrong passwords are indistinguishable to the caller.
	Login(ctx context.Context, input LoginInput) (*AuthOutput, error)

	// Refresh exchanges a valid refresh token for a new access token. The
	// account must still exist.
	Refresh(ctx context.Context, refreshToken string) (*RefreshOutput, error)

	// GetProfile returns the credential-free account projection.
	GetProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)

	// UpdateProfile applies the provided field changes.
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*entity.Profile, error)

	// HandleFederatedLogin reconciles a verified external identity with the
	// user directory: create a federated account, link onto an existing
	// local one, or reuse a previously linked account. A fresh token pair
	// is issued in all three cases.
	HandleFederatedLogin(ctx context.Context, identity *service.FederatedIdentity) (*FederatedLoginOutput, error)

	// ResolveUser confirms the account behind a verified token still
	// exists, for the authentication middleware.
	ResolveUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)
}
