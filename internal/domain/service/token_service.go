package service

import (
	"context"

	"tailor/internal/domain/entity"
)

// TokenService issues and verifies the signed access/refresh token pair.
// Both token kinds carry the same identity claims plus issuer, audience and
// expiry; only their lifetimes differ.
type TokenService interface {
	// IssueTokens signs a fresh access/refresh pair for the given identity.
	IssueTokens(ctx context.Context, identity entity.TokenIdentity) (*entity.AuthTokens, error)

	// IssueAccessToken signs a new access token only, as used by the
	// refresh flow. Returns the token and its lifetime in seconds.
	IssueAccessToken(ctx context.Context, identity entity.TokenIdentity) (token string, expiresIn int, err error)

	// VerifyAccessToken checks signature, issuer, audience and expiry.
	// Fails with domainerrors.ErrTokenExpired when only the expiry check
	// failed, domainerrors.ErrTokenInvalid otherwise.
	VerifyAccessToken(ctx context.Context, token string) (*entity.TokenIdentity, error)

	// VerifyRefreshToken applies the same checks to a refresh token.
	VerifyRefreshToken(ctx context.Context, token string) (*entity.TokenIdentity, error)
}
