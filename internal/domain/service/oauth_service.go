package service

import (
	"context"
	"errors"
)

// ErrFederationUnconfigured is returned by every adapter operation when no
// federation credentials are available.
var ErrFederationUnconfigured = errors.New("federation provider is not configured")

// FederatedIdentity is the verified profile returned by the identity provider.
type FederatedIdentity struct {
	ID       string // Provider-specific subject id (e.g. Google's 'sub' claim).
	Email    string
	FullName string
	Verified bool // Whether the provider vouches for the email address.
}

// OAuthService is the federation adapter: it turns an authorization code or
// a client-submitted ID token into a verified identity. Implementations for
// an unconfigured provider fail every call with ErrFederationUnconfigured.
type OAuthService interface {
	// Configured reports whether federation credentials are present.
	Configured() bool

	// BuildAuthorizationURL returns the provider redirect target embedding
	// the caller-supplied anti-forgery state token. The caller verifies the
	// returned state matches what it issued.
	BuildAuthorizationURL(state string) (string, error)

	// ExchangeCode exchanges a one-time authorization code for an access
	// token and fetches the external profile with it.
	ExchangeCode(ctx context.Context, code string) (*FederatedIdentity, error)

	// VerifyIDToken validates a client-submitted identity token locally
	// (signature shape, issuer, audience, expiry) without a code exchange.
	VerifyIDToken(ctx context.Context, idToken string) (*FederatedIdentity, error)
}
