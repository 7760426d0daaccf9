package service

import "context"

// Secret keys known to the provider.
const (
	// SecretJWTSigning is the HMAC key used to sign access and refresh tokens.
	SecretJWTSigning = "jwt-signing"
)

// SecretProvider resolves named secrets from an external source with
// time-bounded caching. Concurrent fetches of the same key collapse into
// one in-flight load.
type SecretProvider interface {
	// Get returns the current value for the named secret.
	Get(ctx context.Context, key string) (string, error)

	// Invalidate drops any cached values so the next Get re-reads the source.
	Invalidate()
}
