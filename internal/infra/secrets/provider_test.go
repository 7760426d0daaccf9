package secrets

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailor/config"
	"tailor/internal/domain/service"
)

func newTestProvider(t *testing.T, secrets config.SecretsConfig) service.SecretProvider {
	t.Helper()

	if secrets.CacheTTL == 0 {
		secrets.CacheTTL = time.Minute
	}
	cfg := &config.Config{Secrets: secrets}

	return NewProvider(cfg, slog.New(slog.DiscardHandler))
}

func TestProvider_StaticSecret(t *testing.T) {
	provider := newTestProvider(t, config.SecretsConfig{JWTSecret: "static-secret"})

	value, err := provider.Get(context.Background(), service.SecretJWTSigning)
	require.NoError(t, err)
	assert.Equal(t, "static-secret", value)
}

func TestProvider_FileSourceWinsAndTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwt-secret")
	require.NoError(t, os.WriteFile(path, []byte("file-secret\n"), 0o600))

	provider := newTestProvider(t, config.SecretsConfig{
		JWTSecret:     "static-secret",
		JWTSecretFile: path,
	})

	value, err := provider.Get(context.Background(), service.SecretJWTSigning)
	require.NoError(t, err)
	assert.Equal(t, "file-secret", value)
}

func TestProvider_InvalidatePicksUpRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwt-secret")
	require.NoError(t, os.WriteFile(path, []byte("before"), 0o600))

	provider := newTestProvider(t, config.SecretsConfig{JWTSecretFile: path})

	value, err := provider.Get(context.Background(), service.SecretJWTSigning)
	require.NoError(t, err)
	assert.Equal(t, "before", value)

	require.NoError(t, os.WriteFile(path, []byte("after"), 0o600))

	// Still cached until an explicit invalidation.
	value, err = provider.Get(context.Background(), service.SecretJWTSigning)
	require.NoError(t, err)
	assert.Equal(t, "before", value)

	provider.Invalidate()

	value, err = provider.Get(context.Background(), service.SecretJWTSigning)
	require.NoError(t, err)
	assert.Equal(t, "after", value)
}

func TestProvider_UnknownKeyAndMissingConfig(t *testing.T) {
	provider := newTestProvider(t, config.SecretsConfig{JWTSecret: "x"})
	_, err := provider.Get(context.Background(), "no-such-secret")
	assert.Error(t, err)

	empty := newTestProvider(t, config.SecretsConfig{})
	_, err = empty.Get(context.Background(), service.SecretJWTSigning)
	assert.Error(t, err)
}
