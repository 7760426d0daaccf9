// Package secrets resolves signing material from an external source with
// TTL-bounded caching.
package secrets

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"

	"tailor/config"
	"tailor/internal/domain/service"
)

// provider implements service.SecretProvider on top of ttlcache. The
// suppressed loader collapses concurrent fetches of the same key into a
// single read of the source.
type provider struct {
	cache  *ttlcache.Cache[string, string]
	cfg    config.SecretsConfig
	logger *slog.Logger
}

// NewProvider is the constructor for the cached secret provider. Values are
// re-read from the source once the cache TTL elapses, so secret rotation
// propagates without a restart.
func NewProvider(cfg *config.Config, logger *slog.Logger) service.SecretProvider {
	p := &provider{
		cfg:    cfg.Secrets,
		logger: logger,
	}

	loader := ttlcache.LoaderFunc[string, string](
		func(cache *ttlcache.Cache[string, string], key string) *ttlcache.Item[string, string] {
			value, err := p.read(key)
			if err != nil {
				logger.Error("Failed to load secret", slog.String("key", key), slog.Any("error", err))

				return nil
			}

			return cache.Set(key, value, ttlcache.DefaultTTL)
		},
	)

	p.cache = ttlcache.New(
		ttlcache.WithTTL[string, string](cfg.Secrets.CacheTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
		ttlcache.WithLoader[string, string](ttlcache.NewSuppressedLoader[string, string](loader, nil)),
	)
	go p.cache.Start()

	return p
}

// Get returns the current value for the named secret.
func (p *provider) Get(_ context.Context, key string) (string, error) {
	item := p.cache.Get(key)
	if item == nil {
		return "", errors.Errorf("secret %q is not available", key)
	}

	return item.Value(), nil
}

// Invalidate drops all cached values so the next Get re-reads the source.
func (p *provider) Invalidate() {
	p.cache.DeleteAll()
}

// read resolves a secret from its configured source. A file source wins over
// the static value so deployments can mount rotated credentials.
func (p *provider) read(key string) (string, error) {
	if key != service.SecretJWTSigning {
		return "", errors.Errorf("unknown secret key %q", key)
	}

	if p.cfg.JWTSecretFile != "" {
		raw, err := os.ReadFile(p.cfg.JWTSecretFile)
		if err != nil {
			return "", errors.Wrap(err, "failed to read secret file")
		}

		return strings.TrimSpace(string(raw)), nil
	}

	if p.cfg.JWTSecret == "" {
		return "", errors.New("jwt signing secret is not configured")
	}

	return p.cfg.JWTSecret, nil
}
