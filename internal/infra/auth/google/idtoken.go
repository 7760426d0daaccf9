package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"

	domainerrors "tailor/internal/domain/errors"
	"tailor/internal/domain/service"
)

// signingKeyTTL bounds how long a fetched Google signing key is trusted
// before a re-read; Google rotates its key set on roughly a daily cycle.
const signingKeyTTL = time.Hour

// googleIDClaims is the subset of Google ID token payload fields we check.
type googleIDClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// VerifyIDToken validates a client-submitted Google ID token: RS256
// signature against Google's published signing keys, then issuer, audience,
// expiry and the verified-email flag. Tokens arrive straight from the
// client here, so the signature check is what keeps a fabricated payload
// from impersonating an account.
func (s *OAuthService) VerifyIDToken(_ context.Context, idToken string) (*service.FederatedIdentity, error) {
	if !s.Configured() {
		return nil, service.ErrFederationUnconfigured
	}

	claims := &googleIDClaims{}
	token, err := jwt.ParseWithClaims(idToken, claims, s.signingKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		s.logger.Warn("Google ID token rejected", slog.Any("error", err))

		return nil, domainerrors.ErrTokenInvalid.WrapMessage("invalid provider token")
	}
	if !token.Valid {
		return nil, domainerrors.ErrTokenInvalid.WrapMessage("invalid provider token")
	}

	if err := s.verifyTokenClaims(claims); err != nil {
		s.logger.Warn("Google ID token claims rejected", slog.Any("error", err))

		return nil, domainerrors.ErrTokenInvalid.WrapMessage("invalid provider token")
	}

	return &service.FederatedIdentity{
		ID:       claims.Subject,
		Email:    claims.Email,
		FullName: claims.Name,
		Verified: claims.EmailVerified,
	}, nil
}

// signingKey is the jwt keyfunc. It resolves the token's key id against the
// cached Google key set; a miss triggers a re-fetch through the cache loader.
func (s *OAuthService) signingKey(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("token has no key id")
	}

	item := s.signingKeys.Get(kid)
	if item == nil {
		return nil, errors.Errorf("no signing key for kid %q", kid)
	}

	return item.Value(), nil
}

func (s *OAuthService) verifyTokenClaims(claims *googleIDClaims) error {
	if claims.Issuer != "https://accounts.google.com" && claims.Issuer != "accounts.google.com" {
		return errors.Errorf("unexpected issuer %q", claims.Issuer)
	}

	audienceMatched := false
	for _, audience := range claims.Audience {
		if audience == s.clientID {
			audienceMatched = true

			break
		}
	}
	if !audienceMatched {
		return errors.New("audience mismatch")
	}

	if claims.Subject == "" || claims.Email == "" {
		return errors.New("token missing subject or email")
	}
	if !claims.EmailVerified {
		return errors.New("email not verified by provider")
	}

	return nil
}

// jwkSet mirrors the JWKS document published at the certs endpoint.
type jwkSet struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// newSigningKeyCache builds the kid -> public key cache. The loader fetches
// the whole key set on any miss and stores every key in it; concurrent
// misses collapse into one fetch.
func newSigningKeyCache(s *OAuthService) *ttlcache.Cache[string, *rsa.PublicKey] {
	loader := ttlcache.LoaderFunc[string, *rsa.PublicKey](
		func(cache *ttlcache.Cache[string, *rsa.PublicKey], kid string) *ttlcache.Item[string, *rsa.PublicKey] {
			keys, err := s.fetchSigningKeys()
			if err != nil {
				s.logger.Error("Failed to fetch Google signing keys", slog.Any("error", err))

				return nil
			}

			var requested *ttlcache.Item[string, *rsa.PublicKey]
			for id, key := range keys {
				item := cache.Set(id, key, ttlcache.DefaultTTL)
				if id == kid {
					requested = item
				}
			}

			return requested
		},
	)

	return ttlcache.New(
		ttlcache.WithTTL[string, *rsa.PublicKey](signingKeyTTL),
		ttlcache.WithDisableTouchOnHit[string, *rsa.PublicKey](),
		ttlcache.WithLoader[string, *rsa.PublicKey](ttlcache.NewSuppressedLoader[string, *rsa.PublicKey](loader, nil)),
	)
}

// fetchSigningKeys downloads and decodes the current JWKS document.
func (s *OAuthService) fetchSigningKeys() (map[string]*rsa.PublicKey, error) {
	resp, err := s.httpClient.Get(s.jwksURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch signing keys")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("signing key endpoint returned status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, errors.Wrap(err, "failed to decode signing keys")
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, key := range set.Keys {
		if key.Kty != "RSA" || key.Kid == "" {
			continue
		}

		modulus, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			continue
		}
		exponent, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			continue
		}

		keys[key.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(modulus),
			E: int(new(big.Int).SetBytes(exponent).Int64()),
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("signing key set contained no usable keys")
	}

	return keys, nil
}
