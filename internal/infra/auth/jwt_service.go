package auth

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"tailor/config"
	"tailor/internal/domain/entity"
	domainerrors "tailor/internal/domain/errors"
	"tailor/internal/domain/service"
)

// Token use markers. A refresh token is never accepted where an access
// token is expected, and vice versa.
const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// identityClaims is the claims set carried by both access and refresh tokens.
type identityClaims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	TokenUse string `json:"tokenUse"`
	jwt.RegisteredClaims
}

// jwtService implements service.TokenService with HMAC-signed JWTs. The
// signing secret is resolved through the secret provider on every operation
// so that rotation propagates within the provider's cache TTL.
type jwtService struct {
	secrets    service.SecretProvider
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTService is the constructor for jwtService. Lifetimes come from the
// compact duration specs in config ("1h", "7d").
func NewJWTService(cfg *config.Config, secrets service.SecretProvider) service.TokenService {
	return &jwtService{
		secrets:    secrets,
		issuer:     cfg.Token.Issuer,
		audience:   cfg.Token.Audience,
		accessTTL:  time.Duration(ParseExpiration(cfg.Token.AccessTTL)) * time.Second,
		refreshTTL: time.Duration(ParseExpiration(cfg.Token.RefreshTTL)) * time.Second,
	}
}

// ParseExpiration parses a compact duration spec (`\d+[smhd]`) into seconds.
// Unrecognized specs fall back to 3600s instead of erroring; existing
// deployments rely on this permissive behavior for malformed env values.
func ParseExpiration(spec string) int {
	match := expirationSpec.FindStringSubmatch(spec)
	if match == nil {
		return 3600
	}

	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 3600
	}

	switch match[2] {
	case "s":
		return value
	case "m":
		return value * 60
	case "h":
		return value * 3600
	case "d":
		return value * 86400
	default:
		return 3600
	}
}

var expirationSpec = regexp.MustCompile(`^(\d+)([smhd])$`)

// IssueTokens signs a fresh access/refresh pair for the given identity.
func (s *jwtService) IssueTokens(ctx context.Context, identity entity.TokenIdentity) (*entity.AuthTokens, error) {
	secret, err := s.secrets.Get(ctx, service.SecretJWTSigning)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch signing secret")
	}

	accessToken, err := s.sign(identity, s.accessTTL, secret, tokenUseAccess)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign access token")
	}

	refreshToken, err := s.sign(identity, s.refreshTTL, secret, tokenUseRefresh)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign refresh token")
	}

	return &entity.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL / time.Second),
	}, nil
}

// IssueAccessToken signs a new access token only, as used by the refresh flow.
func (s *jwtService) IssueAccessToken(ctx context.Context, identity entity.TokenIdentity) (string, int, error) {
	secret, err := s.secrets.Get(ctx, service.SecretJWTSigning)
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to fetch signing secret")
	}

	token, err := s.sign(identity, s.accessTTL, secret, tokenUseAccess)
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to sign access token")
	}

	return token, int(s.accessTTL / time.Second), nil
}

// VerifyAccessToken checks signature, issuer, audience, expiry and token use.
func (s *jwtService) VerifyAccessToken(ctx context.Context, token string) (*entity.TokenIdentity, error) {
	return s.verify(ctx, token, tokenUseAccess)
}

// VerifyRefreshToken applies the same checks to a refresh token.
func (s *jwtService) VerifyRefreshToken(ctx context.Context, token string) (*entity.TokenIdentity, error) {
	return s.verify(ctx, token, tokenUseRefresh)
}

func (s *jwtService) sign(identity entity.TokenIdentity, ttl time.Duration, secret, use string) (string, error) {
	now := time.Now()
	claims := identityClaims{
		UserID:   identity.UserID.String(),
		Email:    identity.Email,
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

func (s *jwtService) verify(ctx context.Context, tokenString, use string) (*entity.TokenIdentity, error) {
	secret, err := s.secrets.Get(ctx, service.SecretJWTSigning)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch signing secret")
	}

	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))

	if err != nil {
		// Expiry is the one verification failure callers may recover from
		// (by refreshing); every other failure collapses to TokenInvalid.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerrors.ErrTokenExpired.WrapMessage("access window elapsed")
		}

		return nil, domainerrors.ErrTokenInvalid.WrapMessage(err.Error())
	}
	if !token.Valid {
		return nil, domainerrors.ErrTokenInvalid.WrapMessage("token validation failed")
	}
	if claims.TokenUse != use {
		return nil, domainerrors.ErrTokenInvalid.WrapMessage("token presented outside its intended use")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, domainerrors.ErrTokenInvalid.WrapMessage("malformed userId claim")
	}

	return &entity.TokenIdentity{UserID: userID, Email: claims.Email}, nil
}
