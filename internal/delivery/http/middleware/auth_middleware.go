package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	deliverycontext "tailor/internal/delivery/context"
	domainerrors "tailor/internal/domain/errors"
	"tailor/internal/domain/service"
	"tailor/internal/infra/session"
	"tailor/internal/usecase"
)

// AuthMiddleware validates bearer tokens and resolves the account behind
// them. Expired and malformed tokens produce distinct error codes; a token
// whose account no longer exists produces 404.
type AuthMiddleware struct {
	tokenSvc service.TokenService
	authUc   usecase.AuthUsecase
	sessions *session.Store
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService, authUc usecase.AuthUsecase, sessions *session.Store) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, authUc: authUc, sessions: sessions}
}

// Authenticate is the mandatory variant: the request fails without a valid
// bearer token backed by a live account.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return err
		}

		if err := m.resolve(c, tokenString); err != nil {
			return err
		}

		return next(c)
	}
}

// OptionalAuthenticate resolves the identity when a valid bearer token is
// present but never fails the request: anonymous callers and callers with a
// bad or stale token proceed without an identity.
func (m *AuthMiddleware) OptionalAuthenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return next(c)
		}

		// A failed resolve leaves the request anonymous.
		_ = m.resolve(c, tokenString)

		return next(c)
	}
}

// resolve verifies the token, confirms the account still exists and records
// the identity on the request context.
func (m *AuthMiddleware) resolve(c echo.Context, tokenString string) error {
	identity, err := m.tokenSvc.VerifyAccessToken(c.Request().Context(), tokenString)
	if err != nil {
		return errors.WithStack(err)
	}

	user, err := m.authUc.ResolveUser(c.Request().Context(), identity.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	deliverycontext.SetIdentity(c, user.ID, user.Email)

	// Keep the browser session (if one exists) marked active.
	if cookie, cookieErr := c.Cookie(deliverycontext.SessionCookieName); cookieErr == nil && cookie.Value != "" {
		m.sessions.Touch(cookie.Value)
	}

	return nil
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", domainerrors.ErrUnauthorized.WrapMessage("missing authorization header")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || tokenString == "" {
		return "", domainerrors.ErrUnauthorized.WrapMessage("authorization header is not a bearer token")
	}

	return tokenString, nil
}
