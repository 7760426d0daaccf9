// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"tailor/config"
	deliverycontext "tailor/internal/delivery/context"
	"tailor/internal/delivery/http/response"
	domainerrors "tailor/internal/domain/errors"
	"tailor/internal/domain/service"
	"tailor/internal/infra/session"
	"tailor/internal/usecase"
)

// AuthHandler holds dependencies for account and federation handlers.
type AuthHandler struct {
	uc       usecase.AuthUsecase
	oauth    service.OAuthService
	sessions *session.Store
	cfg      *config.Config
	logger   *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(
	uc usecase.AuthUsecase,
	oauth service.OAuthService,
	sessions *session.Store,
	cfg *config.Config,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		uc:       uc,
		oauth:    oauth,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	FullName string `json:"fullName" validate:"required,min=1,max=100"`
}

// Register handles the account registration request.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return domainerrors.ErrValidation.WrapMessage("invalid registration input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.Register(c.Request().Context(), usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, map[string]any{
		"user":   output.User,
		"tokens": output.Tokens,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles the local login request.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return domainerrors.ErrValidation.WrapMessage("invalid login input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.Login(c.Request().Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"user":   output.User,
		"tokens": output.Tokens,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return domainerrors.ErrValidation.WrapMessage("invalid refresh input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"accessToken": output.AccessToken,
		"expiresIn":   output.ExpiresIn,
	})
}

// GetProfile returns the authenticated account's profile.
func (h *AuthHandler) GetProfile(c echo.Context) error {
	userID, err := authenticatedUserID(c)
	if err != nil {
		return err
	}

	profile, err := h.uc.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, profile)
}

type updateProfileRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// UpdateProfile applies partial changes to the authenticated account.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, err := authenticatedUserID(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return domainerrors.ErrValidation.WrapMessage("invalid profile input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	profile, err := h.uc.UpdateProfile(c.Request().Context(), userID, usecase.UpdateProfileInput{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, profile)
}

// FederationStart redirects the browser to the external authorization URL.
func (h *AuthHandler) FederationStart(c echo.Context) error {
	if !h.oauth.Configured() {
		return domainerrors.ErrServiceUnavailable.WrapMessage("federation is not configured")
	}

	state := c.QueryParam("state")
	if state == "" {
		state = uuid.NewString()
	}

	authURL, err := h.oauth.BuildAuthorizationURL(state)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// FederationCallback completes the authorization-code flow: exchange the
// code, reconcile the account, start a session and send the browser back to
// the frontend.
func (h *AuthHandler) FederationCallback(c echo.Context) error {
	if !h.oauth.Configured() {
		return domainerrors.ErrServiceUnavailable.WrapMessage("federation is not configured")
	}

	code := c.QueryParam("code")
	if code == "" {
		return domainerrors.ErrValidation.WrapMessage("authorization code is required")
	}

	identity, err := h.oauth.ExchangeCode(c.Request().Context(), code)
	if err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.HandleFederatedLogin(c.Request().Context(), identity)
	if err != nil {
		return errors.WithStack(err)
	}

	sessionID := h.sessions.Create(output.User.UserID, output.User.Email)
	c.SetCookie(&http.Cookie{
		Name:     deliverycontext.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	redirectTo := h.cfg.HTTP.FrontendOrigin
	if redirectTo == "" {
		redirectTo = "/"
	}
	// Tokens travel in the fragment so they never hit server logs.
	redirectTo += "#" + url.Values{
		"accessToken":  {output.Tokens.AccessToken},
		"refreshToken": {output.Tokens.RefreshToken},
		"isNewUser":    {boolString(output.IsNewUser)},
	}.Encode()

	return c.Redirect(http.StatusFound, redirectTo)
}

type federationTokenRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FederationToken completes the client-side flow where the app already holds
// a provider ID token.
func (h *AuthHandler) FederationToken(c echo.Context) error {
	if !h.oauth.Configured() {
		return domainerrors.ErrServiceUnavailable.WrapMessage("federation is not configured")
	}

	var req federationTokenRequest
	if err := c.Bind(&req); err != nil {
		return domainerrors.ErrValidation.WrapMessage("invalid federation input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	identity, err := h.oauth.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.HandleFederatedLogin(c.Request().Context(), identity)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"user":      output.User,
		"tokens":    output.Tokens,
		"isNewUser": output.IsNewUser,
	})
}

func authenticatedUserID(c echo.Context) (uuid.UUID, error) {
	userID, ok := deliverycontext.GetUserID(c)
	if !ok {
		return uuid.Nil, domainerrors.ErrUnauthorized.WrapMessage("no authenticated identity on request")
	}

	return userID, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}

	return "false"
}
