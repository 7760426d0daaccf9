// Package google implements the federation adapter against Google's OAuth
// endpoints. Both flows (authorization-code exchange and client-submitted
// ID tokens) resolve to the same verified identity shape.
package google

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"

	"tailor/config"
	domainerrors "tailor/internal/domain/errors"
	"tailor/internal/domain/service"
)

const (
	googleOAuthURL    = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"

	defaultScopes = "https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/userinfo.profile"

	exchangeTimeout = 15 * time.Second
)

// OAuthService handles Google federation operations. A service built from
// empty credentials stays in the unconfigured state and fails every call.
type OAuthService struct {
	clientID     string
	clientSecret string
	redirectURI  string
	scopes       string
	jwksURL      string
	signingKeys  *ttlcache.Cache[string, *rsa.PublicKey]
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewOAuthService is the constructor for the Google federation adapter.
func NewOAuthService(cfg *config.Config, logger *slog.Logger) service.OAuthService {
	svc := &OAuthService{
		httpClient: &http.Client{Timeout: exchangeTimeout},
		logger:     logger,
		scopes:     defaultScopes,
		jwksURL:    googleJWKSURL,
	}
	svc.signingKeys = newSigningKeyCache(svc)
	go svc.signingKeys.Start()

	if cfg.GoogleOAuth == nil {
		logger.Warn("Google federation credentials not configured, federation endpoints disabled")

		return svc
	}

	svc.clientID = cfg.GoogleOAuth.ClientID
	svc.clientSecret = cfg.GoogleOAuth.ClientSecret
	svc.redirectURI = cfg.GoogleOAuth.RedirectURI
	if cfg.GoogleOAuth.Scopes != "" {
		svc.scopes = cfg.GoogleOAuth.Scopes
	}
	if !svc.Configured() {
		logger.Warn("Google federation credentials incomplete, federation endpoints disabled")
	}

	return svc
}

// Configured reports whether the federation credentials are present.
func (s *OAuthService) Configured() bool {
	return s.clientID != "" && s.clientSecret != ""
}

// BuildAuthorizationURL constructs the Google authorization URL embedding
// the caller-supplied anti-forgery state parameter.
func (s *OAuthService) BuildAuthorizationURL(state string) (string, error) {
	if !s.Configured() {
		return "", service.ErrFederationUnconfigured
	}

	params := url.Values{}
	params.Set("client_id", s.clientID)
	params.Set("redirect_uri", s.redirectURI)
	params.Set("scope", s.scopes)
	params.Set("response_type", "code")
	params.Set("access_type", "offline")
	params.Set("state", state)

	return googleOAuthURL + "?" + params.Encode(), nil
}

// ExchangeCode exchanges a one-time authorization code for an access token
// and fetches the external profile with it.
func (s *OAuthService) ExchangeCode(ctx context.Context, code string) (*service.FederatedIdentity, error) {
	if !s.Configured() {
		return nil, service.ErrFederationUnconfigured
	}

	accessToken, err := s.exchangeCodeForToken(ctx, code)
	if err != nil {
		s.logger.Error("Google code exchange failed", slog.Any("error", err))

		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("failed to obtain access token from provider")
	}

	identity, err := s.fetchUserInfo(ctx, accessToken)
	if err != nil {
		s.logger.Error("Google profile fetch failed", slog.Any("error", err))

		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("failed to fetch profile from provider")
	}

	return identity, nil
}

// exchangeCodeForToken posts the code to the token endpoint.
func (s *OAuthService) exchangeCodeForToken(ctx context.Context, code string) (string, error) {
	data := url.Values{}
	data.Set("client_id", s.clientID)
	data.Set("client_secret", s.clientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", s.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "failed to create token exchange request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to exchange code for token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", errors.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", errors.Wrap(err, "failed to decode token response")
	}
	if tokenResponse.AccessToken == "" {
		return "", errors.New("token response contained no access token")
	}

	return tokenResponse.AccessToken, nil
}

// fetchUserInfo retrieves the external profile using an access token.
func (s *OAuthService) fetchUserInfo(ctx context.Context, accessToken string) (*service.FederatedIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user info request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user info")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("user info request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var googleUser struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		return nil, errors.Wrap(err, "failed to decode user info response")
	}

	if googleUser.ID == "" || googleUser.Email == "" || googleUser.Name == "" {
		return nil, errors.New("incomplete profile received from provider")
	}

	return &service.FederatedIdentity{
		ID:       googleUser.ID,
		Email:    googleUser.Email,
		FullName: googleUser.Name,
		Verified: googleUser.VerifiedEmail,
	}, nil
}
