package router

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailor/config"
	"tailor/internal/delivery/http/middleware"
	"tailor/internal/delivery/http/router/handler"
	"tailor/internal/delivery/http/validator"
	"tailor/internal/infra/auth"
	"tailor/internal/infra/auth/google"
	"tailor/internal/infra/persistence/memory"
	"tailor/internal/infra/ratelimit"
	"tailor/internal/infra/scraper"
	"tailor/internal/infra/secrets"
	"tailor/internal/infra/session"
	"tailor/internal/usecase"
)

// envelope mirrors the wire format of every response for assertions.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Timestamp string `json:"timestamp"`
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Env.Env = "test"
	cfg.Auth = &config.AuthConfig{BcryptCost: 4}
	cfg.Secrets.JWTSecret = "integration-test-signing-secret"
	cfg.Token = config.TokenConfig{
		Issuer:     "tailor",
		Audience:   "tailor-api",
		AccessTTL:  "1h",
		RefreshTTL: "7d",
	}
	cfg.Scraper = config.ScraperConfig{
		FetchTimeout:     5 * time.Second,
		MaxBodyBytes:     2 << 20,
		MinContentLength: 100,
		MaxURLLength:     2048,
	}
	cfg.Session = config.SessionConfig{
		MaxIdle:       30 * time.Minute,
		SweepInterval: time.Minute,
	}
	cfg.RateLimit = config.DefaultRateLimits()
	return cfg
}

// newTestApp wires the whole HTTP stack against in-memory infrastructure,
// mirroring the production composition without the Fx container.
func newTestApp(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	users := memory.NewUserRepository()
	tokens := auth.NewJWTService(cfg, secrets.NewProvider(cfg, logger))
	hasher := auth.NewBcryptHasher(cfg)
	sessions := session.NewStore(cfg, logger)

	authUc := usecase.NewAuthService(users, hasher, tokens, logger)
	jobUc := usecase.NewJobService(scraper.NewJobScraper(cfg, logger), logger)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = middleware.NewErrorMiddleware(cfg, logger).HandleHTTPError
	e.Use(middleware.SecurityHeaders)

	NewRouter(RouterParams{
		AuthHandler:         handler.NewAuthHandler(authUc, google.NewOAuthService(cfg, logger), sessions, cfg, logger),
		JobHandler:          handler.NewJobHandler(jobUc, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(tokens, authUc, sessions),
		RateLimitMiddleware: middleware.NewRateLimitMiddleware(ratelimit.NewLimiter(cfg.RateLimit)),
		IsolationMiddleware: middleware.NewIsolationMiddleware(),
	}).RegisterRoutes(e)

	return e
}

func doJSON(e *echo.Echo, method, target, body, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

// registerUser creates an account and returns its token pair.
func registerUser(t *testing.T, e *echo.Echo, email string) (accessToken, refreshToken string) {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":"s3cret-pass","fullName":"Test User"}`, email)
	rec := doJSON(e, http.MethodPost, "/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var data struct {
		Tokens struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"tokens"`
	}
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Tokens.AccessToken)
	return data.Tokens.AccessToken, data.Tokens.RefreshToken
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	e := newTestApp(t, newTestConfig())

	rec := doJSON(e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Timestamp)
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	e := newTestApp(t, newTestConfig())

	registerUser(t, e, "Flow@Example.com")

	// Emails are case-sensitive as stored; a lowercased form is unknown.
	rec := doJSON(e, http.MethodPost, "/auth/login",
		`{"email":"flow@example.com","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodPost, "/auth/login",
		`{"email":"Flow@Example.com","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		Tokens struct {
			AccessToken string `json:"accessToken"`
			ExpiresIn   int    `json:"expiresIn"`
		} `json:"tokens"`
	}
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, "Flow@Example.com", login.User.Email)
	assert.Equal(t, 3600, login.Tokens.ExpiresIn)

	rec = doJSON(e, http.MethodGet, "/auth/profile", "", login.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodPut, "/auth/profile",
		`{"fullName":"Renamed User"}`, login.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Renamed User")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e := newTestApp(t, newTestConfig())

	registerUser(t, e, "dup@example.com")

	rec := doJSON(e, http.MethodPost, "/auth/register",
		`{"email":"dup@example.com","password":"another-pass","fullName":"Second"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.False(t, env.Success)
	assert.Equal(t, "USER_ALREADY_EXISTS", env.Error.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	e := newTestApp(t, newTestConfig())

	rec := doJSON(e, http.MethodGet, "/auth/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	rec = doJSON(e, http.MethodPost, "/job/analyze", `{"url":"https://example.com"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodGet, "/auth/profile", "", "not.a.token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "TOKEN_INVALID", env.Error.Code)
}

func TestLoginRateLimitPerIP(t *testing.T) {
	e := newTestApp(t, newTestConfig())

	var limited *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		rec := doJSON(e, http.MethodPost, "/auth/login",
			`{"email":"nobody@example.com","password":"wrong-pass"}`, "")
		if i < 5 {
			require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i)
			assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
		} else {
			limited = rec
		}
	}

	require.NotNil(t, limited)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.Equal(t, "0", limited.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, limited.Header().Get("X-RateLimit-Reset"))

	env := decodeEnvelope(t, limited)
	require.NotNil(t, env.Error)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Error.Code)
}

func TestJobAnalyzeEndToEnd(t *testing.T) {
	page := `<html><head><title>Posting</title></head><body>
		<h1 class="job-title">Senior Backend Engineer</h1>
		<div class="company-name">Acme Corp</div>
		<div class="job-description">` +
		strings.Repeat("Design and operate distributed systems in Go. ", 10) +
		`</div></body></html>`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	defer upstream.Close()

	e := newTestApp(t, newTestConfig())
	access, _ := registerUser(t, e, "analyst@example.com")

	rec := doJSON(e, http.MethodPost, "/job/analyze",
		fmt.Sprintf(`{"url":%q}`, upstream.URL+"/postings/42?utm_source=feed"), access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var analysis struct {
		JobID   string `json:"jobId"`
		URL     string `json:"url"`
		Title   string `json:"title"`
		Company string `json:"company"`
	}
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, &analysis))
	assert.NotEmpty(t, analysis.JobID)
	assert.Equal(t, "Senior Backend Engineer", analysis.Title)
	assert.Equal(t, "Acme Corp", analysis.Company)
	assert.NotContains(t, analysis.URL, "utm_source")

	// The analyze window allows a single request, so an immediate retry
	// is throttled before any fetch happens.
	rec = doJSON(e, http.MethodPost, "/job/analyze",
		fmt.Sprintf(`{"url":%q}`, upstream.URL+"/postings/42"), access)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestJobAnalyzeRejectsBadURL(t *testing.T) {
	e := newTestApp(t, newTestConfig())
	access, _ := registerUser(t, e, "badurl@example.com")

	rec := doJSON(e, http.MethodPost, "/job/analyze",
		`{"url":"ftp://files.example.com/job.txt"}`, access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_URL", env.Error.Code)
}

func TestRefreshFlow(t *testing.T) {
	e := newTestApp(t, newTestConfig())
	_, refresh := registerUser(t, e, "refresh@example.com")

	rec := doJSON(e, http.MethodPost, "/auth/refresh",
		fmt.Sprintf(`{"refreshToken":%q}`, refresh), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int    `json:"expiresIn"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.AccessToken)
	assert.Equal(t, 3600, out.ExpiresIn)

	rec = doJSON(e, http.MethodGet, "/auth/profile", "", out.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	// An access token is not accepted in place of a refresh token.
	access, _ := registerUser(t, e, "refresh2@example.com")
	rec = doJSON(e, http.MethodPost, "/auth/refresh",
		fmt.Sprintf(`{"refreshToken":%q}`, access), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileIsolation(t *testing.T) {
	e := newTestApp(t, newTestConfig())

	accessA, _ := registerUser(t, e, "alice@example.com")
	accessB, _ := registerUser(t, e, "bob@example.com")

	// Fish Bob's id out of his own profile.
	rec := doJSON(e, http.MethodGet, "/auth/profile", "", accessB)
	require.Equal(t, http.StatusOK, rec.Code)
	var bob struct {
		UserID string `json:"userId"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &bob))

	rec = doJSON(e, http.MethodGet, "/auth/profile?userId="+bob.UserID, "", accessA)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	rec = doJSON(e, http.MethodPut, "/auth/profile",
		fmt.Sprintf(`{"userId":%q,"fullName":"Hijacked"}`, bob.UserID), accessA)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFederationUnconfigured(t *testing.T) {
	e := newTestApp(t, newTestConfig())

	rec := doJSON(e, http.MethodGet, "/auth/federation/start", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)

	rec = doJSON(e, http.MethodPost, "/auth/federation/token",
		`{"idToken":"anything"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFederationStartRedirect(t *testing.T) {
	cfg := newTestConfig()
	cfg.GoogleOAuth = &config.GoogleOAuthConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://localhost:8080/auth/federation/callback",
	}
	e := newTestApp(t, cfg)

	rec := doJSON(e, http.MethodGet, "/auth/federation/start?state=abc123", "", "")
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	location := rec.Header().Get(echo.HeaderLocation)
	assert.Contains(t, location, "accounts.google.com")
	assert.Contains(t, location, "client_id=test_client_id")
	assert.Contains(t, location, "state=abc123")
}
