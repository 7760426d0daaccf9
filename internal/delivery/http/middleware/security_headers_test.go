package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applySecurityHeaders(t *testing.T, mutate func(*http.Request)) http.Header {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := SecurityHeaders(func(c echo.Context) error { return nil })(c)
	require.NoError(t, err)
	return rec.Header()
}

func TestSecurityHeaders(t *testing.T) {
	h := applySecurityHeaders(t, nil)

	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", h.Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.Empty(t, h.Get("Strict-Transport-Security"), "no HSTS on plain HTTP")
}

func TestSecurityHeaders_HSTSBehindProxy(t *testing.T) {
	h := applySecurityHeaders(t, func(req *http.Request) {
		req.Header.Set(echo.HeaderXForwardedProto, "https")
	})

	assert.Contains(t, h.Get("Strict-Transport-Security"), "max-age=")
}
