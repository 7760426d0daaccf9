package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deliverycontext "tailor/internal/delivery/context"
	domainerrors "tailor/internal/domain/errors"
)

func runIsolation(t *testing.T, method, target, body string, authenticated uuid.UUID, pathParams map[string]string) error {
	t.Helper()

	e := echo.New()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	c := e.NewContext(req, httptest.NewRecorder())
	for name, value := range pathParams {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}
	if authenticated != uuid.Nil {
		deliverycontext.SetIdentity(c, authenticated, "user@example.com")
	}

	next := func(c echo.Context) error { return nil }

	return NewIsolationMiddleware().IsolateUserData(next)(c)
}

func assertForbidden(t *testing.T, err error) {
	t.Helper()

	require.Error(t, err)
	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.ErrorCode())
}

func TestIsolation_PathParams(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	for _, param := range []string{"userId", "id"} {
		t.Run(param, func(t *testing.T) {
			err := runIsolation(t, http.MethodGet, "/", "", self, map[string]string{param: other.String()})
			assertForbidden(t, err)

			err = runIsolation(t, http.MethodGet, "/", "", self, map[string]string{param: self.String()})
			assert.NoError(t, err)
		})
	}
}

func TestIsolation_QueryParam(t *testing.T) {
	self := uuid.New()

	err := runIsolation(t, http.MethodGet, "/?userId="+uuid.NewString(), "", self, nil)
	assertForbidden(t, err)

	err = runIsolation(t, http.MethodGet, "/?userId="+self.String(), "", self, nil)
	assert.NoError(t, err)
}

func TestIsolation_JSONBody(t *testing.T) {
	self := uuid.New()

	err := runIsolation(t, http.MethodPost, "/", `{"userId":"`+uuid.NewString()+`"}`, self, nil)
	assertForbidden(t, err)

	err = runIsolation(t, http.MethodPost, "/", `{"userId":"`+self.String()+`"}`, self, nil)
	assert.NoError(t, err)

	// A body without userId is none of the gate's business.
	err = runIsolation(t, http.MethodPost, "/", `{"fullName":"New Name"}`, self, nil)
	assert.NoError(t, err)

	// Malformed JSON is left for the handler's binder to reject.
	err = runIsolation(t, http.MethodPost, "/", `{"userId":`, self, nil)
	assert.NoError(t, err)
}

func TestIsolation_BodyRemainsReadable(t *testing.T) {
	self := uuid.New()
	e := echo.New()

	body := `{"userId":"` + self.String() + `","fullName":"New Name"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	deliverycontext.SetIdentity(c, self, "user@example.com")

	var bound struct {
		FullName string `json:"fullName"`
	}
	next := func(c echo.Context) error { return c.Bind(&bound) }

	err := NewIsolationMiddleware().IsolateUserData(next)(c)
	require.NoError(t, err)
	assert.Equal(t, "New Name", bound.FullName, "handler must still be able to bind the body")
}

func TestIsolation_UnauthenticatedPassesThrough(t *testing.T) {
	err := runIsolation(t, http.MethodGet, "/?userId="+uuid.NewString(), "", uuid.Nil, nil)
	assert.NoError(t, err)
}
