package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	deliverycontext "tailor/internal/delivery/context"
	domainerrors "tailor/internal/domain/errors"
)

// maxIsolationBodyPeek bounds how much of a request body the isolation
// check will buffer looking for a userId field.
const maxIsolationBodyPeek = 1 << 20

// IsolationMiddleware rejects any request that names a user other than the
// authenticated one, wherever the identifier appears: path parameters,
// query string or JSON body. It must run after Authenticate.
type IsolationMiddleware struct{}

// NewIsolationMiddleware is the constructor for IsolationMiddleware.
func NewIsolationMiddleware() *IsolationMiddleware {
	return &IsolationMiddleware{}
}

// IsolateUserData is the middleware function.
func (m *IsolationMiddleware) IsolateUserData(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := deliverycontext.GetUserID(c)
		if !ok {
			// Nothing to isolate on unauthenticated routes.
			return next(c)
		}

		self := userID.String()

		for _, param := range []string{"userId", "id"} {
			if value := c.Param(param); value != "" && value != self {
				return domainerrors.ErrForbidden.WrapMessage("path parameter names another user")
			}
		}

		if value := c.QueryParam("userId"); value != "" && value != self {
			return domainerrors.ErrForbidden.WrapMessage("query parameter names another user")
		}

		bodyUserID, err := peekBodyUserID(c)
		if err != nil {
			return err
		}
		if bodyUserID != "" && bodyUserID != self {
			return domainerrors.ErrForbidden.WrapMessage("request body names another user")
		}

		return next(c)
	}
}

// peekBodyUserID reads a JSON body looking for a top-level userId field and
// restores the body so binding still works downstream. Non-JSON bodies and
// malformed JSON are left for the handler to reject.
func peekBodyUserID(c echo.Context) (string, error) {
	req := c.Request()
	if req.Body == nil {
		return "", nil
	}
	if !strings.Contains(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return "", nil
	}

	raw, err := io.ReadAll(io.LimitReader(req.Body, maxIsolationBodyPeek))
	if err != nil {
		return "", errors.Wrap(err, "failed to read request body")
	}
	// Stitch the peeked prefix back onto whatever remains unread.
	req.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(raw), req.Body), req.Body}

	var probe struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", nil
	}

	return probe.UserID, nil
}
