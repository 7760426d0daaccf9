// Package context holds the typed accessors for request-scoped values shared
// between middleware and handlers.
package context

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// KeyUserID stores the authenticated user's id.
	KeyUserID ContextKey = "user_id"

	// KeyUserEmail stores the authenticated user's email.
	KeyUserEmail ContextKey = "user_email"

	// SessionCookieName is the cookie carrying the session id set by the
	// federation callback.
	SessionCookieName = "sid"
)

// SetIdentity records the authenticated identity on the request context.
func SetIdentity(c echo.Context, userID uuid.UUID, email string) {
	c.Set(string(KeyUserID), userID)
	c.Set(string(KeyUserEmail), email)
}

// GetUserID extracts the authenticated user's id. The second return is false
// when the request was not authenticated.
func GetUserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(string(KeyUserID)).(uuid.UUID)

	return id, ok
}

// GetUserEmail extracts the authenticated user's email.
func GetUserEmail(c echo.Context) (string, bool) {
	email, ok := c.Get(string(KeyUserEmail)).(string)

	return email, ok
}
