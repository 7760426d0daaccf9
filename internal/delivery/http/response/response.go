// Package response renders the unified API envelope. Success and error
// bodies both carry a top-level timestamp; error bodies repeat it inside the
// error object for clients that only read that part.
package response

import (
	"time"

	"github.com/labstack/echo/v4"
)

// Envelope is the unified API response structure.
type Envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// ErrorInfo is the error payload of a failed request.
type ErrorInfo struct {
	Code      string `json:"code"`    // Business error code, e.g. "USER_NOT_FOUND".
	Message   string `json:"message"` // User-friendly message.
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Success renders a successful response.
func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

// Error renders a failed response.
func Error(c echo.Context, statusCode int, errorCode, message, details string) error {
	ts := now()

	return c.JSON(statusCode, Envelope{
		Success: false,
		Error: &ErrorInfo{
			Code:      errorCode,
			Message:   message,
			Details:   details,
			Timestamp: ts,
		},
		Timestamp: ts,
	})
}
