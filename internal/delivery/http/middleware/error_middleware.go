package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"tailor/config"
	"tailor/internal/delivery/http/response"
	domainerrors "tailor/internal/domain/errors"
)

// ErrorMiddleware renders every error through the unified envelope. In
// production mode 500-class messages are masked.
type ErrorMiddleware struct {
	logger     *slog.Logger
	production bool
}

// NewErrorMiddleware creates the error handling middleware.
func NewErrorMiddleware(cfg *config.Config, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger:     logger,
		production: cfg.Env.Env == "production",
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler.
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		message := appErr.Message()
		details := appErr.Details()
		if m.production && appErr.HTTPCode() >= http.StatusInternalServerError {
			m.logger.Error("Internal error",
				slog.String("error", err.Error()),
				slog.String("path", c.Request().URL.Path),
				slog.String("method", c.Request().Method),
			)
			message = "Internal server error"
			details = ""
		}

		_ = response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), message, details)

		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if s, ok := httpErr.Message.(string); ok {
			message = s
		}

		_ = response.Error(c, httpErr.Code, "HTTP_ERROR", message, "")

		return
	}

	// Anything unclassified is an internal error. Log the cause, never
	// send it to the client in production.
	m.logger.Error("Unhandled error",
		slog.String("error", err.Error()),
		slog.String("path", c.Request().URL.Path),
		slog.String("method", c.Request().Method),
	)

	details := ""
	if !m.production {
		details = err.Error()
	}

	_ = response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", details)
}
