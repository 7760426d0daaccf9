package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	deliverycontext "tailor/internal/delivery/context"
	domainerrors "tailor/internal/domain/errors"
	"tailor/internal/infra/ratelimit"
)

// RateLimitMiddleware applies the configured fixed-window rule of the
// matched route. Routes without a rule pass through untouched.
type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
}

// NewRateLimitMiddleware is the constructor for RateLimitMiddleware.
func NewRateLimitMiddleware(limiter *ratelimit.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit counts the request against its endpoint window. It must run after
// Authenticate on routes whose rule keys by user.
func (m *RateLimitMiddleware) Limit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		endpoint := c.Request().Method + ":" + c.Path()

		rule, ok := m.limiter.Rule(endpoint)
		if !ok {
			return next(c)
		}

		decision, _ := m.limiter.Allow(endpoint, m.keyFor(c, rule.KeyBy))
		writeLimitHeaders(c, decision)

		if !decision.Allowed {
			c.Response().Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds()))

			return domainerrors.ErrTooManyRequests.WrapMessage("rate limit exceeded for " + endpoint)
		}

		return next(c)
	}
}

// keyFor picks the counting key: the authenticated identity where available
// and requested, the client address otherwise.
func (m *RateLimitMiddleware) keyFor(c echo.Context, keyBy string) string {
	if keyBy == "user" {
		if userID, ok := deliverycontext.GetUserID(c); ok {
			return "user:" + userID.String()
		}
	}

	return "ip:" + c.RealIP()
}

func writeLimitHeaders(c echo.Context, decision ratelimit.Decision) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.UnixMilli(), 10))
}
