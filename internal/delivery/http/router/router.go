// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"tailor/internal/delivery/http/middleware"
	"tailor/internal/delivery/http/router/handler"
)

type RouterParams struct {
	fx.In

	AuthHandler         *handler.AuthHandler
	JobHandler          *handler.JobHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	IsolationMiddleware *middleware.IsolationMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler *handler.AuthHandler
	jobHandler  *handler.JobHandler
	auth        *middleware.AuthMiddleware
	rateLimit   *middleware.RateLimitMiddleware
	isolation   *middleware.IsolationMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler: params.AuthHandler,
		jobHandler:  params.JobHandler,
		auth:        params.AuthMiddleware,
		rateLimit:   params.RateLimitMiddleware,
		isolation:   params.IsolationMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application. Middleware
// on every route follows the gate order: authentication (where required),
// then rate limiting, then the isolation check.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", r.authHandler.Register, r.rateLimit.Limit)
		authGroup.POST("/login", r.authHandler.Login, r.rateLimit.Limit)
		authGroup.POST("/refresh", r.authHandler.Refresh)

		authGroup.GET("/profile", r.authHandler.GetProfile,
			r.auth.Authenticate, r.isolation.IsolateUserData)
		authGroup.PUT("/profile", r.authHandler.UpdateProfile,
			r.auth.Authenticate, r.isolation.IsolateUserData)

		authGroup.GET("/federation/start", r.authHandler.FederationStart)
		authGroup.GET("/federation/callback", r.authHandler.FederationCallback)
		authGroup.POST("/federation/token", r.authHandler.FederationToken)
	}

	jobGroup := e.Group("/job")
	{
		jobGroup.POST("/analyze", r.jobHandler.Analyze,
			r.auth.Authenticate, r.rateLimit.Limit, r.isolation.IsolateUserData)
	}
}
