// Package router defines how HTTP routes are registered for the API.
package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/handler"
    "github.com/iliyamo/course-slot-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance.  Currently it exposes only a health
// check, used by load balancers and monitoring to verify the service
// is up.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the staff authentication routes.  Login,
// refresh and logout live under /v1/auth without a session; /v1/me
// and account registration require a valid admin access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/login", a.Login)
    // Rotates the refresh token along with the access token.
    g.POST("/refresh", a.Refresh)
    // Logout accepts a refresh_token body or a bearer token; see the
    // handler for the two revocation modes.
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ADMIN"),
    )
    auth.GET("/me", a.Me)
    // Only an existing administrator can create another account.
    auth.POST("/auth/register", a.Register)
}
