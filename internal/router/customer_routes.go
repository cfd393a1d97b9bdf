package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/handler"
)

// RegisterCustomer registers the customer self-service endpoints.
// There is no customer login: each request carries the order id plus
// billing email and the handler verifies the pair.  The rate limiter
// wraps both routes so the order id space cannot be enumerated by
// hammering the lookup.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, ratelimit echo.MiddlewareFunc) {
    g := e.Group("/v1/bookings", ratelimit)
    g.POST("/lookup", h.Lookup)
    g.POST("/assign", h.Assign)
}
