package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/handler"
    "github.com/iliyamo/course-slot-booking/internal/middleware"
)

// RegisterHooks registers the order lifecycle hooks the commerce
// engine calls.  The engine authenticates like staff does, with an
// admin JWT, so a hook can never be forged from the outside.
func RegisterHooks(e *echo.Echo, h *handler.HookHandler, jwtSecret string) {
    g := e.Group(
        "/v1/hooks",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ADMIN"),
    )
    g.POST("/orders/:id/finalized", h.OrderFinalized)
    g.POST("/orders/:id/cancelled", h.OrderCancelled)
    g.POST("/orders/:id/refunded", h.OrderRefunded)
    g.POST("/orders/:id/failed", h.OrderFailed)
}
