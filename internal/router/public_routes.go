package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/handler"
)

// RegisterPublic registers the unauthenticated availability endpoints.
// cache is the response-cache middleware; availability is the hottest
// read path and a short TTL keeps date pickers cheap without letting
// remaining-seat counts go too stale.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
    g := e.Group("/v1", cache)
    // Dates with seats remaining for a course product.
    g.GET("/products/:id/available-dates", p.GetAvailableDates)
    // Slots on one of those dates, sold-out slots included.
    g.GET("/products/:id/slots", p.GetSlotsOnDate)
}
