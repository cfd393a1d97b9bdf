package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/handler"
    "github.com/iliyamo/course-slot-booking/internal/middleware"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
// All routes require a valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, slots *handler.AdminHandler, bookings *handler.AdminBookingHandler, jwtSecret string) {
    g := e.Group(
        "/v1/admin",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ADMIN"),
    )

    // ---- Slots ----
    g.POST("/slots", slots.CreateSlot)
    g.GET("/slots", slots.ListSlots)
    g.GET("/slots/:id", slots.GetSlot)
    g.PATCH("/slots/:id", slots.UpdateSlot)
    g.PUT("/slots/:id", slots.UpdateSlot) // alias for clients that send full objects
    g.DELETE("/slots/:id", slots.DeleteSlot)
    g.POST("/slots/:id/toggle", slots.ToggleSlot)

    // ---- Products ----
    g.GET("/products/:id/slots", slots.ProductSlots)
    g.POST("/products/:id/course-toggle", slots.ToggleCourse)

    // ---- Bookings ----
    g.GET("/slots/:id/bookings", bookings.SlotBookings)
    g.GET("/slots/:id/bookings.csv", bookings.SlotBookingsCSV)
    g.GET("/pending-bookings", bookings.PendingBookings)
    g.POST("/orders/:order_id/items/:item_id/assign", bookings.AssignItem)
    g.POST("/orders/:order_id/items/:item_id/change-slot", bookings.ChangeItemSlot)
}
