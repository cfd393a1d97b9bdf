// This file defines the order lifecycle hooks the commerce engine
// calls when an order changes status. The hooks are idempotent: the
// engine may fire the same transition more than once and the
// reservation state on each line makes the replay a no-op.
package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/booking"
)

// HookHandler receives order status transitions.
type HookHandler struct {
    Svc *booking.Service
}

func NewHookHandler(svc *booking.Service) *HookHandler {
    return &HookHandler{Svc: svc}
}

// OrderFinalized handles POST /v1/hooks/orders/:id/finalized: payment
// settled, commit the seats every line has chosen.  Partial failures
// keep the successful lines reserved and come back as 409 so the
// engine can hold the order for staff review.
func (h *HookHandler) OrderFinalized(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if err := h.Svc.FinalizeOrder(ctx, id); err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"order_id": id, "result": "reserved"})
}

// OrderCancelled handles POST /v1/hooks/orders/:id/cancelled.
func (h *HookHandler) OrderCancelled(c echo.Context) error {
    return h.release(c, "order cancelled")
}

// OrderRefunded handles POST /v1/hooks/orders/:id/refunded.
func (h *HookHandler) OrderRefunded(c echo.Context) error {
    return h.release(c, "order refunded")
}

// OrderFailed handles POST /v1/hooks/orders/:id/failed.
func (h *HookHandler) OrderFailed(c echo.Context) error {
    return h.release(c, "payment failed")
}

func (h *HookHandler) release(c echo.Context, reason string) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if err := h.Svc.ReleaseOrder(ctx, id, reason); err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"order_id": id, "result": "released"})
}
