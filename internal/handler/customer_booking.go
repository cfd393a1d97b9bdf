// This file defines the customer self-service booking endpoints.
// Customers have no accounts here: every request authenticates itself
// with the order id plus the billing email. Both endpoints sit behind
// the IP rate limiter so the order id space cannot be probed.
package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/booking"
    "github.com/iliyamo/course-slot-booking/internal/model"
)

// CustomerHandler serves the self-service lookup and assignment API.
type CustomerHandler struct {
    Svc *booking.Service
}

func NewCustomerHandler(svc *booking.Service) *CustomerHandler {
    return &CustomerHandler{Svc: svc}
}

type lookupReq struct {
    OrderID uint64 `json:"order_id"`
    Email   string `json:"email"`
}

type assignReq struct {
    OrderID uint64 `json:"order_id"`
    Email   string `json:"email"`
    ItemID  uint64 `json:"item_id"`
    SlotID  uint64 `json:"slot_id"`
}

// lineView is an order line as shown to its buyer.
type lineView struct {
    ItemID          uint64  `json:"item_id"`
    ProductID       uint64  `json:"product_id"`
    ProductName     string  `json:"product_name"`
    Quantity        int     `json:"quantity"`
    SlotID          *uint64 `json:"slot_id,omitempty"`
    State           string  `json:"state"`
    PendingDeferred bool    `json:"awaiting_slot_choice"`
}

func lineViews(lines []model.OrderLine) []lineView {
    out := make([]lineView, 0, len(lines))
    for _, l := range lines {
        out = append(out, lineView{
            ItemID:          l.ID,
            ProductID:       l.ProductID,
            ProductName:     l.ProductName,
            Quantity:        l.BookingQuantity(),
            SlotID:          l.SlotID,
            State:           string(l.ReservationState),
            PendingDeferred: l.PendingDeferred,
        })
    }
    return out
}

// Lookup handles POST /v1/bookings/lookup.
func (h *CustomerHandler) Lookup(c echo.Context) error {
    var req lookupReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.OrderID == 0 || strings.TrimSpace(req.Email) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id and email required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    order, err := h.Svc.CustomerLookup(ctx, req.OrderID, req.Email)
    if err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "order_id": order.ID,
        "status":   order.Status,
        "items":    lineViews(order.Lines),
    })
}

// Assign handles POST /v1/bookings/assign.  Only the first assignment
// of a line is allowed through here; moving an existing booking goes
// through staff.
func (h *CustomerHandler) Assign(c echo.Context) error {
    var req assignReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.OrderID == 0 || strings.TrimSpace(req.Email) == "" || req.ItemID == 0 || req.SlotID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id, email, item_id and slot_id required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    line, err := h.Svc.CustomerAssign(ctx, req.OrderID, req.Email, req.ItemID, req.SlotID)
    if err != nil {
        return domainError(c, err)
    }
    views := lineViews([]model.OrderLine{*line})
    return c.JSON(http.StatusOK, echo.Map{"item": views[0]})
}
