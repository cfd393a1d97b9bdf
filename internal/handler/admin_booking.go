// This file defines the staff booking endpoints: the per-slot booking
// report (JSON and CSV), the pending-deferred listing, and the two
// assignment operations staff perform on behalf of customers.
package handler

import (
    "context"
    "encoding/csv"
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/booking"
    "github.com/iliyamo/course-slot-booking/internal/model"
)

// AdminBookingHandler serves the staff-facing booking operations.
type AdminBookingHandler struct {
    Svc *booking.Service
}

func NewAdminBookingHandler(svc *booking.Service) *AdminBookingHandler {
    return &AdminBookingHandler{Svc: svc}
}

type bookingRow struct {
    OrderID       uint64 `json:"order_id"`
    ItemID        uint64 `json:"item_id"`
    CustomerName  string `json:"customer_name"`
    CustomerEmail string `json:"customer_email"`
    ProductName   string `json:"product_name"`
    Quantity      int    `json:"quantity"`
    OrderStatus   string `json:"order_status"`
    State         string `json:"state"`
}

func bookingRows(bs []model.SlotBooking) []bookingRow {
    out := make([]bookingRow, 0, len(bs))
    for _, b := range bs {
        out = append(out, bookingRow{
            OrderID:       b.OrderID,
            ItemID:        b.ItemID,
            CustomerName:  b.CustomerName,
            CustomerEmail: b.CustomerEmail,
            ProductName:   b.ProductName,
            Quantity:      b.Quantity,
            OrderStatus:   b.OrderStatus,
            State:         string(b.State),
        })
    }
    return out
}

// SlotBookings handles GET /v1/admin/slots/:id/bookings.
func (h *AdminBookingHandler) SlotBookings(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    rows, err := h.Svc.BookingsForSlot(c.Request().Context(), id)
    if err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": bookingRows(rows)})
}

// SlotBookingsCSV handles GET /v1/admin/slots/:id/bookings.csv and
// streams the attendee list as a spreadsheet-friendly download.
func (h *AdminBookingHandler) SlotBookingsCSV(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    rows, err := h.Svc.BookingsForSlot(c.Request().Context(), id)
    if err != nil {
        return domainError(c, err)
    }

    res := c.Response()
    res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
    res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=slot-%d-bookings.csv", id))
    res.WriteHeader(http.StatusOK)

    w := csv.NewWriter(res)
    if err := w.Write([]string{"order_id", "item_id", "customer_name", "customer_email", "product", "quantity", "order_status", "state"}); err != nil {
        return err
    }
    for _, b := range rows {
        rec := []string{
            strconv.FormatUint(b.OrderID, 10),
            strconv.FormatUint(b.ItemID, 10),
            b.CustomerName,
            b.CustomerEmail,
            b.ProductName,
            strconv.Itoa(b.Quantity),
            b.OrderStatus,
            string(b.State),
        }
        if err := w.Write(rec); err != nil {
            return err
        }
    }
    w.Flush()
    return w.Error()
}

// PendingBookings handles GET /v1/admin/pending-bookings: lines whose
// buyers deferred slot selection and still have none.
func (h *AdminBookingHandler) PendingBookings(c echo.Context) error {
    rows, err := h.Svc.PendingDeferred(c.Request().Context())
    if err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": bookingRows(rows)})
}

// AssignItem handles POST /v1/admin/orders/:order_id/items/:item_id/assign.
func (h *AdminBookingHandler) AssignItem(c echo.Context) error {
    orderID, err := pathID(c, "order_id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order_id"})
    }
    itemID, err := pathID(c, "item_id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item_id"})
    }
    var body struct {
        SlotID uint64 `json:"slot_id"`
        Qty    int    `json:"qty"`
    }
    if err := c.Bind(&body); err != nil || body.SlotID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot_id is required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    line, err := h.Svc.AdminAssign(ctx, orderID, itemID, body.SlotID, body.Qty)
    if err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "order_id": orderID,
        "item_id":  line.ID,
        "slot_id":  line.SlotID,
        "qty":      line.SlotQty,
        "state":    string(line.ReservationState),
    })
}

// ChangeItemSlot handles POST /v1/admin/orders/:order_id/items/:item_id/change-slot.
func (h *AdminBookingHandler) ChangeItemSlot(c echo.Context) error {
    orderID, err := pathID(c, "order_id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order_id"})
    }
    itemID, err := pathID(c, "item_id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item_id"})
    }
    var body struct {
        SlotID uint64 `json:"slot_id"`
    }
    if err := c.Bind(&body); err != nil || body.SlotID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot_id is required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    line, err := h.Svc.AdminChangeSlot(ctx, orderID, itemID, body.SlotID)
    if err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "order_id": orderID,
        "item_id":  line.ID,
        "slot_id":  line.SlotID,
        "qty":      line.SlotQty,
        "state":    string(line.ReservationState),
    })
}
