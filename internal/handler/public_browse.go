// This file defines the public availability API. These routes let
// unauthenticated buyers browse bookable dates and slots for a course
// product. Internal counters (capacity, booked) are filtered from
// responses; buyers only see how many seats remain.
package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/ledger"
    "github.com/iliyamo/course-slot-booking/internal/repository"
)

// PublicHandler serves unauthenticated availability browsing.
type PublicHandler struct {
    Ledger   *ledger.Ledger
    Products *repository.ProductRepo
}

func NewPublicHandler(l *ledger.Ledger, products *repository.ProductRepo) *PublicHandler {
    return &PublicHandler{Ledger: l, Products: products}
}

// PublicSlot is a slot as exposed to buyers.
type PublicSlot struct {
    ID        uint64     `json:"id"`
    StartAt   time.Time  `json:"start_at"`
    EndAt     *time.Time `json:"end_at,omitempty"`
    Remaining int        `json:"remaining"`
    SoldOut   bool       `json:"sold_out"`
}

// courseProduct loads the product and checks it takes slot bookings.
// When ok is false the response has already been written.
func (h *PublicHandler) courseProduct(c echo.Context) (id uint64, ok bool, err error) {
    id, perr := pathID(c, "id")
    if perr != nil {
        return 0, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
    }
    if h.Products != nil {
        p, gerr := h.Products.GetByID(c.Request().Context(), id)
        if gerr != nil {
            return 0, false, domainError(c, gerr)
        }
        if !p.CourseEnabled {
            return 0, false, c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
        }
    }
    return id, true, nil
}

// GetAvailableDates handles GET /v1/products/:id/available-dates.
// The response lists the calendar dates that still have seats,
// already filtered by the lead-time window.
func (h *PublicHandler) GetAvailableDates(c echo.Context) error {
    productID, ok, err := h.courseProduct(c)
    if !ok {
        return err
    }
    dates, err := h.Ledger.AvailableDates(c.Request().Context(), productID)
    if err != nil {
        return domainError(c, err)
    }
    if dates == nil {
        dates = []string{}
    }
    return c.JSON(http.StatusOK, echo.Map{"dates": dates})
}

// GetSlotsOnDate handles GET /v1/products/:id/slots?date=YYYY-MM-DD.
// Sold-out slots are included so the UI can render them disabled.
func (h *PublicHandler) GetSlotsOnDate(c echo.Context) error {
    productID, ok, err := h.courseProduct(c)
    if !ok {
        return err
    }
    date := c.QueryParam("date")
    if date == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
    }
    slots, err := h.Ledger.SlotsOnDate(c.Request().Context(), productID, date)
    if err != nil {
        if err == repository.ErrValidation {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
        }
        return domainError(c, err)
    }
    out := make([]PublicSlot, 0, len(slots))
    for _, s := range slots {
        out = append(out, PublicSlot{
            ID:        s.ID,
            StartAt:   s.StartAt,
            EndAt:     s.EndAt,
            Remaining: s.Remaining(),
            SoldOut:   s.Remaining() == 0,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}
