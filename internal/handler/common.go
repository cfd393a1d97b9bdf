// Package handler exposes the HTTP surface: public availability
// browsing, customer self-service booking, the admin slot and booking
// endpoints, order lifecycle hooks and staff authentication.
package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/booking"
    "github.com/iliyamo/course-slot-booking/internal/ledger"
    "github.com/iliyamo/course-slot-booking/internal/repository"
)

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    return strconv.ParseUint(c.Param(name), 10, 64)
}

// domainError translates ledger/booking/repository errors into the
// JSON error responses the API promises.  Unknown errors become 500
// with a generic message so internals never leak.
func domainError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrSlotNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
    case errors.Is(err, repository.ErrOrderNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
    case errors.Is(err, repository.ErrLineNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "order item not found"})
    case errors.Is(err, repository.ErrProductNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
    case errors.Is(err, booking.ErrOrderAccessDenied):
        // Indistinguishable from an unknown order on purpose.
        return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found or email does not match"})
    case errors.Is(err, repository.ErrValidation):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "slot still has booked seats"})
    case errors.Is(err, ledger.ErrInsufficientCapacity):
        return c.JSON(http.StatusConflict, echo.Map{"error": "not enough seats available"})
    case errors.Is(err, booking.ErrSlotClosed):
        return c.JSON(http.StatusConflict, echo.Map{"error": "slot is closed"})
    case errors.Is(err, booking.ErrLeadTime):
        return c.JSON(http.StatusConflict, echo.Map{"error": "slot starts too soon to book"})
    case errors.Is(err, booking.ErrProductMismatch):
        return c.JSON(http.StatusConflict, echo.Map{"error": "slot belongs to a different product"})
    case errors.Is(err, booking.ErrNotCourseProduct):
        return c.JSON(http.StatusConflict, echo.Map{"error": "product does not take slot bookings"})
    case errors.Is(err, booking.ErrAlreadyAssigned):
        return c.JSON(http.StatusConflict, echo.Map{"error": "item already has a slot; contact staff to change it"})
    case errors.Is(err, booking.ErrNotPendingDeferred):
        return c.JSON(http.StatusConflict, echo.Map{"error": "item is not awaiting a slot choice; contact staff"})
    case errors.Is(err, booking.ErrNotReserved):
        return c.JSON(http.StatusConflict, echo.Map{"error": "item has no slot to change"})
    }
    var pf *booking.PartialFailure
    if errors.As(err, &pf) {
        failed := make([]echo.Map, 0, len(pf.Failed))
        for _, f := range pf.Failed {
            failed = append(failed, echo.Map{"item_id": f.ItemID, "slot_id": f.SlotID, "qty": f.Qty, "reason": f.Err.Error()})
        }
        return c.JSON(http.StatusConflict, echo.Map{
            "error":     "some items could not be reserved",
            "succeeded": pf.Succeeded,
            "failed":    failed,
        })
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
