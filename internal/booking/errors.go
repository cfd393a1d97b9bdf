package booking

import (
    "errors"
    "fmt"
    "strings"
)

// ErrSlotClosed means the target slot is not accepting reservations.
var ErrSlotClosed = errors.New("slot is closed")

// ErrLeadTime means the slot starts sooner than the booking window allows.
var ErrLeadTime = errors.New("slot starts within the minimum lead time")

// ErrProductMismatch means the slot belongs to a different product
// than the order line being assigned.
var ErrProductMismatch = errors.New("slot belongs to a different product")

// ErrNotCourseProduct means the line's product does not participate
// in slot booking.
var ErrNotCourseProduct = errors.New("product is not course-enabled")

// ErrAlreadyAssigned means the line already has a slot; customers
// must ask staff to move an existing booking.
var ErrAlreadyAssigned = errors.New("line already has a slot assigned")

// ErrNotPendingDeferred means the line never deferred its slot
// choice, so self-service cannot assign it; only lines the buyer
// explicitly postponed at checkout are theirs to finish.
var ErrNotPendingDeferred = errors.New("line is not awaiting a slot choice")

// ErrNotReserved means a move was requested for a line whose seats
// are not currently reserved.
var ErrNotReserved = errors.New("line has no active reservation")

// ErrOrderAccessDenied covers both an unknown order id and a billing
// email mismatch.  The two cases are deliberately indistinguishable
// so the lookup endpoint cannot be used to enumerate order ids.
var ErrOrderAccessDenied = errors.New("order not found or email does not match")

// LineFailure records why one line of a bulk reservation failed.
type LineFailure struct {
    ItemID uint64
    SlotID uint64
    Qty    int
    Err    error
}

// PartialFailure is returned when a bulk reservation could not
// reserve every line.  Reservations that succeeded are kept — the
// commerce engine is expected to block the order and let staff
// resolve the failed lines, not to roll the siblings back.
type PartialFailure struct {
    OrderID   uint64
    Succeeded []uint64 // item ids whose seats were reserved
    Failed    []LineFailure
}

func (e *PartialFailure) Error() string {
    parts := make([]string, 0, len(e.Failed))
    for _, f := range e.Failed {
        parts = append(parts, fmt.Sprintf("item %d (slot %d x%d): %v", f.ItemID, f.SlotID, f.Qty, f.Err))
    }
    return fmt.Sprintf("order %d: %d of %d lines failed to reserve: %s",
        e.OrderID, len(e.Failed), len(e.Failed)+len(e.Succeeded), strings.Join(parts, "; "))
}
