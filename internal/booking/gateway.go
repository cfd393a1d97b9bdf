package booking

import (
    "context"
    "crypto/subtle"
    "errors"
    "strings"

    "github.com/iliyamo/course-slot-booking/internal/model"
    "github.com/iliyamo/course-slot-booking/internal/repository"
)

// AdminAssign points an unassigned line at a slot on behalf of staff.
// Staff may book into closed slots and inside the lead-time window;
// the only hard rules are that the slot must belong to the line's
// product and, for finalized orders, that the seats must fit.
func (s *Service) AdminAssign(ctx context.Context, orderID, itemID, slotID uint64, qty int) (*model.OrderLine, error) {
    order, err := s.orders.GetOrder(ctx, orderID)
    if err != nil {
        return nil, err
    }
    line, err := s.orders.GetLine(ctx, orderID, itemID)
    if err != nil {
        return nil, err
    }
    if line.SlotID != nil && line.ReservationState == model.ReservationReserved {
        return nil, ErrAlreadyAssigned
    }
    slot, err := s.ledger.Slot(ctx, slotID)
    if err != nil {
        return nil, err
    }
    if slot.ProductID != line.ProductID {
        return nil, ErrProductMismatch
    }
    if err := s.assign(ctx, order, line, slot, qty, "admin"); err != nil {
        return nil, err
    }
    return line, nil
}

// AdminChangeSlot moves an assigned line to a different slot of the
// same product.  Seats on the new slot are secured before the old
// ones are released, so a full target slot leaves the booking where
// it was.
func (s *Service) AdminChangeSlot(ctx context.Context, orderID, itemID, newSlotID uint64) (*model.OrderLine, error) {
    order, err := s.orders.GetOrder(ctx, orderID)
    if err != nil {
        return nil, err
    }
    line, err := s.orders.GetLine(ctx, orderID, itemID)
    if err != nil {
        return nil, err
    }
    if line.SlotID == nil {
        return nil, ErrNotReserved
    }
    if *line.SlotID == newSlotID {
        return line, nil
    }
    newSlot, err := s.ledger.Slot(ctx, newSlotID)
    if err != nil {
        return nil, err
    }
    if newSlot.ProductID != line.ProductID {
        return nil, ErrProductMismatch
    }
    if err := s.move(ctx, order, line, newSlot, "admin"); err != nil {
        return nil, err
    }
    return line, nil
}

// CustomerLookup authenticates a self-service request with the order
// id plus billing email and returns the order.  Unknown ids and
// mismatched emails produce the same error, and the email comparison
// runs in constant time, so the endpoint leaks nothing about which
// order ids exist.
func (s *Service) CustomerLookup(ctx context.Context, orderID uint64, email string) (*model.Order, error) {
    order, err := s.orders.GetOrder(ctx, orderID)
    if err != nil {
        if errors.Is(err, repository.ErrOrderNotFound) {
            return nil, ErrOrderAccessDenied
        }
        return nil, err
    }
    want := strings.ToLower(strings.TrimSpace(order.BillingEmail))
    got := strings.ToLower(strings.TrimSpace(email))
    if subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
        return nil, ErrOrderAccessDenied
    }
    return order, nil
}

// CustomerAssign lets the buyer pick a slot for a line whose choice
// they deferred at checkout.  Customers get the strict rules staff
// can bypass: the line must still be awaiting its deferred choice,
// the product course-enabled, the slot open and outside the
// lead-time window.  Moving an existing booking, or assigning a line
// that never deferred, is a staff operation.
func (s *Service) CustomerAssign(ctx context.Context, orderID uint64, email string, itemID, slotID uint64) (*model.OrderLine, error) {
    order, err := s.CustomerLookup(ctx, orderID, email)
    if err != nil {
        return nil, err
    }
    var line *model.OrderLine
    for i := range order.Lines {
        if order.Lines[i].ID == itemID {
            line = &order.Lines[i]
            break
        }
    }
    if line == nil {
        return nil, repository.ErrLineNotFound
    }
    if line.SlotID != nil {
        return nil, ErrAlreadyAssigned
    }
    if !line.PendingDeferred {
        return nil, ErrNotPendingDeferred
    }
    product, err := s.products.GetByID(ctx, line.ProductID)
    if err != nil {
        return nil, err
    }
    if !product.CourseEnabled {
        return nil, ErrNotCourseProduct
    }
    slot, err := s.ledger.Slot(ctx, slotID)
    if err != nil {
        return nil, err
    }
    if slot.ProductID != line.ProductID {
        return nil, ErrProductMismatch
    }
    if slot.Status != model.SlotOpen {
        return nil, ErrSlotClosed
    }
    if !s.ledger.WithinLeadTime(slot) {
        return nil, ErrLeadTime
    }
    if err := s.assign(ctx, order, line, slot, line.BookingQuantity(), "customer"); err != nil {
        return nil, err
    }
    return line, nil
}

// BookingsForSlot returns the admin booking report for a slot.
func (s *Service) BookingsForSlot(ctx context.Context, slotID uint64) ([]model.SlotBooking, error) {
    if _, err := s.ledger.Slot(ctx, slotID); err != nil {
        return nil, err
    }
    return s.orders.BookingsForSlot(ctx, slotID)
}

// PendingDeferred lists lines whose buyers postponed slot selection
// and still have no slot.
func (s *Service) PendingDeferred(ctx context.Context) ([]model.SlotBooking, error) {
    return s.orders.PendingDeferred(ctx)
}
