// Package booking implements the order-line booking state machine and
// the gateways through which administrators and customers drive it.
// Seat accounting itself lives in the ledger; this package decides
// WHEN seats move and keeps each line's reservation state consistent
// with the slot counters, idempotently with respect to replayed
// order-lifecycle hooks.
package booking

import (
    "context"
    "fmt"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/course-slot-booking/internal/ledger"
    "github.com/iliyamo/course-slot-booking/internal/model"
    "github.com/iliyamo/course-slot-booking/internal/queue"
)

// OrderStore is the order-side storage contract of the state machine.
type OrderStore interface {
    GetOrder(ctx context.Context, id uint64) (*model.Order, error)
    GetLine(ctx context.Context, orderID, itemID uint64) (*model.OrderLine, error)
    SaveLineBooking(ctx context.Context, l *model.OrderLine) error
    AddOrderNote(ctx context.Context, orderID uint64, note string) error
    BookingsForSlot(ctx context.Context, slotID uint64) ([]model.SlotBooking, error)
    PendingDeferred(ctx context.Context) ([]model.SlotBooking, error)
}

// ProductStore reads the catalog flags the gateways check.
type ProductStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Product, error)
}

// EventPublisher sends a booking event to the broker.  Publishing is
// best effort: failures are logged by the publisher and never affect
// seat accounting.
type EventPublisher func(ctx context.Context, ev queue.BookingEvent) error

// Service is the booking state machine plus its gateways.
type Service struct {
    ledger   *ledger.Ledger
    orders   OrderStore
    products ProductStore
    publish  EventPublisher
    log      *logrus.Logger
}

// NewService wires the state machine.  publish may be nil, in which
// case no events are emitted.
func NewService(l *ledger.Ledger, orders OrderStore, products ProductStore, publish EventPublisher, log *logrus.Logger) *Service {
    return &Service{ledger: l, orders: orders, products: products, publish: publish, log: log}
}

// finalized reports whether an order status means payment is settled
// and reservations should be committed immediately.
func finalized(status string) bool {
    return status == "processing" || status == "completed"
}

func (s *Service) slotLabel(slot *model.Slot) string {
    return slot.StartAt.In(s.ledger.Location()).Format("2006-01-02 15:04")
}

func (s *Service) emit(evType string, order *model.Order, line *model.OrderLine, slot *model.Slot, fromSlotID uint64, qty int, actor string) {
    if s.publish == nil {
        return
    }
    ev := queue.BookingEvent{
        EventID:     queue.NewEventID(),
        Type:        evType,
        OrderID:     order.ID,
        ItemID:      line.ID,
        ProductID:   line.ProductID,
        ProductName: line.ProductName,
        SlotID:      slot.ID,
        SlotStart:   s.slotLabel(slot),
        FromSlotID:  fromSlotID,
        Quantity:    qty,
        Actor:       actor,
        OccurredAt:  time.Now().UTC().Format(time.RFC3339),
    }
    // Fire and forget on a background context so a slow broker never
    // holds up the request.
    go func() { _ = s.publish(context.Background(), ev) }()
}

// assign points a line at a slot.  Seats are reserved immediately
// when the order is already finalized; otherwise the line just
// records the choice and the finalize hook commits it later.
func (s *Service) assign(ctx context.Context, order *model.Order, line *model.OrderLine, slot *model.Slot, qty int, actor string) error {
    if qty <= 0 {
        qty = line.BookingQuantity()
    }
    state := model.ReservationNone
    if finalized(order.Status) {
        if err := s.ledger.Reserve(ctx, slot.ID, qty); err != nil {
            return err
        }
        state = model.ReservationReserved
    }

    line.SlotID = &slot.ID
    line.SlotQty = qty
    line.ReservationState = state
    line.PendingDeferred = false
    if err := s.orders.SaveLineBooking(ctx, line); err != nil {
        if state == model.ReservationReserved {
            // Compensate so the failed assignment does not hold seats.
            _ = s.ledger.Release(ctx, slot.ID, qty)
        }
        return err
    }

    note := fmt.Sprintf("Course slot assigned by %s: %s — %s x%d", actor, line.ProductName, s.slotLabel(slot), qty)
    if state == model.ReservationNone {
        note += " (seats reserved when the order is finalized)"
    }
    if err := s.orders.AddOrderNote(ctx, order.ID, note); err != nil {
        s.log.WithError(err).WithField("order_id", order.ID).Warn("order note failed")
    }
    s.log.WithFields(logrus.Fields{
        "order_id": order.ID, "item_id": line.ID, "slot_id": slot.ID, "qty": qty, "actor": actor, "state": string(state),
    }).Info("slot assigned")
    if state == model.ReservationReserved {
        s.emit(queue.EventBookingAssigned, order, line, slot, 0, qty, actor)
    }
    return nil
}

// move switches a line from its current slot to a new one.  The new
// seats are reserved before the old ones are released, so a failed
// reserve leaves the existing booking untouched.  A failed release of
// the old slot is logged and not fatal: the move already holds valid
// seats on the new slot and at worst the old one is left
// over-counted, which only under-sells, never oversells.
func (s *Service) move(ctx context.Context, order *model.Order, line *model.OrderLine, newSlot *model.Slot, actor string) error {
    oldSlotID := *line.SlotID
    qty := line.BookingQuantity()

    var oldLabel string
    if old, err := s.ledger.Slot(ctx, oldSlotID); err == nil {
        oldLabel = s.slotLabel(old)
    } else {
        oldLabel = fmt.Sprintf("slot #%d", oldSlotID)
    }

    reserved := line.ReservationState == model.ReservationReserved
    if reserved {
        if err := s.ledger.Reserve(ctx, newSlot.ID, qty); err != nil {
            return err
        }
        if err := s.ledger.Release(ctx, oldSlotID, qty); err != nil {
            s.log.WithError(err).WithFields(logrus.Fields{
                "order_id": order.ID, "item_id": line.ID, "slot_id": oldSlotID, "qty": qty,
            }).Warn("release of previous slot failed; seats remain counted there")
        }
    }

    line.SlotID = &newSlot.ID
    line.SlotQty = qty
    if err := s.orders.SaveLineBooking(ctx, line); err != nil {
        return err
    }

    note := fmt.Sprintf("Course slot changed: %s — %s → %s x%d", line.ProductName, oldLabel, s.slotLabel(newSlot), qty)
    if err := s.orders.AddOrderNote(ctx, order.ID, note); err != nil {
        s.log.WithError(err).WithField("order_id", order.ID).Warn("order note failed")
    }
    s.log.WithFields(logrus.Fields{
        "order_id": order.ID, "item_id": line.ID, "from_slot": oldSlotID, "to_slot": newSlot.ID, "qty": qty, "actor": actor,
    }).Info("slot changed")
    if reserved {
        s.emit(queue.EventBookingMoved, order, line, newSlot, oldSlotID, qty, actor)
    }
    return nil
}

// FinalizeOrder commits seats for every line that has a slot chosen
// but not yet reserved.  It is safe to call repeatedly: lines already
// reserved (or released) are skipped.  When some lines cannot be
// reserved the successful siblings keep their seats and the failures
// come back as a *PartialFailure so the caller can block the order.
func (s *Service) FinalizeOrder(ctx context.Context, orderID uint64) error {
    order, err := s.orders.GetOrder(ctx, orderID)
    if err != nil {
        return err
    }

    var pf PartialFailure
    pf.OrderID = orderID
    for i := range order.Lines {
        line := &order.Lines[i]
        if line.SlotID == nil || line.ReservationState != model.ReservationNone {
            continue
        }
        qty := line.BookingQuantity()
        if err := s.ledger.Reserve(ctx, *line.SlotID, qty); err != nil {
            pf.Failed = append(pf.Failed, LineFailure{ItemID: line.ID, SlotID: *line.SlotID, Qty: qty, Err: err})
            note := fmt.Sprintf("Seat reservation FAILED: %s — slot #%d x%d (%v)", line.ProductName, *line.SlotID, qty, err)
            if nerr := s.orders.AddOrderNote(ctx, orderID, note); nerr != nil {
                s.log.WithError(nerr).WithField("order_id", orderID).Warn("order note failed")
            }
            continue
        }
        line.ReservationState = model.ReservationReserved
        line.SlotQty = qty
        if err := s.orders.SaveLineBooking(ctx, line); err != nil {
            // The seats are held but the line does not say so; undo the
            // hold so a hook retry can redo the whole line cleanly.
            _ = s.ledger.Release(ctx, *line.SlotID, qty)
            pf.Failed = append(pf.Failed, LineFailure{ItemID: line.ID, SlotID: *line.SlotID, Qty: qty, Err: err})
            continue
        }
        pf.Succeeded = append(pf.Succeeded, line.ID)
        if slot, serr := s.ledger.Slot(ctx, *line.SlotID); serr == nil {
            note := fmt.Sprintf("Seats reserved: %s — %s x%d", line.ProductName, s.slotLabel(slot), qty)
            if nerr := s.orders.AddOrderNote(ctx, orderID, note); nerr != nil {
                s.log.WithError(nerr).WithField("order_id", orderID).Warn("order note failed")
            }
            s.emit(queue.EventBookingAssigned, order, line, slot, 0, qty, "system")
        }
    }

    if len(pf.Failed) > 0 {
        s.log.WithFields(logrus.Fields{
            "order_id": orderID, "failed": len(pf.Failed), "succeeded": len(pf.Succeeded),
        }).Warn("order finalize reserved only part of its lines")
        return &pf
    }
    return nil
}

// ReleaseOrder returns the seats of every reserved line, marking each
// as released.  Replayed cancel/refund/failure hooks are no-ops
// because only lines in the reserved state are touched.
func (s *Service) ReleaseOrder(ctx context.Context, orderID uint64, reason string) error {
    order, err := s.orders.GetOrder(ctx, orderID)
    if err != nil {
        return err
    }

    for i := range order.Lines {
        line := &order.Lines[i]
        if line.SlotID == nil || line.ReservationState != model.ReservationReserved {
            continue
        }
        qty := line.BookingQuantity()
        if err := s.ledger.Release(ctx, *line.SlotID, qty); err != nil {
            return err
        }
        line.ReservationState = model.ReservationReleased
        if err := s.orders.SaveLineBooking(ctx, line); err != nil {
            return err
        }
        label := fmt.Sprintf("slot #%d", *line.SlotID)
        var slot *model.Slot
        if sl, serr := s.ledger.Slot(ctx, *line.SlotID); serr == nil {
            slot = sl
            label = s.slotLabel(sl)
        }
        note := fmt.Sprintf("Seats released: %s — %s x%d (%s)", line.ProductName, label, qty, reason)
        if nerr := s.orders.AddOrderNote(ctx, orderID, note); nerr != nil {
            s.log.WithError(nerr).WithField("order_id", orderID).Warn("order note failed")
        }
        s.log.WithFields(logrus.Fields{
            "order_id": orderID, "item_id": line.ID, "slot_id": *line.SlotID, "qty": qty, "reason": reason,
        }).Info("reservation released")
        if slot != nil {
            s.emit(queue.EventBookingReleased, order, line, slot, 0, qty, "system")
        }
    }
    return nil
}
