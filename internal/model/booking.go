package model

import "time"

// ReservationState tracks whether a line's seats are currently
// counted in a slot's booked total.  It is the idempotency guard for
// the order lifecycle hooks: reservation and release must each run at
// most once per line no matter how many times the commerce engine
// fires its hooks.
type ReservationState string

const (
    ReservationNone     ReservationState = "none"     // seats never reserved
    ReservationReserved ReservationState = "reserved" // seats counted in Slot.Booked
    ReservationReleased ReservationState = "released" // seats returned to the slot
)

// Valid reports whether r is one of the known reservation states.
func (r ReservationState) Valid() bool {
    return r == ReservationNone || r == ReservationReserved || r == ReservationReleased
}

// OrderLine is one purchased line item together with its booking
// fields.  The commerce engine owns the line itself; this service is
// the single mutator of the booking fields (SlotID, SlotQty,
// ReservationState, PendingDeferred).
//
// A line with a nil SlotID is either pending-deferred (the buyer
// explicitly postponed slot selection, e.g. a gift purchase) or a
// legacy unassigned line created before deferred booking existed; the
// PendingDeferred flag distinguishes the two.
//
// Fields:
//  ID              – primary key of the line (owned by the order system).
//  OrderID         – parent order.
//  ProductID       – purchased product.
//  ProductName     – product name snapshot for notes and exports.
//  Quantity        – units purchased on the line.
//  SlotID          – assigned slot, nil while unassigned.
//  SlotQty         – seats requested; defaults to Quantity when zero.
//  ReservationState – see above.
//  PendingDeferred – buyer deferred slot selection at checkout.
//  CreatedAt       – row creation timestamp.
//  UpdatedAt       – last modification timestamp.
type OrderLine struct {
    ID               uint64           // order_lines.id
    OrderID          uint64           // order_lines.order_id
    ProductID        uint64           // order_lines.product_id
    ProductName      string           // order_lines.product_name
    Quantity         int              // order_lines.quantity
    SlotID           *uint64          // order_lines.slot_id (nullable)
    SlotQty          int              // order_lines.slot_qty
    ReservationState ReservationState // order_lines.reservation_state
    PendingDeferred  bool             // order_lines.pending_deferred
    CreatedAt        time.Time        // order_lines.created_at
    UpdatedAt        time.Time        // order_lines.updated_at
}

// BookingQuantity returns the number of seats this line consumes:
// the stored slot quantity when present, otherwise the order
// quantity, never less than one.
func (l *OrderLine) BookingQuantity() int {
    q := l.SlotQty
    if q <= 0 {
        q = l.Quantity
    }
    if q < 1 {
        q = 1
    }
    return q
}

// Order is the slice of a commerce order this service needs: the
// billing email authenticates customer self-service requests and the
// lines carry the booking state.
type Order struct {
    ID           uint64      // orders.id
    BillingEmail string      // orders.billing_email
    Status       string      // orders.status
    Lines        []OrderLine // order_lines rows for this order
    CreatedAt    time.Time   // orders.created_at
}

// SlotBooking is one row of the per-slot booking report consumed by
// the admin screens and the CSV export.
type SlotBooking struct {
    OrderID       uint64 // parent order
    ItemID        uint64 // order line
    CustomerName  string // billing name on the order
    CustomerEmail string // billing email on the order
    ProductName   string // booked product
    Quantity      int    // seats booked
    OrderStatus   string // commerce order status
    State         ReservationState
}
