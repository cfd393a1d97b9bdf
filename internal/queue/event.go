// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/google/uuid"

// Event types carried by BookingEvent.Type.
const (
    EventBookingAssigned = "booking.assigned"
    EventBookingMoved    = "booking.moved"
    EventBookingReleased = "booking.released"
)

// BookingEvent is published whenever seats are committed to, moved
// between, or returned from a slot. It carries enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type BookingEvent struct {
    EventID     string `json:"event_id"`
    Type        string `json:"type"`
    OrderID     uint64 `json:"order_id"`
    ItemID      uint64 `json:"item_id"`
    ProductID   uint64 `json:"product_id"`
    ProductName string `json:"product_name"`
    SlotID      uint64 `json:"slot_id"`
    SlotStart   string `json:"slot_start"`
    FromSlotID  uint64 `json:"from_slot_id,omitempty"`
    Quantity    int    `json:"quantity"`
    Actor       string `json:"actor"` // "admin", "customer" or "system"
    OccurredAt  string `json:"occurred_at"`
}

// NewEventID returns a fresh unique id for event de-duplication.
func NewEventID() string { return uuid.NewString() }
