package model

import "time"

// SlotStatus enumerates the lifecycle states of a course slot.  A
// closed slot rejects new reservations but keeps the seats that were
// already booked.
type SlotStatus string

const (
    SlotOpen   SlotStatus = "open"   // accepting reservations
    SlotClosed SlotStatus = "closed" // rejecting new reservations
)

// Valid reports whether s is one of the known slot statuses.
func (s SlotStatus) Valid() bool {
    return s == SlotOpen || s == SlotClosed
}

// Slot represents one bookable occurrence of a course.  Capacity is
// the total number of seats and Booked the number currently
// committed.  Booked is mutated only through the repository's atomic
// conditional updates; writing it through a regular update would
// reintroduce the lost-update races the conditional SQL exists to
// prevent.
//
// Fields:
//  ID        – primary key identifier, immutable after creation.
//  ProductID – owning course product (many slots per product).
//  StartAt   – when the slot begins, stored in the configured store timezone.
//  EndAt     – optional end time (nullable).
//  Capacity  – total seats; mutable by administrators.
//  Booked    – seats currently committed.
//  Status    – open or closed.
//  CreatedAt – row creation timestamp.
//  UpdatedAt – last modification timestamp.
type Slot struct {
    ID        uint64     // course_slots.id
    ProductID uint64     // course_slots.product_id
    StartAt   time.Time  // course_slots.start_at
    EndAt     *time.Time // course_slots.end_at (nullable)
    Capacity  int        // course_slots.capacity
    Booked    int        // course_slots.booked
    Status    SlotStatus // course_slots.status
    CreatedAt time.Time  // course_slots.created_at
    UpdatedAt time.Time  // course_slots.updated_at
}

// Remaining returns the number of seats still available, floored at
// zero.  Booked can transiently exceed Capacity when an administrator
// reduces the capacity of a slot that already has bookings; the floor
// is a display and consumption safeguard, not a ledger correction.
func (s *Slot) Remaining() int {
    r := s.Capacity - s.Booked
    if r < 0 {
        return 0
    }
    return r
}

// StartDate returns the calendar date of the slot start in the given
// location, formatted as YYYY-MM-DD.
func (s *Slot) StartDate(loc *time.Location) string {
    return s.StartAt.In(loc).Format("2006-01-02")
}

// Product represents the subset of the commerce catalog this service
// reads: the course-enabled flag decides whether a product
// participates in slot booking at all.
type Product struct {
    ID            uint64 // products.id
    Name          string // products.name
    CourseEnabled bool   // products.course_enabled
}
