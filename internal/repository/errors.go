// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as the ledger and handlers to distinguish between failure
// scenarios without string matching. ErrConflict in particular
// signals that a delete cannot proceed because dependent records
// exist (a slot with active bookings).
package repository

import "errors"

// ErrSlotNotFound indicates that no slot row exists for the given id.
var ErrSlotNotFound = errors.New("slot not found")

// ErrOrderNotFound indicates that no order row exists for the given id.
var ErrOrderNotFound = errors.New("order not found")

// ErrLineNotFound indicates that an order has no line with the given id.
var ErrLineNotFound = errors.New("order line not found")

// ErrProductNotFound indicates that no product row exists for the given id.
var ErrProductNotFound = errors.New("product not found")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as deleting a slot
// that still has booked seats. Handlers translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrValidation is returned when input fails validation before any
// storage is touched, such as a non-positive capacity or an
// unparseable start datetime. Handlers translate this into 422.
var ErrValidation = errors.New("validation error")
