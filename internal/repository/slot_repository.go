// Package repository contains data access logic for the booking
// domain. This file defines the slot repository: CRUD for course
// slots plus the two atomic conditional updates that are the only
// code paths allowed to touch the booked counter. Reservation
// correctness does not rely on in-process locks — any number of
// processes may call ReserveSeats concurrently and the single
// conditional UPDATE statement is what prevents overselling.
package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/course-slot-booking/internal/model"
)

// SlotRepo manages persistence for course slots.
type SlotRepo struct {
    db *sql.DB
}

// NewSlotRepo constructs a SlotRepo with the given DB handle.
func NewSlotRepo(db *sql.DB) *SlotRepo {
    return &SlotRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *SlotRepo) DB() *sql.DB {
    return r.db
}

const slotColumns = `id, product_id, start_at, end_at, capacity, booked, status, created_at, updated_at`

func scanSlot(row interface{ Scan(...any) error }) (*model.Slot, error) {
    var (
        s     model.Slot
        endAt sql.NullTime
    )
    err := row.Scan(&s.ID, &s.ProductID, &s.StartAt, &endAt, &s.Capacity, &s.Booked, &s.Status, &s.CreatedAt, &s.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if endAt.Valid {
        t := endAt.Time
        s.EndAt = &t
    }
    return &s, nil
}

// Create inserts a new slot and assigns the generated ID back to the
// struct.  Validation happens before any storage is touched: the
// product reference, a real start time and a positive capacity are
// all required.  Booked always starts at zero and the status
// defaults to open when unset.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
    if s.ProductID == 0 || s.Capacity <= 0 || s.StartAt.IsZero() {
        return ErrValidation
    }
    if s.Status == "" {
        s.Status = model.SlotOpen
    }
    if !s.Status.Valid() {
        return ErrValidation
    }
    var endAt any
    if s.EndAt != nil {
        endAt = *s.EndAt
    }
    const q = `INSERT INTO course_slots (product_id, start_at, end_at, capacity, booked, status) VALUES (?, ?, ?, ?, 0, ?)`
    res, err := r.db.ExecContext(ctx, q, s.ProductID, s.StartAt, endAt, s.Capacity, string(s.Status))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    // Query the inserted row to obtain DB-default fields (timestamps).
    created, err := r.GetByID(ctx, s.ID)
    if err != nil {
        return err
    }
    *s = *created
    return nil
}

// GetByID retrieves a slot by its ID.  It returns ErrSlotNotFound if
// there is no matching row.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM course_slots WHERE id = ?`
    s, err := scanSlot(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrSlotNotFound
    }
    return s, err
}

// SlotFilters narrows List results.  Zero values mean "no filter".
// Page is 1-based; PerPage defaults to 50.
type SlotFilters struct {
    ProductID  uint64
    Status     model.SlotStatus
    DateFrom   *time.Time
    DateTo     *time.Time
    FutureOnly bool
    Page       int
    PerPage    int
}

// List returns slots matching the filters ordered ascending by start
// time, together with the total number of matching rows so callers
// can paginate.
func (r *SlotRepo) List(ctx context.Context, f SlotFilters) ([]model.Slot, int, error) {
    where := ` WHERE 1=1`
    args := make([]any, 0, 6)
    if f.ProductID != 0 {
        where += ` AND product_id = ?`
        args = append(args, f.ProductID)
    }
    if f.Status != "" {
        where += ` AND status = ?`
        args = append(args, string(f.Status))
    }
    if f.DateFrom != nil {
        where += ` AND start_at >= ?`
        args = append(args, *f.DateFrom)
    }
    if f.DateTo != nil {
        where += ` AND start_at <= ?`
        args = append(args, *f.DateTo)
    }
    if f.FutureOnly {
        where += ` AND start_at >= NOW()`
    }

    var total int
    if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM course_slots`+where, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    perPage := f.PerPage
    if perPage <= 0 {
        perPage = 50
    }
    page := f.Page
    if page <= 0 {
        page = 1
    }
    q := `SELECT ` + slotColumns + ` FROM course_slots` + where + ` ORDER BY start_at ASC LIMIT ? OFFSET ?`
    args = append(args, perPage, (page-1)*perPage)

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    var slots []model.Slot
    for rows.Next() {
        s, err := scanSlot(rows)
        if err != nil {
            return nil, 0, err
        }
        slots = append(slots, *s)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }
    return slots, total, nil
}

// ListOpenByProduct returns the open slots of a product starting at
// or after the given instant, ordered ascending by start time.  The
// ledger builds availability listings from this.
func (r *SlotRepo) ListOpenByProduct(ctx context.Context, productID uint64, from time.Time) ([]model.Slot, error) {
    const q = `SELECT ` + slotColumns + ` FROM course_slots
               WHERE product_id = ? AND status = 'open' AND start_at >= ?
               ORDER BY start_at ASC`
    rows, err := r.db.QueryContext(ctx, q, productID, from)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var slots []model.Slot
    for rows.Next() {
        s, err := scanSlot(rows)
        if err != nil {
            return nil, err
        }
        slots = append(slots, *s)
    }
    return slots, rows.Err()
}

// SlotUpdate carries the externally settable slot fields.  Booked is
// deliberately absent: it is mutated only by ReserveSeats and
// ReleaseSeats.
type SlotUpdate struct {
    StartAt  *time.Time
    EndAt    *time.Time
    Capacity *int
    Status   *model.SlotStatus
}

// Update applies the provided fields to a slot.  Unknown statuses and
// non-positive capacities are rejected before touching the row.  It
// returns the updated slot, or ErrSlotNotFound when the id does not
// exist.
func (r *SlotRepo) Update(ctx context.Context, id uint64, u SlotUpdate) (*model.Slot, error) {
    set := ``
    args := make([]any, 0, 4)
    if u.StartAt != nil {
        if u.StartAt.IsZero() {
            return nil, ErrValidation
        }
        set += `, start_at = ?`
        args = append(args, *u.StartAt)
    }
    if u.EndAt != nil {
        set += `, end_at = ?`
        args = append(args, *u.EndAt)
    }
    if u.Capacity != nil {
        if *u.Capacity <= 0 {
            return nil, ErrValidation
        }
        set += `, capacity = ?`
        args = append(args, *u.Capacity)
    }
    if u.Status != nil {
        if !u.Status.Valid() {
            return nil, ErrValidation
        }
        set += `, status = ?`
        args = append(args, string(*u.Status))
    }
    if len(args) == 0 {
        return nil, ErrValidation
    }
    // Verify existence first so a no-op update (same values) is not
    // mistaken for a missing row by the rows-affected count.
    if _, err := r.GetByID(ctx, id); err != nil {
        return nil, err
    }
    q := `UPDATE course_slots SET ` + set[2:] + ` WHERE id = ?`
    args = append(args, id)
    if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
        return nil, err
    }
    return r.GetByID(ctx, id)
}

// Delete removes a slot that has no booked seats.  The booked guard
// lives inside the DELETE itself so a reservation racing the delete
// cannot leave a dangling booking.  Returns ErrConflict when the slot
// still has active bookings and ErrSlotNotFound when it never
// existed.
func (r *SlotRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM course_slots WHERE id = ? AND booked = 0`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n > 0 {
        return nil
    }
    if _, err := r.GetByID(ctx, id); err != nil {
        return err // ErrSlotNotFound
    }
    return ErrConflict
}

// ReserveSeats attempts to commit qty seats on a slot.  The guard
// condition and the increment happen in one indivisible UPDATE, so of
// any number of concurrent callers only those whose combined demand
// fits within capacity can succeed.  The rows-affected count is the
// verdict: false means the bound would have been violated (or the row
// is gone — callers that care about the difference look the slot up).
func (r *SlotRepo) ReserveSeats(ctx context.Context, id uint64, qty int) (bool, error) {
    if qty <= 0 {
        return false, ErrValidation
    }
    const q = `UPDATE course_slots
               SET booked = booked + ?
               WHERE id = ? AND booked + ? <= capacity`
    res, err := r.db.ExecContext(ctx, q, qty, id, qty)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// ReleaseSeats returns qty seats to a slot, flooring the counter at
// zero.  A double release therefore ends at zero rather than going
// negative.  False means the slot row is gone; a zero rows-affected
// count alone cannot tell that apart from a counter already at the
// floor, so the ambiguous case is resolved with an existence check.
func (r *SlotRepo) ReleaseSeats(ctx context.Context, id uint64, qty int) (bool, error) {
    if qty <= 0 {
        return false, ErrValidation
    }
    const q = `UPDATE course_slots
               SET booked = GREATEST(0, booked - ?)
               WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, qty, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    if n > 0 {
        return true, nil
    }
    var one int
    err = r.db.QueryRowContext(ctx, `SELECT 1 FROM course_slots WHERE id = ?`, id).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}
