package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/course-slot-booking/internal/model"
)

// OrderRepo provides access to the commerce-side order rows this
// service integrates with.  The order and its lines are owned by the
// external order system; this service is the single writer of the
// booking fields on each line (slot_id, slot_qty, reservation_state,
// pending_deferred) and of the order notes that audit every
// assignment.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const lineColumns = `id, order_id, product_id, product_name, quantity, slot_id, slot_qty, reservation_state, pending_deferred, created_at, updated_at`

func scanLine(row interface{ Scan(...any) error }) (*model.OrderLine, error) {
    var (
        l      model.OrderLine
        slotID sql.NullInt64
    )
    err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity,
        &slotID, &l.SlotQty, &l.ReservationState, &l.PendingDeferred, &l.CreatedAt, &l.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if slotID.Valid {
        id := uint64(slotID.Int64)
        l.SlotID = &id
    }
    return &l, nil
}

// GetOrder loads an order together with all its lines.  It returns
// ErrOrderNotFound when the id does not exist.
func (r *OrderRepo) GetOrder(ctx context.Context, id uint64) (*model.Order, error) {
    const q = `SELECT id, billing_email, status, created_at FROM orders WHERE id = ?`
    var o model.Order
    err := r.db.QueryRowContext(ctx, q, id).Scan(&o.ID, &o.BillingEmail, &o.Status, &o.CreatedAt)
    if err == sql.ErrNoRows {
        return nil, ErrOrderNotFound
    }
    if err != nil {
        return nil, err
    }
    rows, err := r.db.QueryContext(ctx, `SELECT `+lineColumns+` FROM order_lines WHERE order_id = ? ORDER BY id ASC`, id)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        l, err := scanLine(rows)
        if err != nil {
            return nil, err
        }
        o.Lines = append(o.Lines, *l)
    }
    return &o, rows.Err()
}

// GetLine loads a single line of an order.  The order id is part of
// the lookup so a line cannot be addressed through someone else's
// order.
func (r *OrderRepo) GetLine(ctx context.Context, orderID, itemID uint64) (*model.OrderLine, error) {
    const q = `SELECT ` + lineColumns + ` FROM order_lines WHERE id = ? AND order_id = ?`
    l, err := scanLine(r.db.QueryRowContext(ctx, q, itemID, orderID))
    if err == sql.ErrNoRows {
        return nil, ErrLineNotFound
    }
    return l, err
}

// SaveLineBooking persists the booking fields of a line.  All four
// fields are written together so the reservation state can never be
// observed out of step with the slot reference.
func (r *OrderRepo) SaveLineBooking(ctx context.Context, l *model.OrderLine) error {
    var slotID any
    if l.SlotID != nil {
        slotID = *l.SlotID
    }
    const q = `UPDATE order_lines
               SET slot_id = ?, slot_qty = ?, reservation_state = ?, pending_deferred = ?
               WHERE id = ? AND order_id = ?`
    res, err := r.db.ExecContext(ctx, q, slotID, l.SlotQty, string(l.ReservationState), l.PendingDeferred, l.ID, l.OrderID)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        // Distinguish "row missing" from "values unchanged".
        if _, gerr := r.GetLine(ctx, l.OrderID, l.ID); gerr != nil {
            return gerr
        }
    }
    return nil
}

// AddOrderNote appends a human-readable audit note to an order.
func (r *OrderRepo) AddOrderNote(ctx context.Context, orderID uint64, note string) error {
    _, err := r.db.ExecContext(ctx,
        `INSERT INTO order_notes (order_id, note) VALUES (?, ?)`, orderID, note)
    return err
}

// NotesForOrder returns the audit notes of an order, newest first.
func (r *OrderRepo) NotesForOrder(ctx context.Context, orderID uint64) ([]string, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT note FROM order_notes WHERE order_id = ? ORDER BY created_at DESC, id DESC`, orderID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var notes []string
    for rows.Next() {
        var n string
        if err := rows.Scan(&n); err != nil {
            return nil, err
        }
        notes = append(notes, n)
    }
    return notes, rows.Err()
}

// BookingsForSlot returns one row per order line currently pointing
// at the slot, joined with the order's customer details.  The admin
// bookings screen and the CSV export both consume this.
func (r *OrderRepo) BookingsForSlot(ctx context.Context, slotID uint64) ([]model.SlotBooking, error) {
    const q = `SELECT o.id, l.id, o.billing_name, o.billing_email, l.product_name, l.slot_qty, l.quantity, o.status, l.reservation_state
               FROM order_lines l
               JOIN orders o ON o.id = l.order_id
               WHERE l.slot_id = ?
               ORDER BY o.created_at ASC, l.id ASC`
    rows, err := r.db.QueryContext(ctx, q, slotID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.SlotBooking
    for rows.Next() {
        var (
            b       model.SlotBooking
            slotQty int
            lineQty int
        )
        if err := rows.Scan(&b.OrderID, &b.ItemID, &b.CustomerName, &b.CustomerEmail, &b.ProductName, &slotQty, &lineQty, &b.OrderStatus, &b.State); err != nil {
            return nil, err
        }
        b.Quantity = slotQty
        if b.Quantity <= 0 {
            b.Quantity = lineQty
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

// PendingDeferred lists the lines whose buyers postponed slot
// selection and that still have no slot assigned, oldest first, so
// administrators can chase them.
func (r *OrderRepo) PendingDeferred(ctx context.Context) ([]model.SlotBooking, error) {
    const q = `SELECT o.id, l.id, o.billing_name, o.billing_email, l.product_name, l.slot_qty, l.quantity, o.status, l.reservation_state
               FROM order_lines l
               JOIN orders o ON o.id = l.order_id
               WHERE l.pending_deferred = 1 AND l.slot_id IS NULL
               ORDER BY o.created_at ASC, l.id ASC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.SlotBooking
    for rows.Next() {
        var (
            b       model.SlotBooking
            slotQty int
            lineQty int
        )
        if err := rows.Scan(&b.OrderID, &b.ItemID, &b.CustomerName, &b.CustomerEmail, &b.ProductName, &slotQty, &lineQty, &b.OrderStatus, &b.State); err != nil {
            return nil, err
        }
        b.Quantity = slotQty
        if b.Quantity <= 0 {
            b.Quantity = lineQty
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

// CreateOrder inserts an order with its lines.  The commerce engine
// is normally the writer of these tables; this helper exists for the
// integration boundary and for seeding test fixtures against a real
// database.
func (r *OrderRepo) CreateOrder(ctx context.Context, o *model.Order, billingName string) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    res, err := tx.ExecContext(ctx,
        `INSERT INTO orders (billing_email, billing_name, status) VALUES (?, ?, ?)`,
        o.BillingEmail, billingName, o.Status)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)
    for i := range o.Lines {
        l := &o.Lines[i]
        l.OrderID = o.ID
        if l.ReservationState == "" {
            l.ReservationState = model.ReservationNone
        }
        var slotID any
        if l.SlotID != nil {
            slotID = *l.SlotID
        }
        lres, err := tx.ExecContext(ctx,
            `INSERT INTO order_lines (order_id, product_id, product_name, quantity, slot_id, slot_qty, reservation_state, pending_deferred)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
            l.OrderID, l.ProductID, l.ProductName, l.Quantity, slotID, l.SlotQty, string(l.ReservationState), l.PendingDeferred)
        if err != nil {
            return err
        }
        lid, err := lres.LastInsertId()
        if err != nil {
            return err
        }
        l.ID = uint64(lid)
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
