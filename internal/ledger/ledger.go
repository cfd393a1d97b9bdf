// Package ledger implements seat accounting on top of a slot store.
// It is the only layer allowed to move the booked counter, and it
// never locks: correctness under concurrency comes from the store's
// conditional reserve primitive, so any number of processes can share
// one database safely.
package ledger

import (
    "context"
    "errors"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/course-slot-booking/internal/model"
    "github.com/iliyamo/course-slot-booking/internal/repository"
)

// ErrInsufficientCapacity means a reserve was refused because the
// requested seats do not fit within the slot's capacity.
var ErrInsufficientCapacity = errors.New("insufficient capacity")

// SlotStore is the storage contract the ledger needs.  Both the MySQL
// repository and the in-memory store satisfy it.
//
// ReserveSeats must be atomic: the capacity check and the increment
// happen as one indivisible step, returning false when the seats do
// not fit or the slot does not exist.  ReleaseSeats floors the
// counter at zero and returns false only when the slot is missing.
type SlotStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Slot, error)
    ListOpenByProduct(ctx context.Context, productID uint64, from time.Time) ([]model.Slot, error)
    ReserveSeats(ctx context.Context, id uint64, qty int) (bool, error)
    ReleaseSeats(ctx context.Context, id uint64, qty int) (bool, error)
}

// Ledger answers availability questions and commits or returns seats.
type Ledger struct {
    store    SlotStore
    loc      *time.Location
    leadDays int
    log      *logrus.Logger
    now      func() time.Time
}

// New constructs a Ledger.  loc is the store's single timezone; all
// calendar math (dates, lead-time cutoffs) happens in it.  leadDays
// is the minimum number of full days between booking and course
// start; zero means same-day booking is allowed.
func New(store SlotStore, loc *time.Location, leadDays int, log *logrus.Logger) *Ledger {
    if loc == nil {
        loc = time.UTC
    }
    if leadDays < 0 {
        leadDays = 0
    }
    return &Ledger{store: store, loc: loc, leadDays: leadDays, log: log, now: time.Now}
}

// Location returns the store timezone all calendar math uses.
func (l *Ledger) Location() *time.Location { return l.loc }

// Slot looks up a slot by id.  Callers that need slot details for
// validation or display go through this instead of reaching into the
// store directly.
func (l *Ledger) Slot(ctx context.Context, id uint64) (*model.Slot, error) {
    return l.store.GetByID(ctx, id)
}

// earliestStart returns the first instant a bookable slot may start:
// midnight of today plus the lead-time days, in the store timezone.
func (l *Ledger) earliestStart() time.Time {
    now := l.now().In(l.loc)
    midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, l.loc)
    return midnight.AddDate(0, 0, l.leadDays)
}

// Reserve commits qty seats on a slot.  On refusal it distinguishes a
// missing slot (repository.ErrSlotNotFound) from a full one
// (ErrInsufficientCapacity) by looking the slot up after the fact;
// the reserve itself is a single conditional update either way.
func (l *Ledger) Reserve(ctx context.Context, slotID uint64, qty int) error {
    ok, err := l.store.ReserveSeats(ctx, slotID, qty)
    if err != nil {
        return err
    }
    if ok {
        l.log.WithFields(logrus.Fields{"slot_id": slotID, "qty": qty}).Info("seats reserved")
        return nil
    }
    if _, err := l.store.GetByID(ctx, slotID); err != nil {
        return err
    }
    l.log.WithFields(logrus.Fields{"slot_id": slotID, "qty": qty}).Warn("reserve refused: capacity exceeded")
    return ErrInsufficientCapacity
}

// Release returns qty seats to a slot.  The counter floors at zero,
// so releasing more than is booked cannot drive it negative.  A
// vanished slot is logged and swallowed: there is nothing left to
// release and callers must still be able to finish their own state
// change.
func (l *Ledger) Release(ctx context.Context, slotID uint64, qty int) error {
    ok, err := l.store.ReleaseSeats(ctx, slotID, qty)
    if err != nil {
        return err
    }
    if !ok {
        l.log.WithFields(logrus.Fields{"slot_id": slotID, "qty": qty}).Warn("release skipped: slot no longer exists")
        return nil
    }
    l.log.WithFields(logrus.Fields{"slot_id": slotID, "qty": qty}).Info("seats released")
    return nil
}

// CanReserve reports whether qty seats currently fit in the slot.  It
// is advisory only — the state may change before a later Reserve, and
// that Reserve's conditional update remains the real verdict.
func (l *Ledger) CanReserve(ctx context.Context, slotID uint64, qty int) (bool, error) {
    s, err := l.store.GetByID(ctx, slotID)
    if err != nil {
        return false, err
    }
    return s.Status == model.SlotOpen && s.Remaining() >= qty, nil
}

// AvailableDates lists the distinct store-timezone dates (YYYY-MM-DD,
// ascending) on which the product has at least one open slot with
// seats remaining, starting no earlier than the lead-time cutoff.
// Dates whose slots are all full are omitted entirely.
func (l *Ledger) AvailableDates(ctx context.Context, productID uint64) ([]string, error) {
    slots, err := l.store.ListOpenByProduct(ctx, productID, l.earliestStart())
    if err != nil {
        return nil, err
    }
    var dates []string
    seen := make(map[string]bool)
    for _, s := range slots {
        if s.Remaining() <= 0 {
            continue
        }
        d := s.StartDate(l.loc)
        if !seen[d] {
            seen[d] = true
            dates = append(dates, d)
        }
    }
    return dates, nil
}

// SlotsOnDate lists the product's open slots on one store-timezone
// date, ascending by start time.  Full slots are included so the
// customer UI can render them as sold out; slots before the lead-time
// cutoff are not.  date must be YYYY-MM-DD.
func (l *Ledger) SlotsOnDate(ctx context.Context, productID uint64, date string) ([]model.Slot, error) {
    if _, err := time.ParseInLocation("2006-01-02", date, l.loc); err != nil {
        return nil, repository.ErrValidation
    }
    slots, err := l.store.ListOpenByProduct(ctx, productID, l.earliestStart())
    if err != nil {
        return nil, err
    }
    var out []model.Slot
    for _, s := range slots {
        if s.StartDate(l.loc) == date {
            out = append(out, s)
        }
    }
    return out, nil
}

// WithinLeadTime reports whether a slot's start satisfies the
// lead-time window.  The gateway re-checks this on every customer
// assignment, not just when listing.
func (l *Ledger) WithinLeadTime(s *model.Slot) bool {
    return !s.StartAt.Before(l.earliestStart())
}
