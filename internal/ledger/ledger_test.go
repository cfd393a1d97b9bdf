package ledger

import (
    "context"
    "io"
    "sync"
    "testing"
    "time"

    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/course-slot-booking/internal/model"
    "github.com/iliyamo/course-slot-booking/internal/repository"
)

func quietLogger() *logrus.Logger {
    l := logrus.New()
    l.SetOutput(io.Discard)
    return l
}

func newTestLedger(t *testing.T, leadDays int) (*Ledger, *repository.MemorySlotStore) {
    t.Helper()
    store := repository.NewMemorySlotStore()
    l := New(store, time.UTC, leadDays, quietLogger())
    l.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
    return l, store
}

func mkSlot(t *testing.T, store *repository.MemorySlotStore, productID uint64, start time.Time, capacity int) *model.Slot {
    t.Helper()
    s := &model.Slot{ProductID: productID, StartAt: start, Capacity: capacity}
    require.NoError(t, store.Create(context.Background(), s))
    return s
}

func TestReserveAndRelease(t *testing.T) {
    ctx := context.Background()
    l, store := newTestLedger(t, 0)
    s := mkSlot(t, store, 1, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 5)

    require.NoError(t, l.Reserve(ctx, s.ID, 3))
    got, err := store.GetByID(ctx, s.ID)
    require.NoError(t, err)
    assert.Equal(t, 3, got.Booked)
    assert.Equal(t, 2, got.Remaining())

    require.NoError(t, l.Release(ctx, s.ID, 2))
    got, err = store.GetByID(ctx, s.ID)
    require.NoError(t, err)
    assert.Equal(t, 1, got.Booked)
}

func TestReserveRefusedWhenOverCapacity(t *testing.T) {
    ctx := context.Background()
    l, store := newTestLedger(t, 0)
    s := mkSlot(t, store, 1, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 5)

    require.NoError(t, l.Reserve(ctx, s.ID, 4))
    err := l.Reserve(ctx, s.ID, 3)
    assert.ErrorIs(t, err, ErrInsufficientCapacity)

    // The refusal must not have moved the counter.
    got, err := store.GetByID(ctx, s.ID)
    require.NoError(t, err)
    assert.Equal(t, 4, got.Booked)
}

func TestReserveMissingSlot(t *testing.T) {
    l, _ := newTestLedger(t, 0)
    err := l.Reserve(context.Background(), 999, 1)
    assert.ErrorIs(t, err, repository.ErrSlotNotFound)
}

func TestReleaseFloorsAtZero(t *testing.T) {
    ctx := context.Background()
    l, store := newTestLedger(t, 0)
    s := mkSlot(t, store, 1, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 5)

    require.NoError(t, l.Reserve(ctx, s.ID, 1))
    require.NoError(t, l.Release(ctx, s.ID, 1))
    // A second release of the same seats is a no-op at the floor.
    require.NoError(t, l.Release(ctx, s.ID, 1))
    got, err := store.GetByID(ctx, s.ID)
    require.NoError(t, err)
    assert.Equal(t, 0, got.Booked)
}

func TestReleaseVanishedSlotIsNoOp(t *testing.T) {
    l, _ := newTestLedger(t, 0)
    assert.NoError(t, l.Release(context.Background(), 42, 1))
}

// Two buyers race for the same pair of seats on a capacity-2 slot:
// exactly one wins, the other is told the slot is full, and the
// counter lands exactly on capacity.
func TestConcurrentReserveLastSeats(t *testing.T) {
    ctx := context.Background()
    l, store := newTestLedger(t, 0)
    s := mkSlot(t, store, 1, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 2)

    var wg sync.WaitGroup
    errs := make([]error, 2)
    for i := 0; i < 2; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            errs[i] = l.Reserve(ctx, s.ID, 2)
        }(i)
    }
    wg.Wait()

    var wins, full int
    for _, err := range errs {
        switch {
        case err == nil:
            wins++
        case err == ErrInsufficientCapacity:
            full++
        default:
            t.Fatalf("unexpected error: %v", err)
        }
    }
    assert.Equal(t, 1, wins)
    assert.Equal(t, 1, full)

    got, err := store.GetByID(ctx, s.ID)
    require.NoError(t, err)
    assert.Equal(t, 2, got.Booked)
}

// Many buyers fan in on one slot: successes sum exactly to capacity,
// with no oversell and no lost reservation.
func TestConcurrentReserveFanIn(t *testing.T) {
    ctx := context.Background()
    l, store := newTestLedger(t, 0)
    const capacity = 10
    const buyers = 40
    s := mkSlot(t, store, 1, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), capacity)

    var wg sync.WaitGroup
    results := make([]error, buyers)
    for i := 0; i < buyers; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            results[i] = l.Reserve(ctx, s.ID, 1)
        }(i)
    }
    wg.Wait()

    var wins int
    for _, err := range results {
        if err == nil {
            wins++
        } else {
            assert.ErrorIs(t, err, ErrInsufficientCapacity)
        }
    }
    assert.Equal(t, capacity, wins)

    got, err := store.GetByID(ctx, s.ID)
    require.NoError(t, err)
    assert.Equal(t, capacity, got.Booked)
}

// Reserves and releases interleave: the counter always lands on the
// net sum and never dips below zero or above capacity.
func TestConcurrentReserveReleaseInterleaved(t *testing.T) {
    ctx := context.Background()
    l, store := newTestLedger(t, 0)
    s := mkSlot(t, store, 1, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 50)

    var wg sync.WaitGroup
    errs := make([]error, 20)
    for i := 0; i < 20; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            if err := l.Reserve(ctx, s.ID, 2); err != nil {
                errs[i] = err
                return
            }
            errs[i] = l.Release(ctx, s.ID, 1)
        }(i)
    }
    wg.Wait()
    for _, err := range errs {
        require.NoError(t, err)
    }

    got, err := store.GetByID(ctx, s.ID)
    require.NoError(t, err)
    assert.Equal(t, 20, got.Booked)
}

func TestCanReserve(t *testing.T) {
    ctx := context.Background()
    l, store := newTestLedger(t, 0)
    s := mkSlot(t, store, 1, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 2)

    ok, err := l.CanReserve(ctx, s.ID, 2)
    require.NoError(t, err)
    assert.True(t, ok)

    ok, err = l.CanReserve(ctx, s.ID, 3)
    require.NoError(t, err)
    assert.False(t, ok)

    closed := model.SlotClosed
    _, err = store.Update(ctx, s.ID, repository.SlotUpdate{Status: &closed})
    require.NoError(t, err)
    ok, err = l.CanReserve(ctx, s.ID, 1)
    require.NoError(t, err)
    assert.False(t, ok)

    _, err = l.CanReserve(ctx, 999, 1)
    assert.ErrorIs(t, err, repository.ErrSlotNotFound)
}

func TestAvailableDates(t *testing.T) {
    ctx := context.Background()
    l, store := newTestLedger(t, 2) // bookable from 2026-03-03

    mkSlot(t, store, 7, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 5)  // inside lead time, hidden
    mkSlot(t, store, 7, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), 5)  // available
    mkSlot(t, store, 7, time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC), 5) // same date, no duplicate
    full := mkSlot(t, store, 7, time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC), 1)
    require.NoError(t, l.Reserve(ctx, full.ID, 1)) // fully booked date, omitted
    mkSlot(t, store, 8, time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC), 5)  // other product

    dates, err := l.AvailableDates(ctx, 7)
    require.NoError(t, err)
    assert.Equal(t, []string{"2026-03-04"}, dates)
}

func TestSlotsOnDateIncludesFull(t *testing.T) {
    ctx := context.Background()
    l, store := newTestLedger(t, 0)

    a := mkSlot(t, store, 7, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), 1)
    b := mkSlot(t, store, 7, time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC), 5)
    mkSlot(t, store, 7, time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC), 5)
    require.NoError(t, l.Reserve(ctx, a.ID, 1))

    slots, err := l.SlotsOnDate(ctx, 7, "2026-03-04")
    require.NoError(t, err)
    require.Len(t, slots, 2)
    assert.Equal(t, a.ID, slots[0].ID)
    assert.Equal(t, 0, slots[0].Remaining())
    assert.Equal(t, b.ID, slots[1].ID)
}

func TestSlotsOnDateRejectsBadDate(t *testing.T) {
    l, _ := newTestLedger(t, 0)
    _, err := l.SlotsOnDate(context.Background(), 7, "04/03/2026")
    assert.ErrorIs(t, err, repository.ErrValidation)
}

func TestWithinLeadTime(t *testing.T) {
    l, _ := newTestLedger(t, 3) // earliest bookable start: 2026-03-04 00:00

    early := &model.Slot{StartAt: time.Date(2026, 3, 3, 23, 0, 0, 0, time.UTC)}
    onTime := &model.Slot{StartAt: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)}
    assert.False(t, l.WithinLeadTime(early))
    assert.True(t, l.WithinLeadTime(onTime))
}
