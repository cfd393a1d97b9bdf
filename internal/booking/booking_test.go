package booking

import (
    "context"
    "io"
    "sync"
    "testing"
    "time"

    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/course-slot-booking/internal/ledger"
    "github.com/iliyamo/course-slot-booking/internal/model"
    "github.com/iliyamo/course-slot-booking/internal/repository"
)

// fakeOrders mimics the order repository with database copy
// semantics: reads hand out copies, SaveLineBooking writes the
// booking fields back.
type fakeOrders struct {
    mu     sync.Mutex
    orders map[uint64]*model.Order
    notes  map[uint64][]string
}

func newFakeOrders() *fakeOrders {
    return &fakeOrders{orders: make(map[uint64]*model.Order), notes: make(map[uint64][]string)}
}

func (f *fakeOrders) put(o *model.Order) {
    f.mu.Lock()
    defer f.mu.Unlock()
    cp := *o
    cp.Lines = append([]model.OrderLine(nil), o.Lines...)
    f.orders[o.ID] = &cp
}

func (f *fakeOrders) GetOrder(_ context.Context, id uint64) (*model.Order, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    o, ok := f.orders[id]
    if !ok {
        return nil, repository.ErrOrderNotFound
    }
    cp := *o
    cp.Lines = append([]model.OrderLine(nil), o.Lines...)
    return &cp, nil
}

func (f *fakeOrders) GetLine(_ context.Context, orderID, itemID uint64) (*model.OrderLine, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    o, ok := f.orders[orderID]
    if !ok {
        return nil, repository.ErrOrderNotFound
    }
    for i := range o.Lines {
        if o.Lines[i].ID == itemID {
            cp := o.Lines[i]
            return &cp, nil
        }
    }
    return nil, repository.ErrLineNotFound
}

func (f *fakeOrders) SaveLineBooking(_ context.Context, l *model.OrderLine) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    o, ok := f.orders[l.OrderID]
    if !ok {
        return repository.ErrOrderNotFound
    }
    for i := range o.Lines {
        if o.Lines[i].ID == l.ID {
            o.Lines[i].SlotID = l.SlotID
            o.Lines[i].SlotQty = l.SlotQty
            o.Lines[i].ReservationState = l.ReservationState
            o.Lines[i].PendingDeferred = l.PendingDeferred
            return nil
        }
    }
    return repository.ErrLineNotFound
}

func (f *fakeOrders) AddOrderNote(_ context.Context, orderID uint64, note string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.notes[orderID] = append(f.notes[orderID], note)
    return nil
}

func (f *fakeOrders) BookingsForSlot(_ context.Context, slotID uint64) ([]model.SlotBooking, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.SlotBooking
    for _, o := range f.orders {
        for _, l := range o.Lines {
            if l.SlotID != nil && *l.SlotID == slotID {
                out = append(out, model.SlotBooking{
                    OrderID: o.ID, ItemID: l.ID, CustomerEmail: o.BillingEmail,
                    ProductName: l.ProductName, Quantity: l.BookingQuantity(),
                    OrderStatus: o.Status, State: l.ReservationState,
                })
            }
        }
    }
    return out, nil
}

func (f *fakeOrders) PendingDeferred(_ context.Context) ([]model.SlotBooking, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.SlotBooking
    for _, o := range f.orders {
        for _, l := range o.Lines {
            if l.PendingDeferred && l.SlotID == nil {
                out = append(out, model.SlotBooking{OrderID: o.ID, ItemID: l.ID, ProductName: l.ProductName})
            }
        }
    }
    return out, nil
}

type fakeProducts struct{ products map[uint64]*model.Product }

func (f *fakeProducts) GetByID(_ context.Context, id uint64) (*model.Product, error) {
    p, ok := f.products[id]
    if !ok {
        return nil, repository.ErrProductNotFound
    }
    cp := *p
    return &cp, nil
}

type fixture struct {
    svc      *Service
    store    *repository.MemorySlotStore
    orders   *fakeOrders
    products *fakeProducts
}

func newFixture(t *testing.T) *fixture {
    t.Helper()
    log := logrus.New()
    log.SetOutput(io.Discard)
    store := repository.NewMemorySlotStore()
    led := ledger.New(store, time.UTC, 0, log)
    orders := newFakeOrders()
    products := &fakeProducts{products: map[uint64]*model.Product{
        10: {ID: 10, Name: "Sourdough Basics", CourseEnabled: true},
        11: {ID: 11, Name: "Gift Card", CourseEnabled: false},
    }}
    return &fixture{
        svc:      NewService(led, orders, products, nil, log),
        store:    store,
        orders:   orders,
        products: products,
    }
}

func (fx *fixture) slot(t *testing.T, productID uint64, startIn time.Duration, capacity int) *model.Slot {
    t.Helper()
    s := &model.Slot{ProductID: productID, StartAt: time.Now().UTC().Add(startIn), Capacity: capacity}
    require.NoError(t, fx.store.Create(context.Background(), s))
    return s
}

func (fx *fixture) booked(t *testing.T, slotID uint64) int {
    t.Helper()
    s, err := fx.store.GetByID(context.Background(), slotID)
    require.NoError(t, err)
    return s.Booked
}

func ptr(v uint64) *uint64 { return &v }

func TestFinalizeOrderReservesChosenLines(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    s1 := fx.slot(t, 10, 72*time.Hour, 5)
    s2 := fx.slot(t, 10, 96*time.Hour, 5)

    fx.orders.put(&model.Order{
        ID: 100, BillingEmail: "amy@example.com", Status: "processing",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, ProductName: "Sourdough Basics", Quantity: 2, SlotID: ptr(s1.ID), ReservationState: model.ReservationNone},
            {ID: 2, OrderID: 100, ProductID: 10, ProductName: "Sourdough Basics", Quantity: 1, SlotID: ptr(s2.ID), ReservationState: model.ReservationNone},
            {ID: 3, OrderID: 100, ProductID: 10, ProductName: "Sourdough Basics", Quantity: 1, PendingDeferred: true},
        },
    })

    require.NoError(t, fx.svc.FinalizeOrder(ctx, 100))
    assert.Equal(t, 2, fx.booked(t, s1.ID))
    assert.Equal(t, 1, fx.booked(t, s2.ID))

    o, err := fx.orders.GetOrder(ctx, 100)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationReserved, o.Lines[0].ReservationState)
    assert.Equal(t, model.ReservationReserved, o.Lines[1].ReservationState)
    // The deferred line has no slot and stays untouched.
    assert.Equal(t, model.ReservationNone, o.Lines[2].ReservationState)
}

func TestFinalizeOrderIsIdempotent(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    s1 := fx.slot(t, 10, 72*time.Hour, 5)

    fx.orders.put(&model.Order{
        ID: 100, Status: "processing",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, Quantity: 2, SlotID: ptr(s1.ID), ReservationState: model.ReservationNone},
        },
    })

    require.NoError(t, fx.svc.FinalizeOrder(ctx, 100))
    require.NoError(t, fx.svc.FinalizeOrder(ctx, 100))
    require.NoError(t, fx.svc.FinalizeOrder(ctx, 100))
    assert.Equal(t, 2, fx.booked(t, s1.ID))
}

func TestFinalizeOrderPartialFailureKeepsSiblings(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    roomy := fx.slot(t, 10, 72*time.Hour, 5)
    tight := fx.slot(t, 10, 96*time.Hour, 1)
    // Someone else already took the tight slot's only seat.
    ok, err := fx.store.ReserveSeats(ctx, tight.ID, 1)
    require.NoError(t, err)
    require.True(t, ok)

    fx.orders.put(&model.Order{
        ID: 100, Status: "processing",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, Quantity: 1, SlotID: ptr(roomy.ID), ReservationState: model.ReservationNone},
            {ID: 2, OrderID: 100, ProductID: 10, Quantity: 1, SlotID: ptr(tight.ID), ReservationState: model.ReservationNone},
        },
    })

    err = fx.svc.FinalizeOrder(ctx, 100)
    var pf *PartialFailure
    require.ErrorAs(t, err, &pf)
    assert.Equal(t, []uint64{1}, pf.Succeeded)
    require.Len(t, pf.Failed, 1)
    assert.Equal(t, uint64(2), pf.Failed[0].ItemID)
    assert.ErrorIs(t, pf.Failed[0].Err, ledger.ErrInsufficientCapacity)

    // The sibling's reservation survives the failure.
    assert.Equal(t, 1, fx.booked(t, roomy.ID))
    o, err := fx.orders.GetOrder(ctx, 100)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationReserved, o.Lines[0].ReservationState)
    assert.Equal(t, model.ReservationNone, o.Lines[1].ReservationState)
}

func TestReleaseOrderIsIdempotent(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    s1 := fx.slot(t, 10, 72*time.Hour, 5)

    fx.orders.put(&model.Order{
        ID: 100, Status: "processing",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, Quantity: 3, SlotID: ptr(s1.ID), ReservationState: model.ReservationNone},
        },
    })
    require.NoError(t, fx.svc.FinalizeOrder(ctx, 100))
    assert.Equal(t, 3, fx.booked(t, s1.ID))

    require.NoError(t, fx.svc.ReleaseOrder(ctx, 100, "order cancelled"))
    require.NoError(t, fx.svc.ReleaseOrder(ctx, 100, "order cancelled"))
    assert.Equal(t, 0, fx.booked(t, s1.ID))

    o, err := fx.orders.GetOrder(ctx, 100)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationReleased, o.Lines[0].ReservationState)
}

func TestReleaseOrderSurvivesVanishedSlot(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    s1 := fx.slot(t, 10, 72*time.Hour, 5)

    fx.orders.put(&model.Order{
        ID: 100, Status: "processing",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, Quantity: 1, SlotID: ptr(s1.ID), ReservationState: model.ReservationReserved},
        },
    })
    // Slot disappeared between reserve and release.
    require.NoError(t, fx.store.Delete(ctx, s1.ID))

    require.NoError(t, fx.svc.ReleaseOrder(ctx, 100, "order cancelled"))
    o, err := fx.orders.GetOrder(ctx, 100)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationReleased, o.Lines[0].ReservationState)
}

func TestAdminAssignReservesImmediatelyOnFinalizedOrder(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    s1 := fx.slot(t, 10, 72*time.Hour, 5)

    fx.orders.put(&model.Order{
        ID: 100, Status: "completed",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, Quantity: 2, ReservationState: model.ReservationNone},
        },
    })

    line, err := fx.svc.AdminAssign(ctx, 100, 1, s1.ID, 0)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationReserved, line.ReservationState)
    assert.Equal(t, 2, fx.booked(t, s1.ID))
    assert.NotEmpty(t, fx.orders.notes[100])
}

func TestAdminAssignDefersOnUnpaidOrder(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    s1 := fx.slot(t, 10, 72*time.Hour, 5)

    fx.orders.put(&model.Order{
        ID: 100, Status: "pending",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, Quantity: 2, ReservationState: model.ReservationNone},
        },
    })

    line, err := fx.svc.AdminAssign(ctx, 100, 1, s1.ID, 0)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationNone, line.ReservationState)
    assert.Equal(t, 0, fx.booked(t, s1.ID))

    // Payment lands later; the finalize hook commits the choice.
    o, _ := fx.orders.GetOrder(ctx, 100)
    o.Status = "processing"
    fx.orders.put(o)
    require.NoError(t, fx.svc.FinalizeOrder(ctx, 100))
    assert.Equal(t, 2, fx.booked(t, s1.ID))
}

func TestAdminAssignRejectsForeignSlot(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    other := fx.slot(t, 99, 72*time.Hour, 5)

    fx.orders.put(&model.Order{
        ID: 100, Status: "completed",
        Lines: []model.OrderLine{{ID: 1, OrderID: 100, ProductID: 10, Quantity: 1}},
    })

    _, err := fx.svc.AdminAssign(ctx, 100, 1, other.ID, 0)
    assert.ErrorIs(t, err, ErrProductMismatch)
}

func TestAdminChangeSlotMovesSeats(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    from := fx.slot(t, 10, 72*time.Hour, 5)
    to := fx.slot(t, 10, 96*time.Hour, 5)

    fx.orders.put(&model.Order{
        ID: 100, Status: "completed",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, Quantity: 2, SlotID: ptr(from.ID), SlotQty: 2, ReservationState: model.ReservationReserved},
        },
    })
    ok, err := fx.store.ReserveSeats(ctx, from.ID, 2)
    require.NoError(t, err)
    require.True(t, ok)

    line, err := fx.svc.AdminChangeSlot(ctx, 100, 1, to.ID)
    require.NoError(t, err)
    assert.Equal(t, to.ID, *line.SlotID)
    assert.Equal(t, 0, fx.booked(t, from.ID))
    assert.Equal(t, 2, fx.booked(t, to.ID))
}

func TestAdminChangeSlotFullTargetLeavesBookingIntact(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    from := fx.slot(t, 10, 72*time.Hour, 5)
    full := fx.slot(t, 10, 96*time.Hour, 1)
    ok, err := fx.store.ReserveSeats(ctx, from.ID, 2)
    require.NoError(t, err)
    require.True(t, ok)
    ok, err = fx.store.ReserveSeats(ctx, full.ID, 1)
    require.NoError(t, err)
    require.True(t, ok)

    fx.orders.put(&model.Order{
        ID: 100, Status: "completed",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, Quantity: 2, SlotID: ptr(from.ID), SlotQty: 2, ReservationState: model.ReservationReserved},
        },
    })

    _, err = fx.svc.AdminChangeSlot(ctx, 100, 1, full.ID)
    assert.ErrorIs(t, err, ledger.ErrInsufficientCapacity)

    // Nothing moved: the old reservation still holds its seats.
    assert.Equal(t, 2, fx.booked(t, from.ID))
    assert.Equal(t, 1, fx.booked(t, full.ID))
    o, err := fx.orders.GetOrder(ctx, 100)
    require.NoError(t, err)
    assert.Equal(t, from.ID, *o.Lines[0].SlotID)
    assert.Equal(t, model.ReservationReserved, o.Lines[0].ReservationState)
}

func TestCustomerLookupDoesNotLeakOrderExistence(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    fx.orders.put(&model.Order{ID: 100, BillingEmail: "amy@example.com", Status: "completed"})

    _, err := fx.svc.CustomerLookup(ctx, 100, "mallory@example.com")
    require.Error(t, err)
    _, err2 := fx.svc.CustomerLookup(ctx, 999, "amy@example.com")
    require.Error(t, err2)
    // Same error either way.
    assert.Equal(t, err, err2)
    assert.ErrorIs(t, err, ErrOrderAccessDenied)
}

func TestCustomerLookupIsCaseInsensitive(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    fx.orders.put(&model.Order{ID: 100, BillingEmail: "Amy@Example.com", Status: "completed"})

    o, err := fx.svc.CustomerLookup(ctx, 100, "  amy@example.COM ")
    require.NoError(t, err)
    assert.Equal(t, uint64(100), o.ID)
}

func TestCustomerAssignHappyPath(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    s1 := fx.slot(t, 10, 72*time.Hour, 5)

    fx.orders.put(&model.Order{
        ID: 100, BillingEmail: "amy@example.com", Status: "completed",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, ProductName: "Sourdough Basics", Quantity: 2, PendingDeferred: true},
        },
    })

    line, err := fx.svc.CustomerAssign(ctx, 100, "amy@example.com", 1, s1.ID)
    require.NoError(t, err)
    assert.Equal(t, s1.ID, *line.SlotID)
    assert.Equal(t, model.ReservationReserved, line.ReservationState)
    assert.False(t, line.PendingDeferred)
    assert.Equal(t, 2, fx.booked(t, s1.ID))
}

func TestCustomerAssignRules(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    open := fx.slot(t, 10, 72*time.Hour, 5)
    tooSoon := fx.slot(t, 10, -48*time.Hour, 5)
    foreign := fx.slot(t, 99, 72*time.Hour, 5)
    closedSlot := fx.slot(t, 10, 96*time.Hour, 5)
    closed := model.SlotClosed
    _, err := fx.store.Update(ctx, closedSlot.ID, repository.SlotUpdate{Status: &closed})
    require.NoError(t, err)

    fx.orders.put(&model.Order{
        ID: 100, BillingEmail: "amy@example.com", Status: "completed",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, Quantity: 1, PendingDeferred: true},
            {ID: 2, OrderID: 100, ProductID: 11, Quantity: 1, PendingDeferred: true},
            {ID: 3, OrderID: 100, ProductID: 10, Quantity: 1, SlotID: ptr(open.ID), ReservationState: model.ReservationReserved},
        },
    })

    _, err = fx.svc.CustomerAssign(ctx, 100, "amy@example.com", 1, closedSlot.ID)
    assert.ErrorIs(t, err, ErrSlotClosed)

    _, err = fx.svc.CustomerAssign(ctx, 100, "amy@example.com", 1, tooSoon.ID)
    assert.ErrorIs(t, err, ErrLeadTime)

    _, err = fx.svc.CustomerAssign(ctx, 100, "amy@example.com", 1, foreign.ID)
    assert.ErrorIs(t, err, ErrProductMismatch)

    _, err = fx.svc.CustomerAssign(ctx, 100, "amy@example.com", 2, open.ID)
    assert.ErrorIs(t, err, ErrNotCourseProduct)

    _, err = fx.svc.CustomerAssign(ctx, 100, "amy@example.com", 3, open.ID)
    assert.ErrorIs(t, err, ErrAlreadyAssigned)
}

// A line whose buyer never deferred the slot choice at checkout is
// not self-serviceable, even while it has no slot.  Such legacy lines
// belong to staff.
func TestCustomerAssignRequiresDeferredChoice(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    s1 := fx.slot(t, 10, 72*time.Hour, 5)

    fx.orders.put(&model.Order{
        ID: 100, BillingEmail: "amy@example.com", Status: "completed",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, Quantity: 1},
        },
    })

    _, err := fx.svc.CustomerAssign(ctx, 100, "amy@example.com", 1, s1.ID)
    assert.ErrorIs(t, err, ErrNotPendingDeferred)

    // No seats moved and the line is untouched.
    assert.Equal(t, 0, fx.booked(t, s1.ID))
    o, err := fx.orders.GetOrder(ctx, 100)
    require.NoError(t, err)
    assert.Nil(t, o.Lines[0].SlotID)
    assert.Equal(t, model.ReservationNone, o.Lines[0].ReservationState)

    // Staff can still finish it.
    _, err = fx.svc.AdminAssign(ctx, 100, 1, s1.ID, 1)
    require.NoError(t, err)
    assert.Equal(t, 1, fx.booked(t, s1.ID))
}

func TestCustomerAssignFullSlot(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    s1 := fx.slot(t, 10, 72*time.Hour, 1)
    ok, err := fx.store.ReserveSeats(ctx, s1.ID, 1)
    require.NoError(t, err)
    require.True(t, ok)

    fx.orders.put(&model.Order{
        ID: 100, BillingEmail: "amy@example.com", Status: "completed",
        Lines: []model.OrderLine{{ID: 1, OrderID: 100, ProductID: 10, Quantity: 1, PendingDeferred: true}},
    })

    _, err = fx.svc.CustomerAssign(ctx, 100, "amy@example.com", 1, s1.ID)
    assert.ErrorIs(t, err, ledger.ErrInsufficientCapacity)

    // Nothing was written to the line.
    o, err := fx.orders.GetOrder(ctx, 100)
    require.NoError(t, err)
    assert.Nil(t, o.Lines[0].SlotID)
}

func TestPendingDeferredListing(t *testing.T) {
    ctx := context.Background()
    fx := newFixture(t)
    s1 := fx.slot(t, 10, 72*time.Hour, 5)

    fx.orders.put(&model.Order{
        ID: 100, BillingEmail: "amy@example.com", Status: "completed",
        Lines: []model.OrderLine{
            {ID: 1, OrderID: 100, ProductID: 10, Quantity: 1, PendingDeferred: true},
            {ID: 2, OrderID: 100, ProductID: 10, Quantity: 1, SlotID: ptr(s1.ID), ReservationState: model.ReservationReserved},
        },
    })

    pending, err := fx.svc.PendingDeferred(ctx)
    require.NoError(t, err)
    require.Len(t, pending, 1)
    assert.Equal(t, uint64(1), pending[0].ItemID)
}
