package repository

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/course-slot-booking/internal/model"
)

// MemorySlotStore is an in-memory implementation of the slot store
// with the same reserve/release semantics as the MySQL repository:
// the capacity check and the increment happen under one lock, so it
// is safe for concurrent use and behaves like the single-statement
// conditional UPDATE.  It backs the test suite and small deployments
// that do not need durable storage.
type MemorySlotStore struct {
    mu     sync.Mutex
    nextID uint64
    slots  map[uint64]*model.Slot
}

// NewMemorySlotStore returns an empty in-memory slot store.
func NewMemorySlotStore() *MemorySlotStore {
    return &MemorySlotStore{nextID: 1, slots: make(map[uint64]*model.Slot)}
}

// Create validates and stores a new slot, assigning its ID.
func (m *MemorySlotStore) Create(_ context.Context, s *model.Slot) error {
    if s.ProductID == 0 || s.Capacity <= 0 || s.StartAt.IsZero() {
        return ErrValidation
    }
    if s.Status == "" {
        s.Status = model.SlotOpen
    }
    if !s.Status.Valid() {
        return ErrValidation
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    s.ID = m.nextID
    m.nextID++
    s.Booked = 0
    now := time.Now()
    s.CreatedAt = now
    s.UpdatedAt = now
    cp := *s
    m.slots[s.ID] = &cp
    return nil
}

// GetByID returns a copy of the slot or ErrSlotNotFound.
func (m *MemorySlotStore) GetByID(_ context.Context, id uint64) (*model.Slot, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.slots[id]
    if !ok {
        return nil, ErrSlotNotFound
    }
    cp := *s
    return &cp, nil
}

// ListOpenByProduct returns open slots of a product starting at or
// after the given instant, ordered ascending by start time.
func (m *MemorySlotStore) ListOpenByProduct(_ context.Context, productID uint64, from time.Time) ([]model.Slot, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []model.Slot
    for _, s := range m.slots {
        if s.ProductID == productID && s.Status == model.SlotOpen && !s.StartAt.Before(from) {
            out = append(out, *s)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
    return out, nil
}

// Update applies externally settable fields, mirroring the SQL
// repository's rules.
func (m *MemorySlotStore) Update(_ context.Context, id uint64, u SlotUpdate) (*model.Slot, error) {
    if u.StartAt == nil && u.EndAt == nil && u.Capacity == nil && u.Status == nil {
        return nil, ErrValidation
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.slots[id]
    if !ok {
        return nil, ErrSlotNotFound
    }
    if u.StartAt != nil {
        if u.StartAt.IsZero() {
            return nil, ErrValidation
        }
        s.StartAt = *u.StartAt
    }
    if u.EndAt != nil {
        t := *u.EndAt
        s.EndAt = &t
    }
    if u.Capacity != nil {
        if *u.Capacity <= 0 {
            return nil, ErrValidation
        }
        s.Capacity = *u.Capacity
    }
    if u.Status != nil {
        if !u.Status.Valid() {
            return nil, ErrValidation
        }
        s.Status = *u.Status
    }
    s.UpdatedAt = time.Now()
    cp := *s
    return &cp, nil
}

// Delete removes a slot with no booked seats, returning ErrConflict
// while seats remain committed.
func (m *MemorySlotStore) Delete(_ context.Context, id uint64) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.slots[id]
    if !ok {
        return ErrSlotNotFound
    }
    if s.Booked > 0 {
        return ErrConflict
    }
    delete(m.slots, id)
    return nil
}

// ReserveSeats commits qty seats if and only if they fit within
// capacity, atomically with respect to other callers.
func (m *MemorySlotStore) ReserveSeats(_ context.Context, id uint64, qty int) (bool, error) {
    if qty <= 0 {
        return false, ErrValidation
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.slots[id]
    if !ok {
        return false, nil
    }
    if s.Booked+qty > s.Capacity {
        return false, nil
    }
    s.Booked += qty
    s.UpdatedAt = time.Now()
    return true, nil
}

// ReleaseSeats returns qty seats, flooring the counter at zero.
func (m *MemorySlotStore) ReleaseSeats(_ context.Context, id uint64, qty int) (bool, error) {
    if qty <= 0 {
        return false, ErrValidation
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.slots[id]
    if !ok {
        return false, nil
    }
    s.Booked -= qty
    if s.Booked < 0 {
        s.Booked = 0
    }
    s.UpdatedAt = time.Now()
    return true, nil
}
