// This file defines the admin slot management endpoints: CRUD over
// course slots plus the per-product course-booking toggle. Capacity
// edits never touch the booked counter; reducing capacity below the
// booked count is allowed and simply shows the slot as overbooked
// until releases catch up.
package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/course-slot-booking/internal/ledger"
    "github.com/iliyamo/course-slot-booking/internal/model"
    "github.com/iliyamo/course-slot-booking/internal/repository"
)

// AdminHandler bundles the dependencies of the staff endpoints.
type AdminHandler struct {
    Slots    *repository.SlotRepo
    Products *repository.ProductRepo
    Ledger   *ledger.Ledger
}

func NewAdminHandler(slots *repository.SlotRepo, products *repository.ProductRepo, l *ledger.Ledger) *AdminHandler {
    if slots == nil || l == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    return &AdminHandler{Slots: slots, Products: products, Ledger: l}
}

// adminSlotView is a slot as shown to staff, counters included.
type adminSlotView struct {
    ID        uint64     `json:"id"`
    ProductID uint64     `json:"product_id"`
    StartAt   time.Time  `json:"start_at"`
    EndAt     *time.Time `json:"end_at,omitempty"`
    Capacity  int        `json:"capacity"`
    Booked    int        `json:"booked"`
    Remaining int        `json:"remaining"`
    Status    string     `json:"status"`
    CreatedAt time.Time  `json:"created_at"`
    UpdatedAt time.Time  `json:"updated_at"`
}

func adminSlot(s *model.Slot) adminSlotView {
    return adminSlotView{
        ID:        s.ID,
        ProductID: s.ProductID,
        StartAt:   s.StartAt,
        EndAt:     s.EndAt,
        Capacity:  s.Capacity,
        Booked:    s.Booked,
        Remaining: s.Remaining(),
        Status:    string(s.Status),
        CreatedAt: s.CreatedAt,
        UpdatedAt: s.UpdatedAt,
    }
}

// parseStoreTime parses a datetime in RFC3339 or the store-local
// "2006-01-02 15:04" form.
func (h *AdminHandler) parseStoreTime(raw string) (time.Time, bool) {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, raw); err == nil {
        return t, true
    }
    if t, err := time.ParseInLocation("2006-01-02 15:04", raw, h.Ledger.Location()); err == nil {
        return t, true
    }
    return time.Time{}, false
}

// CreateSlot handles POST /v1/admin/slots.
func (h *AdminHandler) CreateSlot(c echo.Context) error {
    var body struct {
        ProductID uint64 `json:"product_id"`
        StartAt   string `json:"start_at"`
        EndAt     string `json:"end_at"`
        Capacity  int    `json:"capacity"`
        Status    string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ProductID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_id is required"})
    }
    if body.Capacity <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
    }
    startAt, ok := h.parseStoreTime(body.StartAt)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_at"})
    }
    var endAt *time.Time
    if strings.TrimSpace(body.EndAt) != "" {
        t, ok := h.parseStoreTime(body.EndAt)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_at"})
        }
        if !t.After(startAt) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_at must be after start_at"})
        }
        endAt = &t
    }
    if h.Products != nil {
        if _, err := h.Products.GetByID(c.Request().Context(), body.ProductID); err != nil {
            return domainError(c, err)
        }
    }

    s := &model.Slot{
        ProductID: body.ProductID,
        StartAt:   startAt,
        EndAt:     endAt,
        Capacity:  body.Capacity,
        Status:    model.SlotStatus(strings.ToLower(strings.TrimSpace(body.Status))),
    }
    if s.Status == "" {
        s.Status = model.SlotOpen
    }
    if err := h.Slots.Create(c.Request().Context(), s); err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusCreated, adminSlot(s))
}

// ListSlots handles GET /v1/admin/slots with optional product_id,
// status, from, to, future and page/per_page query filters.
func (h *AdminHandler) ListSlots(c echo.Context) error {
    var f repository.SlotFilters
    if v := c.QueryParam("product_id"); v != "" {
        id, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product_id"})
        }
        f.ProductID = id
    }
    if v := c.QueryParam("status"); v != "" {
        st := model.SlotStatus(strings.ToLower(v))
        if !st.Valid() {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
        }
        f.Status = st
    }
    if v := c.QueryParam("from"); v != "" {
        t, ok := h.parseStoreTime(v + " 00:00")
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from date"})
        }
        f.DateFrom = &t
    }
    if v := c.QueryParam("to"); v != "" {
        t, ok := h.parseStoreTime(v + " 23:59")
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to date"})
        }
        f.DateTo = &t
    }
    f.FutureOnly = c.QueryParam("future") == "1" || strings.EqualFold(c.QueryParam("future"), "true")
    f.Page, _ = strconv.Atoi(c.QueryParam("page"))
    f.PerPage, _ = strconv.Atoi(c.QueryParam("per_page"))

    slots, total, err := h.Slots.List(c.Request().Context(), f)
    if err != nil {
        return domainError(c, err)
    }
    out := make([]adminSlotView, 0, len(slots))
    for i := range slots {
        out = append(out, adminSlot(&slots[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out, "total": total})
}

// GetSlot handles GET /v1/admin/slots/:id.
func (h *AdminHandler) GetSlot(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    s, err := h.Slots.GetByID(c.Request().Context(), id)
    if err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusOK, adminSlot(s))
}

// UpdateSlot handles PATCH /v1/admin/slots/:id.  Only the fields
// present in the body are changed; the booked counter is not
// settable through this endpoint.
func (h *AdminHandler) UpdateSlot(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var body struct {
        StartAt  *string `json:"start_at"`
        EndAt    *string `json:"end_at"`
        Capacity *int    `json:"capacity"`
        Status   *string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    var u repository.SlotUpdate
    if body.StartAt != nil {
        t, ok := h.parseStoreTime(*body.StartAt)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_at"})
        }
        u.StartAt = &t
    }
    if body.EndAt != nil {
        t, ok := h.parseStoreTime(*body.EndAt)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_at"})
        }
        u.EndAt = &t
    }
    if body.Capacity != nil {
        if *body.Capacity <= 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
        }
        u.Capacity = body.Capacity
    }
    if body.Status != nil {
        st := model.SlotStatus(strings.ToLower(strings.TrimSpace(*body.Status)))
        if !st.Valid() {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
        }
        u.Status = &st
    }

    s, err := h.Slots.Update(c.Request().Context(), id, u)
    if err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusOK, adminSlot(s))
}

// DeleteSlot handles DELETE /v1/admin/slots/:id.  Slots with booked
// seats cannot be deleted; close them instead.
func (h *AdminHandler) DeleteSlot(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if err := h.Slots.Delete(c.Request().Context(), id); err != nil {
        return domainError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ToggleSlot handles POST /v1/admin/slots/:id/toggle, flipping the
// slot between open and closed.  Booked seats are untouched either
// way; closing only stops new reservations.
func (h *AdminHandler) ToggleSlot(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    s, err := h.Slots.GetByID(c.Request().Context(), id)
    if err != nil {
        return domainError(c, err)
    }
    next := model.SlotClosed
    if s.Status == model.SlotClosed {
        next = model.SlotOpen
    }
    s, err = h.Slots.Update(c.Request().Context(), id, repository.SlotUpdate{Status: &next})
    if err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusOK, adminSlot(s))
}

// ProductSlots handles GET /v1/admin/products/:id/slots: every slot
// of one product, any status, newest filters from the query string.
func (h *AdminHandler) ProductSlots(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    f := repository.SlotFilters{ProductID: id}
    if v := c.QueryParam("status"); v != "" {
        st := model.SlotStatus(strings.ToLower(v))
        if !st.Valid() {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
        }
        f.Status = st
    }
    f.FutureOnly = c.QueryParam("future") == "1" || strings.EqualFold(c.QueryParam("future"), "true")
    f.Page, _ = strconv.Atoi(c.QueryParam("page"))
    f.PerPage, _ = strconv.Atoi(c.QueryParam("per_page"))

    slots, total, err := h.Slots.List(c.Request().Context(), f)
    if err != nil {
        return domainError(c, err)
    }
    out := make([]adminSlotView, 0, len(slots))
    for i := range slots {
        out = append(out, adminSlot(&slots[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out, "total": total})
}

// ToggleCourse handles POST /v1/admin/products/:id/course-toggle.
func (h *AdminHandler) ToggleCourse(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var body struct {
        Enabled bool `json:"enabled"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := h.Products.SetCourseEnabled(c.Request().Context(), id, body.Enabled); err != nil {
        return domainError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"product_id": id, "course_enabled": body.Enabled})
}
