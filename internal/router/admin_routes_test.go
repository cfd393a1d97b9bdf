package router

import (
    "io"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/course-slot-booking/internal/booking"
    "github.com/iliyamo/course-slot-booking/internal/handler"
    "github.com/iliyamo/course-slot-booking/internal/ledger"
    "github.com/iliyamo/course-slot-booking/internal/repository"
)

// The admin surface is a contract with staff tooling; registration
// drift would only show up in production 404s, so pin the route set.
func TestRegisterAdminRoutes(t *testing.T) {
    log := logrus.New()
    log.SetOutput(io.Discard)
    store := repository.NewMemorySlotStore()
    led := ledger.New(store, time.UTC, 0, log)
    svc := booking.NewService(led, nil, nil, nil, log)

    e := echo.New()
    RegisterAdmin(e,
        handler.NewAdminHandler(repository.NewSlotRepo(nil), nil, led),
        handler.NewAdminBookingHandler(svc),
        "secret")

    got := make(map[string]bool)
    for _, r := range e.Routes() {
        got[r.Method+" "+r.Path] = true
    }
    want := []string{
        "POST /v1/admin/slots",
        "GET /v1/admin/slots",
        "GET /v1/admin/slots/:id",
        "PATCH /v1/admin/slots/:id",
        "DELETE /v1/admin/slots/:id",
        "POST /v1/admin/slots/:id/toggle",
        "GET /v1/admin/products/:id/slots",
        "POST /v1/admin/products/:id/course-toggle",
        "GET /v1/admin/slots/:id/bookings",
        "GET /v1/admin/slots/:id/bookings.csv",
        "GET /v1/admin/pending-bookings",
        "POST /v1/admin/orders/:order_id/items/:item_id/assign",
        "POST /v1/admin/orders/:order_id/items/:item_id/change-slot",
    }
    for _, w := range want {
        assert.True(t, got[w], "missing route %s", w)
    }
}
