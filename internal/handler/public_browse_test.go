package handler

import (
    "context"
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/course-slot-booking/internal/ledger"
    "github.com/iliyamo/course-slot-booking/internal/model"
    "github.com/iliyamo/course-slot-booking/internal/repository"
)

func newPublicFixture(t *testing.T) (*PublicHandler, *repository.MemorySlotStore) {
    t.Helper()
    log := logrus.New()
    log.SetOutput(io.Discard)
    store := repository.NewMemorySlotStore()
    led := ledger.New(store, time.UTC, 0, log)
    // Nil product repo: the handler then skips the course-enabled
    // check, which is exercised separately at the gateway level.
    return NewPublicHandler(led, nil), store
}

func doGet(t *testing.T, h echo.HandlerFunc, target, paramName, paramValue string) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, target, nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetParamNames(paramName)
    c.SetParamValues(paramValue)
    require.NoError(t, h(c))
    return rec
}

func TestGetAvailableDates(t *testing.T) {
    h, store := newPublicFixture(t)
    s := &model.Slot{ProductID: 7, StartAt: time.Now().UTC().Add(72 * time.Hour), Capacity: 4}
    require.NoError(t, store.Create(context.Background(), s))

    rec := doGet(t, h.GetAvailableDates, "/v1/products/7/available-dates", "id", "7")
    assert.Equal(t, http.StatusOK, rec.Code)

    var body struct {
        Dates []string `json:"dates"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    require.Len(t, body.Dates, 1)
    assert.Equal(t, s.StartAt.Format("2006-01-02"), body.Dates[0])
}

func TestGetAvailableDatesEmpty(t *testing.T) {
    h, _ := newPublicFixture(t)
    rec := doGet(t, h.GetAvailableDates, "/v1/products/7/available-dates", "id", "7")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"dates":[]}`, rec.Body.String())
}

func TestGetSlotsOnDateIncludesSoldOut(t *testing.T) {
    h, store := newPublicFixture(t)
    ctx := context.Background()
    // Pin the start to mid-day so the sibling slot two hours later is
    // guaranteed to fall on the same calendar date.
    day := time.Now().UTC().AddDate(0, 0, 3)
    start := time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, time.UTC)
    full := &model.Slot{ProductID: 7, StartAt: start, Capacity: 1}
    open := &model.Slot{ProductID: 7, StartAt: start.Add(2 * time.Hour), Capacity: 4}
    require.NoError(t, store.Create(ctx, full))
    require.NoError(t, store.Create(ctx, open))
    ok, err := store.ReserveSeats(ctx, full.ID, 1)
    require.NoError(t, err)
    require.True(t, ok)

    date := start.Format("2006-01-02")
    rec := doGet(t, h.GetSlotsOnDate, "/v1/products/7/slots?date="+date, "id", "7")
    assert.Equal(t, http.StatusOK, rec.Code)

    var body struct {
        Items []PublicSlot `json:"items"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    require.Len(t, body.Items, 2)
    assert.True(t, body.Items[0].SoldOut)
    assert.Equal(t, 0, body.Items[0].Remaining)
    assert.False(t, body.Items[1].SoldOut)
    assert.Equal(t, 4, body.Items[1].Remaining)
    // Capacity and booked counters are not part of the public shape.
    assert.NotContains(t, rec.Body.String(), "capacity")
    assert.NotContains(t, rec.Body.String(), "booked")
}

func TestGetSlotsOnDateValidation(t *testing.T) {
    h, _ := newPublicFixture(t)

    rec := doGet(t, h.GetSlotsOnDate, "/v1/products/7/slots", "id", "7")
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = doGet(t, h.GetSlotsOnDate, "/v1/products/7/slots?date=03-04-2026", "id", "7")
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = doGet(t, h.GetAvailableDates, "/v1/products/x/available-dates", "id", "x")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}
