package bookings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evgrid/chargeq/core/allocation"
	"github.com/evgrid/chargeq/core/catalog"
	"github.com/evgrid/chargeq/core/ledger"
	"github.com/evgrid/chargeq/core/model"
	"github.com/evgrid/chargeq/core/waitlist"
	"github.com/evgrid/chargeq/internal/eventbus"
)

func testEngine(t *testing.T) *allocation.Engine {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC) }
	st := model.Station{
		ID:    "S1",
		Name:  "Downtown Charging Hub",
		Hours: model.OperatingHours{Open: 14 * 60, Close: 15 * 60},
		Slots: []model.SlotDefinition{{ID: "S1-1", Level: model.LevelL3, PowerKW: 150}},
	}
	bus := eventbus.NewBuffered(16)
	t.Cleanup(bus.Close)
	led := ledger.New(bus, nil, nil, now)
	cat, err := catalog.New(catalog.Config{}, []model.Station{st}, led, now)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	eng, err := allocation.New(cat, led, waitlist.New(now), bus, allocation.Config{}, nil, nil, now)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return eng
}

func postBooking(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/bookings", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

const requestBody = `{"requester_id":"driver-a","station_id":"S1","date":"2025-03-04","soc":50,"level":"L3"}`

func TestCreateBookingConfirmed(t *testing.T) {
	h := NewHandler(testEngine(t))
	rr := postBooking(t, h, requestBody)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var res allocation.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != allocation.StatusConfirmed || res.Booking == nil {
		t.Fatalf("result %+v", res)
	}
	if res.Booking.Slot.StationID != "S1" {
		t.Fatalf("booked station %s", res.Booking.Slot.StationID)
	}
}

func TestCreateBookingWaitlisted(t *testing.T) {
	h := NewHandler(testEngine(t))
	if rr := postBooking(t, h, requestBody); rr.Code != http.StatusCreated {
		t.Fatalf("first booking: %d", rr.Code)
	}
	rr := postBooking(t, h, strings.Replace(requestBody, "driver-a", "driver-b", 1))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var res allocation.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != allocation.StatusWaitlisted || res.Entry == nil || res.Entry.Position != 1 {
		t.Fatalf("result %+v", res)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	h := NewHandler(testEngine(t))
	cases := map[string]string{
		"bad json":      `{`,
		"missing level": `{"requester_id":"driver-a","station_id":"S1","date":"2025-03-04","soc":50}`,
		"bad station":   `{"requester_id":"driver-a","station_id":"nope","date":"2025-03-04","soc":50,"level":"L3"}`,
		"off-grid window": `{"requester_id":"driver-a","station_id":"S1","date":"2025-03-04","soc":50,"level":"L3",` +
			`"window":{"start":"14:05","end":"15:05"}}`,
	}
	for name, body := range cases {
		rr := postBooking(t, h, body)
		if rr.Code != http.StatusBadRequest && rr.Code != http.StatusNotFound {
			t.Errorf("%s: status %d", name, rr.Code)
		}
	}
}

func TestListAndCancel(t *testing.T) {
	h := NewHandler(testEngine(t))
	rr := postBooking(t, h, requestBody)
	var res allocation.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/bookings?requester=driver-a", nil)
	lrr := httptest.NewRecorder()
	h.ServeHTTP(lrr, req)
	if lrr.Code != http.StatusOK {
		t.Fatalf("list status %d", lrr.Code)
	}
	var got []model.Booking
	if err := json.Unmarshal(lrr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(got) != 1 || got[0].ID != res.Booking.ID {
		t.Fatalf("list %+v", got)
	}

	dreq := httptest.NewRequest("DELETE", "/api/bookings/"+res.Booking.ID, nil)
	drr := httptest.NewRecorder()
	h.ServeHTTP(drr, dreq)
	if drr.Code != http.StatusOK {
		t.Fatalf("cancel status %d: %s", drr.Code, drr.Body.String())
	}
	var cancelled model.Booking
	if err := json.Unmarshal(drr.Body.Bytes(), &cancelled); err != nil {
		t.Fatalf("decode cancel: %v", err)
	}
	if cancelled.Status != model.BookingCancelled {
		t.Fatalf("status after cancel %s", cancelled.Status)
	}
}

func TestCancelUnknownBooking(t *testing.T) {
	h := NewHandler(testEngine(t))
	req := httptest.NewRequest("DELETE", "/api/bookings/missing", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestListRequiresRequester(t *testing.T) {
	h := NewHandler(testEngine(t))
	req := httptest.NewRequest("GET", "/api/bookings", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
}
