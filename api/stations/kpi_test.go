package stations

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evgrid/chargeq/core/model"
	"github.com/evgrid/chargeq/infra/history"
)

type memHistory struct{ recs []model.Booking }

func (m *memHistory) Query(_ context.Context, q history.Query) ([]model.Booking, error) {
	var res []model.Booking
	for _, b := range m.recs {
		if q.StationID != "" && b.Slot.StationID != q.StationID {
			continue
		}
		if !q.Start.IsZero() && b.CreatedAt.Before(q.Start) {
			continue
		}
		res = append(res, b)
	}
	return res, nil
}

func snapshot(id string, status model.BookingStatus, soc, minutes int) model.Booking {
	return model.Booking{
		ID:      id,
		Request: model.ChargeRequest{RequesterID: "driver-a", StationID: "S1", SoC: soc},
		Slot: model.SlotInstance{
			StationID: "S1", SlotID: "S1-1", Date: "2025-03-04",
			Window: model.TimeWindow{Start: 840, End: model.Clock(840 + minutes)},
		},
		Status:    status,
		CreatedAt: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC),
	}
}

func TestKPIHandlerAggregates(t *testing.T) {
	store := &memHistory{recs: []model.Booking{
		snapshot("b1", model.BookingConfirmed, 20, 60),
		snapshot("b1", model.BookingCompleted, 20, 60),
		snapshot("b2", model.BookingConfirmed, 40, 120),
		snapshot("b2", model.BookingCancelled, 40, 120),
		snapshot("b3", model.BookingConfirmed, 60, 60),
	}}
	h := NewKPIHandler(store, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/stations/S1/kpis", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var rep KPIReport
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Bookings != 3 || rep.Completed != 1 || rep.Cancelled != 1 || rep.Missed != 0 {
		t.Fatalf("counts %+v", rep)
	}
	if math.Abs(rep.CancelRate-1.0/3.0) > 1e-9 {
		t.Fatalf("cancel rate %v", rep.CancelRate)
	}
	if math.Abs(rep.MeanSoC-40) > 1e-9 {
		t.Fatalf("mean soc %v", rep.MeanSoC)
	}
	if math.Abs(rep.MeanSessionMin-80) > 1e-9 {
		t.Fatalf("mean session %v", rep.MeanSessionMin)
	}
	if rep.StdDevSoC <= 0 {
		t.Fatalf("stddev soc %v", rep.StdDevSoC)
	}
}

func TestKPIHandlerSingleBookingStdDev(t *testing.T) {
	store := &memHistory{recs: []model.Booking{snapshot("b1", model.BookingConfirmed, 50, 60)}}
	h := NewKPIHandler(store, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/stations/S1/kpis", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var rep KPIReport
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.StdDevSoC != 0 {
		t.Fatalf("stddev for one booking %v", rep.StdDevSoC)
	}
}

func TestKPIHandlerAuth(t *testing.T) {
	h := NewKPIHandler(&memHistory{}, "tok")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/stations/S1/kpis", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status without token %d", rr.Code)
	}

	req := httptest.NewRequest("GET", "/api/stations/S1/kpis", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status with token %d", rr.Code)
	}
}

func TestKPIHandlerBadPath(t *testing.T) {
	h := NewKPIHandler(&memHistory{}, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/stations/S1/other", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d", rr.Code)
	}
}
