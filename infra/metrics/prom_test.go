package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/evgrid/chargeq/core/metrics"
	"github.com/evgrid/chargeq/core/model"
)

func TestPromSinkRecordsBookingEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	ev := coremetrics.BookingEvent{
		BookingID: "b1", RequesterID: "driver-a", StationID: "S1", SlotID: "S1-1",
		Level: model.LevelL3, Date: "2025-03-04", Action: "confirmed", SoC: 20, Time: time.Now(),
	}
	if err := sink.RecordBookingEvent(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	ev.Action = "cancelled"
	if err := sink.RecordBookingEvent(ev); err != nil {
		t.Fatalf("record: %v", err)
	}

	counter := sink.(*PromSink).bookings
	if got := testutil.ToFloat64(counter.WithLabelValues("S1", "L3", "confirmed")); got != 1 {
		t.Fatalf("confirmed count %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("S1", "L3", "cancelled")); got != 1 {
		t.Fatalf("cancelled count %v", got)
	}
}

func TestPromSinkRecordsOffersAndDepth(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	ps := sink.(*PromSink)
	if err := ps.RecordOfferEvent(coremetrics.OfferEvent{StationID: "S1", Action: "offered"}); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if err := ps.RecordWaitlistDepth(coremetrics.WaitlistSample{StationID: "S1", Date: "2025-03-04", Depth: 3}); err != nil {
		t.Fatalf("depth: %v", err)
	}
	if got := testutil.ToFloat64(ps.offers.WithLabelValues("S1", "offered")); got != 1 {
		t.Fatalf("offer count %v", got)
	}
	if got := testutil.ToFloat64(ps.depth.WithLabelValues("S1", "2025-03-04")); got != 3 {
		t.Fatalf("depth gauge %v", got)
	}
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	// Re-registering on the same registry must reuse the existing collectors.
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("second: %v", err)
	}
}

func TestMultiSinkFanout(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("prom: %v", err)
	}
	multi := NewMultiSink(prom, coremetrics.NopSink{})
	if err := multi.RecordBookingEvent(coremetrics.BookingEvent{StationID: "S1", Level: model.LevelL2, Action: "confirmed"}); err != nil {
		t.Fatalf("booking: %v", err)
	}
	if err := multi.RecordOfferEvent(coremetrics.OfferEvent{StationID: "S1", Action: "expired"}); err != nil {
		t.Fatalf("offer: %v", err)
	}
	ps := prom.(*PromSink)
	if got := testutil.ToFloat64(ps.bookings.WithLabelValues("S1", "L2", "confirmed")); got != 1 {
		t.Fatalf("fanout count %v", got)
	}
}

func TestNewSinkDisabled(t *testing.T) {
	sink, err := NewSink(coremetrics.Config{})
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if _, ok := sink.(coremetrics.NopSink); !ok {
		t.Fatalf("want NopSink, got %T", sink)
	}
}
