package scenarios

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/evgrid/chargeq/core/allocation"
	"github.com/evgrid/chargeq/core/catalog"
	"github.com/evgrid/chargeq/core/ledger"
	coremetrics "github.com/evgrid/chargeq/core/metrics"
	"github.com/evgrid/chargeq/core/model"
	"github.com/evgrid/chargeq/core/waitlist"
	"github.com/evgrid/chargeq/infra/metrics"
	"github.com/evgrid/chargeq/internal/eventbus"
)

// RunScenario executes the steps against a fresh engine and checks the
// expected end state. The scenario clock starts at 09:00 on the scenario
// date and ticks one second per step so arrival order is deterministic.
func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	date, err := time.Parse(model.DateLayout, sc.Date)
	if err != nil {
		t.Fatalf("scenario date: %v", err)
	}
	clock := date.Add(9 * time.Hour)
	now := func() time.Time { return clock }

	st, err := sc.Station.ToModel()
	if err != nil {
		t.Fatalf("station: %v", err)
	}
	bus := eventbus.NewBuffered(64)
	defer bus.Close()
	led := ledger.New(bus, nil, nil, now)
	cat, err := catalog.New(catalog.Config{}, []model.Station{st}, led, now)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	engine, err := allocation.New(cat, led, waitlist.New(now), bus, allocation.Config{}, nil, sink, now)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	bookingIDs := map[string]string{}
	entryIDs := map[string]string{}

	for i, step := range sc.Steps {
		clock = clock.Add(time.Second)
		switch step.Action {
		case "request":
			window, err := step.ParseWindow()
			if err != nil {
				t.Fatalf("step %d window: %v", i, err)
			}
			level := model.ChargingLevel(step.Level)
			if step.Level == "" {
				level = st.Slots[0].Level
			}
			res, err := engine.RequestSlot(model.ChargeRequest{
				RequesterID: step.Requester,
				StationID:   st.ID,
				Date:        sc.Date,
				Window:      window,
				SoC:         step.SoC,
				Level:       level,
				CreatedAt:   clock,
			})
			if err != nil {
				t.Fatalf("step %d request %s: %v", i, step.Requester, err)
			}
			if step.Expect != "" && string(res.Status) != step.Expect {
				t.Fatalf("step %d request %s: got %s, want %s", i, step.Requester, res.Status, step.Expect)
			}
			if res.Booking != nil {
				bookingIDs[step.Requester] = res.Booking.ID
			}
			if res.Entry != nil {
				entryIDs[step.Requester] = res.Entry.ID
				if step.ExpectPosition != 0 && res.Entry.Position != step.ExpectPosition {
					t.Fatalf("step %d request %s: position %d, want %d",
						i, step.Requester, res.Entry.Position, step.ExpectPosition)
				}
			}
		case "cancel":
			id, ok := bookingIDs[step.Requester]
			if !ok {
				t.Fatalf("step %d cancel: no booking for %s", i, step.Requester)
			}
			if _, err := engine.CancelBooking(id); err != nil {
				t.Fatalf("step %d cancel %s: %v", i, step.Requester, err)
			}
		case "confirm":
			id, ok := entryIDs[step.Requester]
			if !ok {
				t.Fatalf("step %d confirm: no entry for %s", i, step.Requester)
			}
			b, err := engine.ConfirmOffer(id)
			switch step.Expect {
			case "", "booked":
				if err != nil {
					t.Fatalf("step %d confirm %s: %v", i, step.Requester, err)
				}
				bookingIDs[step.Requester] = b.ID
			case "expired":
				if err == nil {
					t.Fatalf("step %d confirm %s: expected expiry", i, step.Requester)
				}
			default:
				t.Fatalf("step %d confirm: unknown expect %q", i, step.Expect)
			}
		case "advance":
			clock = clock.Add(time.Duration(step.Minutes) * time.Minute)
		case "sweep":
			engine.SweepExpirations(clock)
		default:
			t.Fatalf("step %d: unknown action %q", i, step.Action)
		}
	}

	active := 0
	for _, b := range engine.Bookings().ListByStation(st.ID, sc.Date) {
		if b.Active() {
			active++
		}
	}
	if active != sc.Expected.Bookings {
		t.Errorf("scenario %s: %d active bookings, want %d", sc.Name, active, sc.Expected.Bookings)
	}
	waiting, notified := 0, 0
	for _, e := range engine.Waitlist().List(st.ID, sc.Date) {
		switch e.Status {
		case model.WaitWaiting:
			waiting++
		case model.WaitNotified:
			notified++
		}
	}
	if waiting != sc.Expected.Waiting {
		t.Errorf("scenario %s: %d waiting, want %d", sc.Name, waiting, sc.Expected.Waiting)
	}
	if notified != sc.Expected.Notified {
		t.Errorf("scenario %s: %d notified, want %d", sc.Name, notified, sc.Expected.Notified)
	}
}
