// Package allocation implements the coordinator that turns charge requests
// into bookings or waitlist entries and promotes the waitlist as capacity
// frees up. The engine exclusively owns all state transitions; the catalog,
// ledger and queue are passive stores.
package allocation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/evgrid/chargeq/core/catalog"
	"github.com/evgrid/chargeq/core/events"
	"github.com/evgrid/chargeq/core/ledger"
	"github.com/evgrid/chargeq/core/logger"
	coremetrics "github.com/evgrid/chargeq/core/metrics"
	"github.com/evgrid/chargeq/core/model"
	"github.com/evgrid/chargeq/core/waitlist"
	"github.com/evgrid/chargeq/internal/eventbus"
)

// Status is the outcome class of a charge request.
type Status string

const (
	StatusConfirmed  Status = "confirmed"
	StatusWaitlisted Status = "waitlisted"
)

// Result is the answer to a RequestSlot call: exactly one of Booking or
// Entry is set depending on Status.
type Result struct {
	Status  Status                `json:"status"`
	Booking *model.Booking        `json:"booking,omitempty"`
	Entry   *waitlist.RankedEntry `json:"entry,omitempty"`
}

// Engine coordinates the catalog, ledger and waitlist queue.
type Engine struct {
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	queue   *waitlist.Queue
	bus     eventbus.EventBus
	log     logger.Logger
	sink    coremetrics.MetricsSink
	hold    time.Duration
	now     func() time.Time

	// mu serializes promotion and expiration decisions so that two
	// concurrent cancellations cannot both offer to the same head.
	mu        sync.Mutex
	positions map[queueKey]map[string]int
}

type queueKey struct {
	stationID string
	date      string
}

// New creates the engine. sink and now may be nil.
func New(cat *catalog.Catalog, led *ledger.Ledger, q *waitlist.Queue, bus eventbus.EventBus, cfg Config, log logger.Logger, sink coremetrics.MetricsSink, now func() time.Time) (*Engine, error) {
	if cat == nil || led == nil || q == nil {
		return nil, fmt.Errorf("allocation: nil store provided to New")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		catalog:   cat,
		ledger:    led,
		queue:     q,
		bus:       bus,
		log:       log,
		sink:      sink,
		hold:      time.Duration(cfg.HoldMinutes) * time.Minute,
		now:       now,
		positions: map[queueKey]map[string]int{},
	}, nil
}

// RequestSlot allocates a slot for the request or enqueues it. A lost commit
// race is retried once against fresh availability before falling back to the
// waitlist; SlotConflict is never surfaced to the caller.
func (e *Engine) RequestSlot(req model.ChargeRequest) (Result, error) {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = e.now()
	}
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if _, err := e.catalog.Station(req.StationID); err != nil {
		return Result{}, err
	}
	if err := e.catalog.CheckDate(req.Date); err != nil {
		return Result{}, err
	}
	if req.Window != nil {
		if err := e.catalog.ValidateWindow(req.StationID, req.Level, *req.Window); err != nil {
			return Result{}, err
		}
	}

	// Purge lapsed holds before touching availability so a dead offer
	// cannot shadow a bookable instance.
	e.mu.Lock()
	e.sweepLocked(e.now())
	e.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		cands, err := e.catalog.Candidates(req.StationID, req.Date, req.Level, req.Window)
		if err != nil {
			return Result{}, err
		}
		if len(cands) == 0 {
			break
		}
		b, err := e.ledger.Commit(cands[0], req)
		if err == nil {
			bookingsConfirmed.WithLabelValues(b.Slot.StationID, string(b.Slot.Level)).Inc()
			e.recordBooking(b, "confirmed")
			return Result{Status: StatusConfirmed, Booking: &b}, nil
		}
		if !errors.Is(err, model.ErrSlotConflict) {
			return Result{}, err
		}
		commitRetries.Inc()
		if e.log != nil {
			e.log.Warnf("commit race lost on %s, retrying", cands[0].Key())
		}
	}
	return e.enqueue(req)
}

func (e *Engine) enqueue(req model.ChargeRequest) (Result, error) {
	entry, err := e.queue.Enqueue(req)
	if err != nil {
		return Result{}, err
	}
	waitlistEnqueued.WithLabelValues(req.StationID).Inc()
	if e.log != nil {
		e.log.Infof("request from %s waitlisted at position %d for %s/%s",
			req.RequesterID, entry.Position, req.StationID, req.Date)
	}
	e.publish(events.WaitlistJoined{Entry: entry.WaitlistEntry, Position: entry.Position})
	e.mu.Lock()
	e.publishPositionsLocked(queueKey{req.StationID, req.Date})
	e.mu.Unlock()
	return Result{Status: StatusWaitlisted, Entry: &entry}, nil
}

// CancelBooking releases the booking's slot and promotes the waitlist for
// its (station, date).
func (e *Engine) CancelBooking(bookingID string) (model.Booking, error) {
	b, err := e.ledger.Cancel(bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	e.recordBooking(b, "cancelled")
	e.mu.Lock()
	e.sweepLocked(e.now())
	e.promoteLocked(queueKey{b.Slot.StationID, b.Slot.Date})
	e.mu.Unlock()
	return b, nil
}

// ConfirmOffer converts an outstanding offer into a booking. It fails with
// ErrOfferExpired when the hold deadline has passed or the slot was
// reclaimed; the next entry in line is then offered immediately.
func (e *Engine) ConfirmOffer(entryID string) (model.Booking, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	e.sweepLocked(now)

	entry, err := e.queue.Get(entryID)
	if err != nil {
		return model.Booking{}, err
	}
	switch entry.Status {
	case model.WaitNotified:
		// proceed
	case model.WaitExpired:
		return model.Booking{}, fmt.Errorf("offer for entry %s lapsed: %w", entryID, model.ErrOfferExpired)
	case model.WaitConverted:
		return model.Booking{}, fmt.Errorf("entry %s already converted: %w", entryID, model.ErrNotFound)
	default:
		return model.Booking{}, fmt.Errorf("entry %s has no outstanding offer: %w", entryID, model.ErrNotFound)
	}
	if entry.OfferedKey == nil || entry.OfferDeadline == nil {
		return model.Booking{}, fmt.Errorf("entry %s has no offered slot: %w", entryID, model.ErrNotFound)
	}

	inst, err := e.instanceFromKey(*entry.OfferedKey)
	if err != nil {
		return model.Booking{}, err
	}
	b, err := e.ledger.CommitHeld(inst, entry.Request, entry.ID)
	if err != nil {
		// The hold was reclaimed in the interim. Expire the entry and
		// immediately re-offer to the next in line.
		e.expireEntryLocked(entry)
		e.promoteLocked(queueKey{entry.StationID, entry.Date})
		return model.Booking{}, fmt.Errorf("slot %s reclaimed: %w", entry.OfferedKey, model.ErrOfferExpired)
	}
	resolved, err := e.queue.Resolve(entry.ID, model.WaitConverted)
	if err != nil {
		return model.Booking{}, err
	}
	offersConverted.WithLabelValues(entry.StationID).Inc()
	e.recordBooking(b, "confirmed")
	e.recordOffer(resolved, "converted")
	e.publish(events.OfferConverted{Entry: resolved, Booking: b})
	e.publishPositionsLocked(queueKey{entry.StationID, entry.Date})
	return b, nil
}

// SweepExpirations purges lapsed offers and cascades each freed hold to the
// next compatible entry. Safe to call from a timer and from entry points.
func (e *Engine) SweepExpirations(now time.Time) []model.WaitlistEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	expired := e.sweepLocked(now)
	return expired
}

// Bookings exposes the read-only ledger projections.
func (e *Engine) Bookings() *ledger.Ledger { return e.ledger }

// Waitlist exposes the read-only queue projections.
func (e *Engine) Waitlist() *waitlist.Queue { return e.queue }

// Catalog exposes the slot inventory.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// sweepLocked expires overdue offers, releases their holds and re-promotes
// the affected queues. Caller holds e.mu.
func (e *Engine) sweepLocked(now time.Time) []model.WaitlistEntry {
	expired := e.queue.ExpireOverdue(now)
	touched := map[queueKey]bool{}
	for _, entry := range expired {
		if entry.OfferedKey != nil {
			e.ledger.ReleaseHold(*entry.OfferedKey)
		}
		offersExpired.WithLabelValues(entry.StationID).Inc()
		if e.log != nil {
			e.log.Infof("offer for entry %s expired, re-offering %s/%s", entry.ID, entry.StationID, entry.Date)
		}
		e.recordOffer(entry, "expired")
		e.publish(events.OfferExpired{Entry: entry})
		touched[queueKey{entry.StationID, entry.Date}] = true
	}
	for qk := range touched {
		e.promoteLocked(qk)
	}
	// Position snapshots for dates that fell out of the bookable horizon
	// can never change again; keeping them would grow without bound.
	for qk := range e.positions {
		if e.catalog.CheckDate(qk.date) != nil {
			delete(e.positions, qk)
		}
	}
	return expired
}

// expireEntryLocked force-expires a single notified entry whose slot was
// reclaimed. Caller holds e.mu.
func (e *Engine) expireEntryLocked(entry model.WaitlistEntry) {
	resolved, err := e.queue.Resolve(entry.ID, model.WaitExpired)
	if err != nil {
		return
	}
	if resolved.OfferedKey != nil {
		e.ledger.ReleaseHold(*resolved.OfferedKey)
	}
	offersExpired.WithLabelValues(entry.StationID).Inc()
	e.recordOffer(resolved, "expired")
	e.publish(events.OfferExpired{Entry: resolved})
}

// promoteLocked walks the queue in priority order and offers each entry the
// first free compatible instance. Promotion is head-first: a less urgent
// entry is only reached once every entry above it holds an offer or has no
// compatible capacity. Caller holds e.mu.
func (e *Engine) promoteLocked(qk queueKey) {
	for {
		offered := false
		for _, ranked := range e.queue.List(qk.stationID, qk.date) {
			entry := ranked.WaitlistEntry
			if entry.Status != model.WaitWaiting {
				continue
			}
			cands, err := e.catalog.Candidates(qk.stationID, qk.date, entry.Request.Level, entry.Request.Window)
			if err != nil || len(cands) == 0 {
				continue
			}
			inst := cands[0]
			if err := e.ledger.Hold(inst.Key(), entry.ID); err != nil {
				continue
			}
			deadline := e.now().Add(e.hold)
			notified, err := e.queue.Notify(entry.ID, inst.Key(), deadline)
			if err != nil {
				e.ledger.ReleaseHold(inst.Key())
				continue
			}
			offersMade.WithLabelValues(qk.stationID).Inc()
			if e.log != nil {
				e.log.Infof("slot %s offered to entry %s until %s", inst.Key(), entry.ID, deadline.Format(time.RFC3339))
			}
			e.recordOffer(notified, "offered")
			e.publish(events.SlotOffered{Entry: notified, Key: inst.Key(), Deadline: deadline})
			offered = true
			break // re-list: holds changed availability
		}
		if !offered {
			break
		}
	}
	e.publishPositionsLocked(qk)
}

// publishPositionsLocked emits WaitlistPositionChanged for waiting entries
// whose derived rank moved since the last publication. Caller holds e.mu.
func (e *Engine) publishPositionsLocked(qk queueKey) {
	current := map[string]int{}
	var changed []events.WaitlistPositionChanged
	for _, ranked := range e.queue.List(qk.stationID, qk.date) {
		if ranked.Status != model.WaitWaiting {
			continue
		}
		current[ranked.ID] = ranked.Position
		if prev, seen := e.positions[qk][ranked.ID]; seen && prev != ranked.Position {
			changed = append(changed, events.WaitlistPositionChanged{
				Entry:       ranked.WaitlistEntry,
				NewPosition: ranked.Position,
			})
		}
	}
	e.positions[qk] = current
	waitlistDepth.WithLabelValues(qk.stationID, qk.date).Set(float64(len(current)))
	if rec, ok := e.sink.(coremetrics.WaitlistDepthRecorder); ok {
		_ = rec.RecordWaitlistDepth(coremetrics.WaitlistSample{
			StationID: qk.stationID,
			Date:      qk.date,
			Depth:     len(current),
			Time:      e.now(),
		})
	}
	for _, ev := range changed {
		e.publish(ev)
	}
}

// instanceFromKey rebuilds the full slot instance for a held key.
func (e *Engine) instanceFromKey(key model.InstanceKey) (model.SlotInstance, error) {
	st, err := e.catalog.Station(key.StationID)
	if err != nil {
		return model.SlotInstance{}, err
	}
	def, ok := st.Slot(key.SlotID)
	if !ok {
		return model.SlotInstance{}, fmt.Errorf("slot %s at %s: %w", key.SlotID, key.StationID, model.ErrNotFound)
	}
	for _, w := range e.catalog.GenerateWindows(def, st.Hours) {
		if w.Start == key.Start {
			return model.SlotInstance{
				StationID: key.StationID,
				SlotID:    key.SlotID,
				Level:     def.Level,
				PowerKW:   def.PowerKW,
				Date:      key.Date,
				Window:    w,
				State:     model.SlotHeld,
			}, nil
		}
	}
	return model.SlotInstance{}, fmt.Errorf("window at %s for slot %s: %w", key.Start, key.SlotID, model.ErrNotFound)
}

func (e *Engine) publish(ev eventbus.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) recordBooking(b model.Booking, action string) {
	err := e.sink.RecordBookingEvent(coremetrics.BookingEvent{
		BookingID:   b.ID,
		RequesterID: b.Request.RequesterID,
		StationID:   b.Slot.StationID,
		SlotID:      b.Slot.SlotID,
		Level:       b.Slot.Level,
		Date:        b.Slot.Date,
		Action:      action,
		SoC:         b.Request.SoC,
		Time:        e.now(),
	})
	if err != nil && e.log != nil {
		e.log.Errorf("metrics error: %v", err)
	}
}

func (e *Engine) recordOffer(entry model.WaitlistEntry, action string) {
	rec, ok := e.sink.(coremetrics.OfferRecorder)
	if !ok {
		return
	}
	err := rec.RecordOfferEvent(coremetrics.OfferEvent{
		EntryID:   entry.ID,
		StationID: entry.StationID,
		Date:      entry.Date,
		Action:    action,
		SoC:       entry.Request.SoC,
		Time:      e.now(),
	})
	if err != nil && e.log != nil {
		e.log.Errorf("metrics error: %v", err)
	}
}
