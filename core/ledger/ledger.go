// Package ledger is the authoritative record of bookings against slot
// instances. Commit is the single atomic check-and-set in the system: all
// other components treat slot state as a read-only projection of the ledger.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evgrid/chargeq/core/events"
	"github.com/evgrid/chargeq/core/logger"
	"github.com/evgrid/chargeq/core/model"
	"github.com/evgrid/chargeq/internal/eventbus"
)

// Archive persists terminal booking history outside the live ledger.
// Implementations must be safe for concurrent use.
type Archive interface {
	Append(ctx context.Context, b model.Booking) error
}

// Ledger owns the booking lifecycle. Mutations happen only through the
// allocation engine; reads are safe from anywhere.
type Ledger struct {
	mu       sync.Mutex
	bookings map[string]model.Booking
	active   map[model.InstanceKey]string // instance key -> active booking id
	holds    map[model.InstanceKey]string // instance key -> waitlist entry id

	bus     eventbus.EventBus
	log     logger.Logger
	archive Archive
	now     func() time.Time
}

// New creates an empty ledger. The bus receives BookingConfirmed and
// SlotReleased events; archive and now may be nil.
func New(bus eventbus.EventBus, log logger.Logger, archive Archive, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		bookings: map[string]model.Booking{},
		active:   map[model.InstanceKey]string{},
		holds:    map[model.InstanceKey]string{},
		bus:      bus,
		log:      log,
		archive:  archive,
		now:      now,
	}
}

// State reports the current state of an instance key. Implements
// catalog.Occupancy.
func (l *Ledger) State(key model.InstanceKey) model.SlotState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.active[key]; ok {
		return model.SlotBooked
	}
	if _, ok := l.holds[key]; ok {
		return model.SlotHeld
	}
	return model.SlotFree
}

// Commit books the instance for the request. It fails with ErrSlotConflict
// when the instance is booked, or held for a waitlist offer: concurrent
// commits to the same key resolve so exactly one succeeds.
func (l *Ledger) Commit(inst model.SlotInstance, req model.ChargeRequest) (model.Booking, error) {
	return l.commit(inst, req, "")
}

// CommitHeld books an instance held for the given waitlist entry. Only the
// holder may convert its own hold; the hold is consumed on success.
func (l *Ledger) CommitHeld(inst model.SlotInstance, req model.ChargeRequest, entryID string) (model.Booking, error) {
	return l.commit(inst, req, entryID)
}

func (l *Ledger) commit(inst model.SlotInstance, req model.ChargeRequest, holder string) (model.Booking, error) {
	key := inst.Key()
	l.mu.Lock()
	if id, ok := l.active[key]; ok {
		l.mu.Unlock()
		return model.Booking{}, fmt.Errorf("instance %s already booked by %s: %w", key, id, model.ErrSlotConflict)
	}
	if owner, held := l.holds[key]; held && owner != holder {
		l.mu.Unlock()
		return model.Booking{}, fmt.Errorf("instance %s held for waitlist entry %s: %w", key, owner, model.ErrSlotConflict)
	}
	delete(l.holds, key)
	inst.State = model.SlotBooked
	b := model.Booking{
		ID:        uuid.NewString(),
		Request:   req,
		Slot:      inst,
		Status:    model.BookingConfirmed,
		CreatedAt: l.now(),
	}
	l.bookings[b.ID] = b
	l.active[key] = b.ID
	l.mu.Unlock()

	if l.log != nil {
		l.log.Infof("booking %s confirmed for %s on %s", b.ID, req.RequesterID, key)
	}
	if l.bus != nil {
		l.bus.Publish(events.BookingConfirmed{Booking: b})
	}
	l.appendArchive(b)
	return b, nil
}

// Hold reserves the key for a waitlist offer without booking it. Fails with
// ErrSlotConflict when the key is booked or already held.
func (l *Ledger) Hold(key model.InstanceKey, entryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.active[key]; ok {
		return fmt.Errorf("instance %s already booked by %s: %w", key, id, model.ErrSlotConflict)
	}
	if owner, held := l.holds[key]; held && owner != entryID {
		return fmt.Errorf("instance %s already held for %s: %w", key, owner, model.ErrSlotConflict)
	}
	l.holds[key] = entryID
	return nil
}

// ReleaseHold drops a waitlist hold, if present.
func (l *Ledger) ReleaseHold(key model.InstanceKey) {
	l.mu.Lock()
	delete(l.holds, key)
	l.mu.Unlock()
}

// Cancel releases the booking's slot instance and publishes SlotReleased so
// the engine can promote the waitlist. Terminal bookings cannot be cancelled
// again.
func (l *Ledger) Cancel(bookingID string) (model.Booking, error) {
	l.mu.Lock()
	b, ok := l.bookings[bookingID]
	if !ok {
		l.mu.Unlock()
		return model.Booking{}, fmt.Errorf("booking %s: %w", bookingID, model.ErrNotFound)
	}
	if b.Status.Terminal() {
		l.mu.Unlock()
		return model.Booking{}, fmt.Errorf("booking %s already %s: %w", bookingID, b.Status, model.ErrNotFound)
	}
	at := l.now()
	b.Status = model.BookingCancelled
	b.ClosedAt = &at
	l.bookings[bookingID] = b
	delete(l.active, b.Slot.Key())
	l.mu.Unlock()

	if l.log != nil {
		l.log.Infof("booking %s cancelled, slot %s released", b.ID, b.Slot.Key())
	}
	if l.bus != nil {
		l.bus.Publish(events.SlotReleased{Key: b.Slot.Key(), BookingID: b.ID, At: at})
	}
	l.appendArchive(b)
	return b, nil
}

// Close marks the booking completed or missed. The slot instance is freed
// but no SlotReleased event fires: the window is in the past and cannot be
// re-offered.
func (l *Ledger) Close(bookingID string, status model.BookingStatus) (model.Booking, error) {
	if status != model.BookingCompleted && status != model.BookingMissed {
		return model.Booking{}, fmt.Errorf("close requires a terminal outcome, got %s", status)
	}
	l.mu.Lock()
	b, ok := l.bookings[bookingID]
	if !ok || b.Status.Terminal() {
		l.mu.Unlock()
		return model.Booking{}, fmt.Errorf("booking %s: %w", bookingID, model.ErrNotFound)
	}
	at := l.now()
	b.Status = status
	b.ClosedAt = &at
	l.bookings[bookingID] = b
	delete(l.active, b.Slot.Key())
	l.mu.Unlock()

	l.appendArchive(b)
	return b, nil
}

// Get returns a booking by id.
func (l *Ledger) Get(bookingID string) (model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[bookingID]
	if !ok {
		return model.Booking{}, fmt.Errorf("booking %s: %w", bookingID, model.ErrNotFound)
	}
	return b, nil
}

// ListByRequester returns the requester's bookings, newest first.
func (l *Ledger) ListByRequester(requesterID string) []model.Booking {
	return l.list(func(b model.Booking) bool { return b.Request.RequesterID == requesterID })
}

// ListByStation returns the bookings for a station and date, newest first.
func (l *Ledger) ListByStation(stationID, date string) []model.Booking {
	return l.list(func(b model.Booking) bool {
		return b.Slot.StationID == stationID && b.Slot.Date == date
	})
}

func (l *Ledger) list(match func(model.Booking) bool) []model.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.Booking
	for _, b := range l.bookings {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (l *Ledger) appendArchive(b model.Booking) {
	if l.archive == nil {
		return
	}
	if err := l.archive.Append(context.Background(), b); err != nil && l.log != nil {
		l.log.Errorf("booking archive append: %v", err)
	}
}
