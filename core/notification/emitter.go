package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/evgrid/chargeq/core/events"
	"github.com/evgrid/chargeq/core/logger"
	"github.com/evgrid/chargeq/core/model"
	"github.com/evgrid/chargeq/internal/eventbus"
)

// StationNamer resolves a station id to its descriptive record.
// *catalog.Catalog satisfies it.
type StationNamer interface {
	Station(id string) (model.Station, error)
}

// Emitter consumes the event bus and appends a Notification to the store for
// every event a requester should see. transport and log may be nil.
type Emitter struct {
	store     *Store
	stations  StationNamer
	transport Transport
	log       logger.Logger
}

func NewEmitter(store *Store, stations StationNamer, transport Transport, log logger.Logger) *Emitter {
	if transport == nil {
		transport = NopTransport{}
	}
	return &Emitter{store: store, stations: stations, transport: transport, log: log}
}

// Start subscribes to the bus and processes events until the context is
// canceled or the bus closes.
func (em *Emitter) Start(ctx context.Context, bus eventbus.EventBus) {
	if bus == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				em.handle(ctx, ev)
			}
		}
	}()
}

func (em *Emitter) handle(ctx context.Context, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.BookingConfirmed:
		b := e.Booking
		em.emit(ctx, Notification{
			RequesterID: b.Request.RequesterID,
			Type:        TypeBookingConfirmed,
			Title:       "Booking Confirmed",
			Message: fmt.Sprintf("Your charging slot at %s is confirmed for %s, %s-%s.",
				em.stationName(b.Slot.StationID), b.Slot.Date, b.Slot.Window.Start, b.Slot.Window.End),
		})
	case events.SlotOffered:
		em.emit(ctx, Notification{
			RequesterID: e.Entry.Request.RequesterID,
			Type:        TypeSlotAvailable,
			Title:       "Slot Available",
			Message: fmt.Sprintf("A charging slot is now available at %s for %s, starting %s. Confirm before %s to claim it.",
				em.stationName(e.Key.StationID), e.Key.Date, e.Key.Start, e.Deadline.Format(time.Kitchen)),
		})
	case events.OfferExpired:
		em.emit(ctx, Notification{
			RequesterID: e.Entry.Request.RequesterID,
			Type:        TypeOfferExpired,
			Title:       "Offer Expired",
			Message: fmt.Sprintf("Your slot offer at %s for %s expired and was passed to the next driver.",
				em.stationName(e.Entry.StationID), e.Entry.Date),
		})
	case events.WaitlistJoined:
		em.emit(ctx, Notification{
			RequesterID: e.Entry.Request.RequesterID,
			Type:        TypeWaitlistPosition,
			Title:       "Added to Waitlist",
			Message: fmt.Sprintf("No slot was free at %s for %s. You are number %d on the waitlist.",
				em.stationName(e.Entry.StationID), e.Entry.Date, e.Position),
		})
	case events.WaitlistPositionChanged:
		em.emit(ctx, Notification{
			RequesterID: e.Entry.Request.RequesterID,
			Type:        TypeWaitlistPosition,
			Title:       "Waitlist Update",
			Message: fmt.Sprintf("You moved to number %d on the waitlist at %s for %s.",
				e.NewPosition, em.stationName(e.Entry.StationID), e.Entry.Date),
		})
	}
}

func (em *Emitter) emit(ctx context.Context, n Notification) {
	n = em.store.Add(n)
	if err := em.transport.Publish(ctx, n); err != nil && em.log != nil {
		em.log.Errorf("notification transport: %v", err)
	}
}

func (em *Emitter) stationName(id string) string {
	if em.stations != nil {
		if st, err := em.stations.Station(id); err == nil && st.Name != "" {
			return st.Name
		}
	}
	return id
}
