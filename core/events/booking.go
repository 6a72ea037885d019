package events

import (
	"time"

	"github.com/evgrid/chargeq/core/model"
)

// BookingConfirmed is published when the ledger commits a booking.
type BookingConfirmed struct {
	Booking model.Booking
}

// SlotReleased is published when a cancellation frees a slot instance. The
// allocation engine consumes it to drive waitlist promotion.
type SlotReleased struct {
	Key       model.InstanceKey
	BookingID string
	At        time.Time
}
