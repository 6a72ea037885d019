package model

import "time"

// BookingStatus tracks the booking lifecycle. Transitions are append-only:
// a terminal booking never becomes active again.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
	BookingMissed    BookingStatus = "missed"
)

// Terminal reports whether the status admits no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted || s == BookingMissed
}

// Booking is a confirmed reservation of one slot instance. Created only by
// the allocation engine through the ledger.
type Booking struct {
	ID        string        `json:"id"`
	Request   ChargeRequest `json:"request"`
	Slot      SlotInstance  `json:"slot"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty"`
}

// Active reports whether the booking still occupies its slot instance.
func (b Booking) Active() bool { return b.Status == BookingConfirmed }
