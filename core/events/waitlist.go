package events

import (
	"time"

	"github.com/evgrid/chargeq/core/model"
)

// WaitlistJoined is published when a request could not be allocated and was
// queued instead.
type WaitlistJoined struct {
	Entry    model.WaitlistEntry
	Position int
}

// SlotOffered is published when a freed slot is held for the waitlist head.
// The requester must confirm before Deadline or the offer cascades.
type SlotOffered struct {
	Entry    model.WaitlistEntry
	Key      model.InstanceKey
	Deadline time.Time
}

// OfferExpired is published when a hold deadline passes unconfirmed.
type OfferExpired struct {
	Entry model.WaitlistEntry
}

// OfferConverted is published when an offer is confirmed into a booking.
type OfferConverted struct {
	Entry   model.WaitlistEntry
	Booking model.Booking
}

// WaitlistPositionChanged is published for entries whose derived position
// moved after a promotion or expiration ahead of them.
type WaitlistPositionChanged struct {
	Entry       model.WaitlistEntry
	NewPosition int
}
