// Package events defines the domain events emitted on the event bus.
//
// Available event types:
//   - BookingConfirmed: a slot instance was committed to a booking
//   - SlotReleased: a cancellation freed a slot instance
//   - SlotOffered: a freed slot was offered to the waitlist head
//   - OfferExpired: a hold deadline passed without confirmation
//   - OfferConverted: an offer was confirmed into a booking
//   - WaitlistJoined: a request entered a waitlist
//   - WaitlistPositionChanged: an entry's derived position moved
package events
