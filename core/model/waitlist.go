package model

import "time"

// WaitlistStatus tracks a waitlist entry through its lifecycle:
// waiting -> notified -> {converted | expired}. An offered entry never skips
// the notified state.
type WaitlistStatus string

const (
	WaitWaiting   WaitlistStatus = "waiting"
	WaitNotified  WaitlistStatus = "notified"
	WaitExpired   WaitlistStatus = "expired"
	WaitConverted WaitlistStatus = "converted"
)

// Terminal reports whether the entry has left the queue for good.
func (s WaitlistStatus) Terminal() bool {
	return s == WaitExpired || s == WaitConverted
}

// WaitlistEntry is a pending charge request queued for a (station, date).
// Position is derived from queue order at read time and never stored.
type WaitlistEntry struct {
	ID            string         `json:"id"`
	Request       ChargeRequest  `json:"request"`
	StationID     string         `json:"station_id"`
	Date          string         `json:"date"`
	Status        WaitlistStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	NotifiedAt    *time.Time     `json:"notified_at,omitempty"`
	OfferDeadline *time.Time     `json:"offer_deadline,omitempty"`
	// OfferedKey is the slot instance bound to the outstanding offer.
	OfferedKey *InstanceKey `json:"offered_key,omitempty"`
}
