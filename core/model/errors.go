package model

import "errors"

// Sentinel errors shared across the engine. Callers match them with
// errors.Is; packages wrap them with context via fmt.Errorf and %w.
var (
	// ErrInvalidWindow marks a request window that is malformed or does not
	// snap to the catalog grid. Client error, never retried.
	ErrInvalidWindow = errors.New("invalid window")

	// ErrSlotConflict marks a lost commit race on a slot instance. The
	// engine retries once and then falls back to the waitlist; it is never
	// surfaced to API callers.
	ErrSlotConflict = errors.New("slot conflict")

	// ErrNotFound marks an unknown station, booking or waitlist entry.
	ErrNotFound = errors.New("not found")

	// ErrOfferExpired marks a confirm attempt after the hold deadline, or
	// against a slot reclaimed in the interim.
	ErrOfferExpired = errors.New("offer expired")
)
