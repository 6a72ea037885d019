package model

import (
	"fmt"
	"time"
)

// ChargeRequest captures a driver's need for a charging slot. Requests are
// immutable once created; a new request replaces an old one.
type ChargeRequest struct {
	RequesterID      string        `json:"requester_id"`
	StationID        string        `json:"station_id"`
	Date             string        `json:"date"`
	Window           *TimeWindow   `json:"window,omitempty"` // nil means any window
	SoC              int           `json:"soc"`              // state of charge, 0-100
	EstimatedRangeKM float64       `json:"estimated_range_km"`
	Level            ChargingLevel `json:"level"`
	Notes            string        `json:"notes,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Validate checks the request fields.
func (r ChargeRequest) Validate() error {
	if r.RequesterID == "" {
		return fmt.Errorf("requester id is required")
	}
	if r.StationID == "" {
		return fmt.Errorf("station id is required")
	}
	if _, err := ParseDate(r.Date); err != nil {
		return err
	}
	if r.SoC < 0 || r.SoC > 100 {
		return fmt.Errorf("soc must be between 0 and 100")
	}
	if r.EstimatedRangeKM < 0 {
		return fmt.Errorf("estimated range must be non-negative")
	}
	if _, err := ParseLevel(string(r.Level)); err != nil {
		return err
	}
	if r.Window != nil && !r.Window.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, r.Window)
	}
	return nil
}

// PriorityBand groups requests by urgency for display purposes. Ordering
// inside the waitlist uses the raw SoC, not the band.
type PriorityBand string

const (
	BandCritical PriorityBand = "critical" // soc <= 10
	BandHigh     PriorityBand = "high"     // soc <= 20
	BandMedium   PriorityBand = "medium"   // soc <= 40
	BandLow      PriorityBand = "low"
)

// Band derives the urgency band from the state of charge.
func (r ChargeRequest) Band() PriorityBand {
	switch {
	case r.SoC <= 10:
		return BandCritical
	case r.SoC <= 20:
		return BandHigh
	case r.SoC <= 40:
		return BandMedium
	default:
		return BandLow
	}
}

// MoreUrgent reports whether r outranks o in the waitlist: lower SoC first,
// then earlier arrival. The tie-break is load-bearing for fairness.
func (r ChargeRequest) MoreUrgent(o ChargeRequest) bool {
	if r.SoC != o.SoC {
		return r.SoC < o.SoC
	}
	return r.CreatedAt.Before(o.CreatedAt)
}
