package metrics

import (
	"time"

	"github.com/evgrid/chargeq/core/model"
)

// BookingEvent represents a booking lifecycle transition to be recorded.
type BookingEvent struct {
	BookingID   string
	RequesterID string
	StationID   string
	SlotID      string
	Level       model.ChargingLevel
	Date        string
	Action      string // confirmed, cancelled, completed, missed
	SoC         int
	Time        time.Time
}

// MetricsSink records booking events for observability purposes.
type MetricsSink interface {
	RecordBookingEvent(ev BookingEvent) error
}

// OfferEvent captures a waitlist offer transition.
type OfferEvent struct {
	EntryID   string
	StationID string
	Date      string
	Action    string // offered, expired, converted
	SoC       int
	Time      time.Time
}

// OfferRecorder records waitlist offer events.
type OfferRecorder interface {
	RecordOfferEvent(ev OfferEvent) error
}

// WaitlistSample is a point-in-time depth of one queue.
type WaitlistSample struct {
	StationID string
	Date      string
	Depth     int
	Time      time.Time
}

// WaitlistDepthRecorder records queue depth samples.
type WaitlistDepthRecorder interface {
	RecordWaitlistDepth(s WaitlistSample) error
}

// NopSink implements all recorder interfaces with no-op methods.
type NopSink struct{}

func (NopSink) RecordBookingEvent(BookingEvent) error    { return nil }
func (NopSink) RecordOfferEvent(OfferEvent) error        { return nil }
func (NopSink) RecordWaitlistDepth(WaitlistSample) error { return nil }
