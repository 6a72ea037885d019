package metrics

import coremetrics "github.com/evgrid/chargeq/core/metrics"

// MultiSink fanouts booking events to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordBookingEvent forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordBookingEvent(ev coremetrics.BookingEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordBookingEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordOfferEvent forwards offer transitions to sinks that support them.
func (m *MultiSink) RecordOfferEvent(ev coremetrics.OfferEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.OfferRecorder); ok {
			if err := rec.RecordOfferEvent(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordWaitlistDepth forwards depth samples to sinks that support them.
func (m *MultiSink) RecordWaitlistDepth(sample coremetrics.WaitlistSample) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.WaitlistDepthRecorder); ok {
			if err := rec.RecordWaitlistDepth(sample); err != nil {
				return err
			}
		}
	}
	return nil
}
