package metrics

import (
	coremetrics "github.com/evgrid/chargeq/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records booking and waitlist events in Prometheus metrics.
type PromSink struct {
	bookings *prometheus.CounterVec
	offers   *prometheus.CounterVec
	depth    *prometheus.GaugeVec
	holdSoC  *prometheus.HistogramVec
}

// NewPromSink registers booking metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	bookings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_events_total",
		Help: "Total number of booking lifecycle events",
	}, []string{"station_id", "level", "action"})
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_offer_events_total",
		Help: "Total number of waitlist offer transitions",
	}, []string{"station_id", "action"})
	depth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "waitlist_queue_depth",
		Help: "Waiting entries per station and date",
	}, []string{"station_id", "date"})
	holdSoC := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "booking_soc_percent",
		Help:    "State of charge reported at booking time",
		Buckets: []float64{5, 10, 20, 40, 60, 80, 100},
	}, []string{"station_id"})

	if err := reg.Register(bookings); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			bookings = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(offers); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			offers = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(depth); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			depth = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(holdSoC); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			holdSoC = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{bookings: bookings, offers: offers, depth: depth, holdSoC: holdSoC}, nil
}

// RecordBookingEvent increments the counter for one booking transition.
func (s *PromSink) RecordBookingEvent(ev coremetrics.BookingEvent) error {
	s.bookings.WithLabelValues(ev.StationID, string(ev.Level), ev.Action).Inc()
	if ev.Action == "confirmed" {
		s.holdSoC.WithLabelValues(ev.StationID).Observe(float64(ev.SoC))
	}
	return nil
}

// RecordOfferEvent increments the counter for one offer transition.
func (s *PromSink) RecordOfferEvent(ev coremetrics.OfferEvent) error {
	s.offers.WithLabelValues(ev.StationID, ev.Action).Inc()
	return nil
}

// RecordWaitlistDepth sets the per-queue gauge.
func (s *PromSink) RecordWaitlistDepth(sample coremetrics.WaitlistSample) error {
	s.depth.WithLabelValues(sample.StationID, sample.Date).Set(float64(sample.Depth))
	return nil
}
