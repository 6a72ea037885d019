package allocation

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	bookingsConfirmed *prometheus.CounterVec
	waitlistEnqueued  *prometheus.CounterVec
	offersMade        *prometheus.CounterVec
	offersExpired     *prometheus.CounterVec
	offersConverted   *prometheus.CounterVec
	commitRetries     prometheus.Counter
	waitlistDepth     *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, *prometheus.GaugeVec) {
	booked := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_confirmed_total",
			Help: "Number of bookings committed to the ledger",
		},
		[]string{"station", "level"},
	)
	queued := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_enqueued_total",
			Help: "Number of requests that fell back to the waitlist",
		},
		[]string{"station"},
	)
	offered := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_offers_total",
			Help: "Number of slot offers made to waitlist entries",
		},
		[]string{"station"},
	)
	expired := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_offers_expired_total",
			Help: "Number of offers that lapsed unconfirmed",
		},
		[]string{"station"},
	)
	converted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_offers_converted_total",
			Help: "Number of offers confirmed into bookings",
		},
		[]string{"station"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commit_conflict_retries_total",
			Help: "Number of transparent retries after a lost commit race",
		},
	)
	depth := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitlist_depth",
			Help: "Current number of waiting entries per queue",
		},
		[]string{"station", "date"},
	)
	return booked, queued, offered, expired, converted, retries, depth
}

func init() {
	bookingsConfirmed, waitlistEnqueued, offersMade, offersExpired, offersConverted, commitRetries, waitlistDepth = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers allocation metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(bookingsConfirmed, waitlistEnqueued, offersMade, offersExpired, offersConverted, commitRetries, waitlistDepth)
}

// ResetMetrics reinitializes metric collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	bookingsConfirmed, waitlistEnqueued, offersMade, offersExpired, offersConverted, commitRetries, waitlistDepth = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
