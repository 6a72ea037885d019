package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/evgrid/chargeq/core/metrics"
	"github.com/evgrid/chargeq/infra/logger"
)

// InfluxSink writes booking and waitlist events to an InfluxDB instance using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordBookingEvent writes one booking transition as a point.
func (s *InfluxSink) RecordBookingEvent(ev coremetrics.BookingEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("booking_event").
		AddTag("station_id", ev.StationID).
		AddTag("slot_id", ev.SlotID).
		AddTag("level", string(ev.Level)).
		AddTag("action", ev.Action).
		AddTag("date", ev.Date).
		AddTag("component", "allocation_engine").
		AddField("booking_id", ev.BookingID).
		AddField("requester_id", ev.RequesterID).
		AddField("soc", ev.SoC).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordOfferEvent writes one waitlist offer transition as a point.
func (s *InfluxSink) RecordOfferEvent(ev coremetrics.OfferEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("waitlist_offer_event").
		AddTag("station_id", ev.StationID).
		AddTag("action", ev.Action).
		AddTag("date", ev.Date).
		AddTag("component", "allocation_engine").
		AddField("entry_id", ev.EntryID).
		AddField("soc", ev.SoC).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordWaitlistDepth writes a queue depth sample.
func (s *InfluxSink) RecordWaitlistDepth(sample coremetrics.WaitlistSample) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("waitlist_depth").
		AddTag("station_id", sample.StationID).
		AddTag("date", sample.Date).
		AddTag("component", "allocation_engine").
		AddField("depth", sample.Depth).
		SetTime(sample.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
