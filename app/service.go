// Package app wires the configuration into a running service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evgrid/chargeq/api/bookings"
	"github.com/evgrid/chargeq/api/notifications"
	"github.com/evgrid/chargeq/api/stations"
	apiwaitlist "github.com/evgrid/chargeq/api/waitlist"
	"github.com/evgrid/chargeq/config"
	"github.com/evgrid/chargeq/core/allocation"
	"github.com/evgrid/chargeq/core/catalog"
	"github.com/evgrid/chargeq/core/ledger"
	"github.com/evgrid/chargeq/core/notification"
	"github.com/evgrid/chargeq/core/waitlist"
	"github.com/evgrid/chargeq/infra/history"
	"github.com/evgrid/chargeq/infra/logger"
	"github.com/evgrid/chargeq/infra/metrics"
	"github.com/evgrid/chargeq/infra/mqtt"
	"github.com/evgrid/chargeq/internal/eventbus"
)

// Service orchestrates the allocation engine, the notification emitter and
// the HTTP servers.
type Service struct {
	Engine  *allocation.Engine
	Inbox   *notification.Store
	emitter *notification.Emitter
	bus     *eventbus.Bus
	archive *history.SQLiteStore
	mqtt    *mqtt.PahoTransport
	httpCfg config.HTTPConfig
	sweep   time.Duration
	prom    struct {
		enabled bool
		port    string
	}
	log logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	sink, err := metrics.NewSink(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	var archive *history.SQLiteStore
	if cfg.History.Enabled {
		archive, err = history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("history store: %w", err)
		}
	}

	var transport notification.Transport
	var paho *mqtt.PahoTransport
	if cfg.MQTT.Enabled {
		paho, err = mqtt.NewPahoTransport(cfg.MQTT.Client)
		if err != nil {
			return nil, fmt.Errorf("mqtt transport: %w", err)
		}
		transport = paho
	}

	stationList, err := cfg.BuildStations()
	if err != nil {
		return nil, err
	}

	bus := eventbus.NewBuffered(64)
	var arch ledger.Archive
	if archive != nil {
		arch = archive
	}
	led := ledger.New(bus, logger.New("ledger"), arch, nil)
	cat, err := catalog.New(cfg.Catalog, stationList, led, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	queue := waitlist.New(nil)
	engine, err := allocation.New(cat, led, queue, bus, cfg.Engine, logger.New("allocation"), sink, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	inbox := notification.NewStore(nil)
	emitter := notification.NewEmitter(inbox, cat, transport, logger.New("notification"))

	svc := &Service{
		Engine:  engine,
		Inbox:   inbox,
		emitter: emitter,
		bus:     bus,
		archive: archive,
		mqtt:    paho,
		httpCfg: cfg.HTTP,
		sweep:   time.Duration(cfg.Engine.SweepSeconds) * time.Second,
		log:     logg,
	}
	svc.prom.enabled = cfg.Metrics.PrometheusEnabled
	svc.prom.port = cfg.Metrics.PrometheusPort
	return svc, nil
}

// Handler builds the API routing table.
func (s *Service) Handler() http.Handler {
	bookingHandler := bookings.NewHandler(s.Engine)
	waitlistHandler := apiwaitlist.NewHandler(s.Engine)
	inboxHandler := notifications.NewHandler(s.Inbox)

	mux := http.NewServeMux()
	mux.Handle("/api/bookings", bookingHandler)
	mux.Handle("/api/bookings/", bookingHandler)
	mux.Handle("/api/stations", stations.NewHandler(s.Engine.Catalog()))
	mux.Handle("/api/stations/", s.stationsRouter())
	mux.Handle("/api/waitlist", waitlistHandler)
	mux.Handle("/api/waitlist/", waitlistHandler)
	mux.Handle("/api/notifications", inboxHandler)
	mux.Handle("/api/notifications/", inboxHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// stationsRouter splits /api/stations/{id}/kpis off to the KPI handler when
// the archive is enabled; everything else goes to the catalog handler.
func (s *Service) stationsRouter() http.Handler {
	catalogHandler := stations.NewHandler(s.Engine.Catalog())
	var kpiHandler http.Handler
	if s.archive != nil {
		kpiHandler = stations.NewKPIHandler(s.archive, s.httpCfg.KPIToken)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if kpiHandler != nil && strings.HasSuffix(r.URL.Path, "/kpis") {
			kpiHandler.ServeHTTP(w, r)
			return
		}
		catalogHandler.ServeHTTP(w, r)
	})
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.emitter.Start(ctx, s.bus)

	if s.prom.enabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.prom.port, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	// Periodic expiration sweep; engine entry points also sweep lazily so
	// the ticker only bounds notification latency.
	go func() {
		ticker := time.NewTicker(s.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if expired := s.Engine.SweepExpirations(now); len(expired) > 0 {
					s.log.Infof("expired %d offers", len(expired))
				}
			}
		}
	}()

	srv := &http.Server{Addr: s.httpCfg.Addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()
	s.log.Infof("listening on %s", s.httpCfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	s.bus.Close()
	if s.archive != nil {
		return s.archive.Close()
	}
	return nil
}
