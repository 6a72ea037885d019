package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evgrid/chargeq/infra/logger"
)

// StartPromServer exposes the Prometheus scrape endpoint on addr and blocks
// until the context is cancelled. A dedicated ServeMux keeps /metrics off
// the service's API mux.
func StartPromServer(ctx context.Context, addr string, log logger.Logger) error {
	if log == nil {
		log = logger.NopLogger{}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("prometheus server shutdown: %v", err)
		}
	}()
	log.Infof("prometheus metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
