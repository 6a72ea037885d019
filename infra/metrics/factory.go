package metrics

import (
	coremetrics "github.com/evgrid/chargeq/core/metrics"
)

// NewSink builds the sink stack described by cfg: Prometheus and InfluxDB
// sinks behind a MultiSink when both are enabled, a NopSink when neither is.
func NewSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	var sinks []coremetrics.MetricsSink
	if cfg.PrometheusEnabled {
		prom, err := NewPromSink(cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, prom)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
