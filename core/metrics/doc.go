// Package metrics defines the recorder contracts used by the allocation
// engine to publish booking and waitlist observations. Concrete sinks
// (Prometheus, InfluxDB) live in infra/metrics.
package metrics
