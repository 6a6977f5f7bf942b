package energy

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector exposes the latest reading as Prometheus metrics.
// It is a Sink: register it with the Watcher and with a registry.
type MetricsCollector struct {
	usage         prometheus.Gauge
	limit         prometheus.Gauge
	activeDevices prometheus.Gauge
	overloaded    prometheus.Gauge
	lastCheck     prometheus.Gauge
	overloads     prometheus.Counter
}

// NewMetricsCollector creates the energy metrics.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		usage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "graylogic_energy_usage_kwh",
			Help: "Current usage estimate (active watts / 1000)",
		}),
		limit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "graylogic_energy_daily_limit_kwh",
			Help: "Daily limit of the current energy plan",
		}),
		activeDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "graylogic_energy_active_devices",
			Help: "Number of devices currently on",
		}),
		overloaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "graylogic_energy_overloaded",
			Help: "1 if the last check exceeded the limit, 0 otherwise",
		}),
		lastCheck: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "graylogic_energy_last_check_timestamp_seconds",
			Help: "Time of the last check (epoch seconds)",
		}),
		overloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graylogic_energy_overloads_total",
			Help: "Checks that found usage above the limit",
		}),
	}
}

// Observe records reading.
func (c *MetricsCollector) Observe(_ context.Context, reading Reading) error {
	c.usage.Set(reading.UsageKWh)
	c.limit.Set(reading.DailyLimitKWh)
	c.activeDevices.Set(float64(reading.ActiveDevices))
	c.lastCheck.Set(float64(reading.CheckedAt.Unix()))
	if reading.Overloaded {
		c.overloaded.Set(1)
		c.overloads.Inc()
	} else {
		c.overloaded.Set(0)
	}
	return nil
}

// Describe implements prometheus.Collector.
func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.usage.Describe(ch)
	c.limit.Describe(ch)
	c.activeDevices.Describe(ch)
	c.overloaded.Describe(ch)
	c.lastCheck.Describe(ch)
	c.overloads.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c.usage.Collect(ch)
	c.limit.Collect(ch)
	c.activeDevices.Collect(ch)
	c.overloaded.Collect(ch)
	c.lastCheck.Collect(ch)
	c.overloads.Collect(ch)
}
