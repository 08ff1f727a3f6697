// Package metrics records generation progress as Prometheus metrics. A
// Collector is handed to the engine as its Observer; the collected values
// can be written in the text exposition format for node_exporter's
// textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tablefaker"

type Collector struct {
	registry *prometheus.Registry

	rows     *prometheus.CounterVec
	retries  *prometheus.CounterVec
	failures *prometheus.CounterVec
	planned  *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_generated_total",
			Help:      "Rows accepted per table.",
		}, []string{"table"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uniqueness_retries_total",
			Help:      "Values regenerated after a uniqueness collision.",
		}, []string{"table", "field"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_failures_total",
			Help:      "Tables whose generation failed.",
		}, []string{"table"}),
		planned: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_rows_requested",
			Help:      "Rows requested per table.",
		}, []string{"table"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "table_duration_seconds",
			Help:      "Time taken to generate a table.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4m
		}, []string{"table"}),
	}
}

func (c *Collector) TableStarted(table string, rows int) {
	c.planned.WithLabelValues(table).Set(float64(rows))
}

func (c *Collector) RowGenerated(table string) {
	c.rows.WithLabelValues(table).Inc()
}

func (c *Collector) UniquenessRetry(table, field string) {
	c.retries.WithLabelValues(table, field).Inc()
}

func (c *Collector) TableCompleted(table string, _ int, elapsed time.Duration) {
	c.duration.WithLabelValues(table).Observe(elapsed.Seconds())
}

func (c *Collector) TableFailed(table string, _ error) {
	c.failures.WithLabelValues(table).Inc()
}

// Registry exposes the collector's metrics for gathering.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
