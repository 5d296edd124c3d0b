// Package metrics exposes Prometheus metrics for fibsum runs and runtime
// memory snapshots for verbose output.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "fibsum"

// Collector owns a private registry with the run metrics. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	runs             *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	partitionSize    prometheus.Histogram
	partitionSeconds prometheus.Histogram
	collectives      *prometheus.CounterVec
	collectiveErrors *prometheus.CounterVec
	collectiveBytes  *prometheus.CounterVec
	collectiveTime   *prometheus.HistogramVec
	sumDigits        prometheus.Gauge
}

// NewCollector creates a collector with the Go runtime collector registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a complete run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"strategy"}),
		partitionSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "partition_size",
			Help:      "Number of values summed by one rank.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		partitionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "partition_duration_seconds",
			Help:      "Time one rank spent summing its partition.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		collectives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collective_operations_total",
			Help:      "Collective operations by kind.",
		}, []string{"op"}),
		collectiveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collective_errors_total",
			Help:      "Failed collective operations by kind.",
		}, []string{"op"}),
		collectiveBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collective_payload_bytes_total",
			Help:      "Payload bytes handed to collective operations.",
		}, []string{"op"}),
		collectiveTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collective_duration_seconds",
			Help:      "Time spent inside collective operations.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"op"}),
		sumDigits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sum_digits",
			Help:      "Decimal digits of the last computed total.",
		}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		c.runs, c.runDuration, c.partitionSize, c.partitionSeconds,
		c.collectives, c.collectiveErrors, c.collectiveBytes, c.collectiveTime,
		c.sumDigits,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveRun records a finished run.
func (c *Collector) ObserveRun(strategy string, d time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.runs.WithLabelValues(strategy, outcome).Inc()
	c.runDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// ObservePartition records one rank's local work.
func (c *Collector) ObservePartition(size int, d time.Duration) {
	if c == nil {
		return
	}
	c.partitionSize.Observe(float64(size))
	c.partitionSeconds.Observe(d.Seconds())
}

// ObserveCollective records one collective call.
func (c *Collector) ObserveCollective(op string, payloadBytes int, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.collectives.WithLabelValues(op).Inc()
	c.collectiveBytes.WithLabelValues(op).Add(float64(payloadBytes))
	c.collectiveTime.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		c.collectiveErrors.WithLabelValues(op).Inc()
	}
}

// SetSumDigits records the size of the last total.
func (c *Collector) SetSumDigits(digits int) {
	if c == nil {
		return
	}
	c.sumDigits.Set(float64(digits))
}

// WriteTextfile writes the registry in the text exposition format, suitable
// for the node_exporter textfile collector. The file is replaced atomically.
// An empty path writes nothing.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
