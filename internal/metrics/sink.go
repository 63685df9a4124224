package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink receives pipeline observations.
type Sink interface {
	ObserveOperation(op, status string, d time.Duration)
	ObserveRun(presetID string, d time.Duration, analyzed bool)
}

// Nop discards every observation.
type Nop struct{}

// ObserveOperation does nothing.
func (Nop) ObserveOperation(string, string, time.Duration) {}

// ObserveRun does nothing.
func (Nop) ObserveRun(string, time.Duration, bool) {}

// PromSink collects observations into its own Prometheus registry.
type PromSink struct {
	registry   *prometheus.Registry
	opDuration *prometheus.HistogramVec
	opTotal    *prometheus.CounterVec
	runs       *prometheus.HistogramVec
}

// NewPromSink creates a PromSink with metrics under the postrender_ prefix.
func NewPromSink() *PromSink {
	s := &PromSink{
		registry: prometheus.NewRegistry(),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "postrender",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of one enhancement operation.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"operation"}),
		opTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postrender",
			Name:      "operations_total",
			Help:      "Enhancement operations by outcome.",
		}, []string{"operation", "status"}),
		runs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "postrender",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"preset", "scene_analyzed"}),
	}
	s.registry.MustRegister(s.opDuration, s.opTotal, s.runs)
	return s
}

// Registry exposes the underlying registry.
func (s *PromSink) Registry() *prometheus.Registry { return s.registry }

// ObserveOperation records the operation's duration and counts it by status.
func (s *PromSink) ObserveOperation(op, status string, d time.Duration) {
	s.opDuration.WithLabelValues(op).Observe(d.Seconds())
	s.opTotal.WithLabelValues(op, status).Inc()
}

// ObserveRun records the run's duration labelled by preset and whether a
// usable scene context was available.
func (s *PromSink) ObserveRun(presetID string, d time.Duration, analyzed bool) {
	s.runs.WithLabelValues(presetID, strconv.FormatBool(analyzed)).Observe(d.Seconds())
}

// WriteTextfile writes the collected metrics in the node_exporter textfile
// format.
func (s *PromSink) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, s.registry)
}
