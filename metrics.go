package orm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records statement timings for a backend. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. Passing a
// fresh registry per backend keeps tests independent of the global one.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = "orderstore"
	}
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "statement_duration_seconds",
			Help:      "Duration of storage statements by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "statement_failures_total",
			Help:      "Storage statements that returned an error, by operation.",
		}, []string{"operation"}),
	}
	if reg != nil {
		if err := reg.Register(m.duration); err != nil {
			return nil, err
		}
		if err := reg.Register(m.failures); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one statement.
func (m *Metrics) Observe(operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if err != nil {
		m.failures.WithLabelValues(operation).Inc()
	}
}
