package di

import (
	"errors"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "autodi"

// metrics is nil-safe: a Registry without WithMetrics carries a nil *metrics.
type metrics struct {
	constructions *prometheus.CounterVec
	failures      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	constructions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "constructions_total",
		Help:      "Singleton instances constructed, by bound type.",
	}, []string{"type"}))
	if err != nil {
		return nil, err
	}

	failures, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "construction_failures_total",
		Help:      "Failed construction attempts, by bound type.",
	}, []string{"type"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "construction_duration_seconds",
		Help:      "Time spent constructing a singleton, dependencies included.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"type"}))
	if err != nil {
		return nil, err
	}

	return &metrics{constructions: constructions, failures: failures, duration: duration}, nil
}

// register adds c to reg, reusing an identical collector that is already there.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) observe(t reflect.Type, took time.Duration, err error) {
	if m == nil {
		return
	}
	label := typeName(t)
	if err != nil {
		m.failures.WithLabelValues(label).Inc()
		return
	}
	m.constructions.WithLabelValues(label).Inc()
	m.duration.WithLabelValues(label).Observe(took.Seconds())
}
