// Package metrics exposes Prometheus collectors for the storage layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gradebook/internal/errs"
)

// Storage records repository operations. It implements
// repository.Observer.
type Storage struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func NewStorage(reg prometheus.Registerer) (*Storage, error) {
	s := &Storage{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gradebook",
				Name:      "storage_operations_total",
				Help:      "Repository operations by entity, operation and outcome.",
			},
			[]string{"entity", "op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gradebook",
				Name:      "storage_operation_duration_seconds",
				Help:      "Repository operation latency.",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"entity", "op"},
		),
	}

	for _, c := range []prometheus.Collector{s.operations, s.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Outcome is "ok" for nil and the error kind otherwise.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(errs.KindOf(err))
}

func (s *Storage) ObserveOperation(entity, op string, err error, seconds float64) {
	s.operations.WithLabelValues(entity, op, Outcome(err)).Inc()
	s.duration.WithLabelValues(entity, op).Observe(seconds)
}
