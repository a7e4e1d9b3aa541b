package accessor

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Operation results used as the "result" label.
const (
	ResultOK              = "ok"
	ResultArgumentInvalid = "argument_invalid"
	ResultResponseInvalid = "response_invalid"
	ResultNotFound        = "not_found"
	ResultTransportError  = "transport_error"
	ResultError           = "error"
)

// Metrics holds the accessor collectors. A nil *Metrics records nothing.
type Metrics struct {
	operations       *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	validationIssues *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantry_operations_total",
				Help: "Total number of accessor operations",
			},
			[]string{"endpoint", "op", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pantry_operation_duration_seconds",
				Help:    "Accessor operation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"endpoint", "op"},
		),
		validationIssues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pantry_validation_issues_total",
				Help: "Total number of validation issues reported",
			},
			[]string{"endpoint", "stage"},
		),
	}
}

func (m *Metrics) observe(endpoint, op string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(endpoint, op, resultOf(err)).Inc()
	m.duration.WithLabelValues(endpoint, op).Observe(took.Seconds())
}

func (m *Metrics) issues(endpoint, stage string, n int) {
	if m == nil {
		return
	}
	m.validationIssues.WithLabelValues(endpoint, stage).Add(float64(n))
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, types.ErrArgumentValidation):
		return ResultArgumentInvalid
	case errors.Is(err, types.ErrResponseValidation):
		return ResultResponseInvalid
	case errors.Is(err, types.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, types.ErrTransport):
		return ResultTransportError
	default:
		return ResultError
	}
}
