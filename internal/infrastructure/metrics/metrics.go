// Package metrics publica contadores Prometheus de las operaciones del libro.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain"
)

const namespace = "liquid_ledger"

var _ ledger.Recorder = (*Recorder)(nil)

// Recorder implementa ledger.Recorder sobre un registro Prometheus.
type Recorder struct {
	operations *prometheus.CounterVec
	warnings   *prometheus.CounterVec
}

// NewRecorder crea los contadores y los registra en reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		// Labels: operation, outcome (ok, validation, insufficient_stock, not_found, conflict, error)
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "operations_total",
			Help:      "Stock operations by outcome",
		}, []string{"operation", "outcome"}),
		// Labels: kind (cost_variance, negative_balance, reconcile_drift)
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "warnings_total",
			Help:      "Non-blocking warnings emitted by stock operations",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.warnings} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveOperation cuenta una operación terminada.
func (r *Recorder) ObserveOperation(op string, err error) {
	r.operations.WithLabelValues(op, Outcome(err)).Inc()
}

// ObserveWarning cuenta un aviso emitido.
func (r *Recorder) ObserveWarning(kind string) {
	r.warnings.WithLabelValues(kind).Inc()
}

// Outcome clasifica el error de una operación para la etiqueta outcome.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidInput):
		return "validation"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	default:
		return "error"
	}
}
