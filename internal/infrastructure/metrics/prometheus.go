package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

var _ inventory.Metrics = (*Prometheus)(nil)

// Prometheus métricas del motor de ledger.
type Prometheus struct {
	submits  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	laneWait prometheus.Histogram
	drift    prometheus.Counter
}

// NewPrometheus registra las métricas en reg (DefaultRegisterer si es nil).
// Si ya estaban registradas reutiliza los colectores existentes.
func NewPrometheus(namespace string, reg prometheus.Registerer) (*Prometheus, error) {
	if namespace == "" {
		namespace = "stocker_ledger"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		submits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Movimientos recibidos por tipo y resultado.",
		}, []string{"kind", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_duration_seconds",
			Help:      "Latencia de SubmitMovement de punta a punta.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		laneWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lane_wait_seconds",
			Help:      "Espera por el carril de la clave.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2, 5},
		}),
		drift: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebuild_drift_total",
			Help:      "Claves cuyo nivel guardado no coincidía con el ledger.",
		}),
	}

	var err error
	if p.submits, err = register(reg, p.submits); err != nil {
		return nil, err
	}
	if p.latency, err = register(reg, p.latency); err != nil {
		return nil, err
	}
	if p.laneWait, err = register(reg, p.laneWait); err != nil {
		return nil, err
	}
	if p.drift, err = register(reg, p.drift); err != nil {
		return nil, err
	}
	return p, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (p *Prometheus) ObserveSubmit(kind, outcome string, d time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	p.submits.WithLabelValues(kind, outcome).Inc()
	p.latency.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *Prometheus) ObserveLaneWait(d time.Duration) {
	p.laneWait.Observe(d.Seconds())
}

// ObserveDrift la clave no se usa como etiqueta para no multiplicar series por producto.
func (p *Prometheus) ObserveDrift(entity.LevelKey) {
	p.drift.Inc()
}
