package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the ledger's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Mutations       *prometheus.CounterVec
	PersistWrites   *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
	HistoryDates    prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wird_ledger_mutations_total",
			Help: "Ledger mutations applied in memory, by operation.",
		}, []string{"op"}),
		PersistWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wird_persist_writes_total",
			Help: "Successful writes to the persistence store, by key.",
		}, []string{"key"}),
		PersistFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wird_persist_failures_total",
			Help: "Failed writes to the persistence store, by key.",
		}, []string{"key"}),
		HistoryDates: f.NewGauge(prometheus.GaugeOpts{
			Name: "wird_history_dates",
			Help: "Number of dates currently retained in history.",
		}),
	}
}

func (m *Metrics) Mutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) PersistResult(key string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PersistFailures.WithLabelValues(key).Inc()
		return
	}
	m.PersistWrites.WithLabelValues(key).Inc()
}

func (m *Metrics) SetHistoryDates(n int) {
	if m == nil {
		return
	}
	m.HistoryDates.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
