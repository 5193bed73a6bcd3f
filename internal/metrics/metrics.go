// Package metrics собирает счётчики поиска в реестр Prometheus.
// Все методы допускают nil-получатель, поэтому движки работают и без метрик.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds search metrics.
type Metrics struct {
	Evaluations        *prometheus.CounterVec
	Infeasible         *prometheus.CounterVec
	Iterations         *prometheus.CounterVec
	BestMakespan       *prometheus.GaugeVec
	Diversifications   prometheus.Counter
	CrossoverFallbacks prometheus.Counter

	WorkerRuns     *prometheus.CounterVec
	WorkerDuration *prometheus.HistogramVec
}

// New registers all metrics in registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexshop_evaluations_total",
				Help: "Total number of schedule evaluations",
			},
			[]string{"algo"},
		),
		Infeasible: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexshop_infeasible_total",
				Help: "Infeasible candidates discarded and retried",
			},
			[]string{"algo", "source"},
		),
		Iterations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexshop_iterations_total",
				Help: "Completed iterations or generations",
			},
			[]string{"algo"},
		),
		BestMakespan: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flexshop_best_makespan",
				Help: "Best makespan reported by the last finished run",
			},
			[]string{"algo"},
		),
		Diversifications: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "flexshop_tabu_diversifications_total",
				Help: "Forced moves to a worse neighbor after stagnation",
			},
		),
		CrossoverFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "flexshop_crossover_fallbacks_total",
				Help: "Children copied from a parent after crossover retries were exhausted",
			},
		),
		WorkerRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexshop_worker_runs_total",
				Help: "Finished search workers by outcome",
			},
			[]string{"algo", "outcome"},
		),
		WorkerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flexshop_worker_duration_seconds",
				Help:    "Search worker wall time",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"algo"},
		),
	}
}

// NewRegistry creates a private registry with metrics.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, New(reg)
}

// WriteTextfile выгружает реестр в формате node_exporter textfile.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}

// RunStats - итог одного запуска движка.
type RunStats struct {
	Algo        string
	Evaluations int
	Iterations  int
	Infeasible  map[string]int
	Best        int
}

// ObserveRun учитывает итог запуска.
func (m *Metrics) ObserveRun(s RunStats) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(s.Algo).Add(float64(s.Evaluations))
	m.Iterations.WithLabelValues(s.Algo).Add(float64(s.Iterations))
	for src, n := range s.Infeasible {
		m.Infeasible.WithLabelValues(s.Algo, src).Add(float64(n))
	}
	if s.Best >= 0 {
		m.BestMakespan.WithLabelValues(s.Algo).Set(float64(s.Best))
	}
}

func (m *Metrics) Diversified() {
	if m == nil {
		return
	}
	m.Diversifications.Inc()
}

func (m *Metrics) CrossoverFallback() {
	if m == nil {
		return
	}
	m.CrossoverFallbacks.Inc()
}

// ObserveWorker учитывает завершение воркера оркестратора.
func (m *Metrics) ObserveWorker(algo, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.WorkerRuns.WithLabelValues(algo, outcome).Inc()
	m.WorkerDuration.WithLabelValues(algo).Observe(d.Seconds())
}
