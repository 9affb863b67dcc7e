package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/Treework/internal/graph"
)

// Metrics — наблюдатель узлов, экспортирующий метрики Prometheus.
// Реализует graph.Observer; регистрируется в DefaultRegisterer.
type Metrics struct {
	runsTotal    *prometheus.CounterVec
	nodesRunning prometheus.Gauge
	runDuration  prometheus.Histogram
}

// NewMetrics создаёт и регистрирует коллекторы.
// Вызывается один раз на процесс.
func NewMetrics() *Metrics {
	return &Metrics{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "treework_node_runs_total",
			Help: "Количество финализаций узлов по итоговому состоянию.",
		}, []string{"state"}),
		nodesRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "treework_nodes_running",
			Help: "Текущее количество выполняющихся узлов.",
		}),
		runDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "treework_node_run_duration_seconds",
			Help:    "Длительность выполнения рабочей функции узла.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// NodeStarted реализует graph.Observer.
func (m *Metrics) NodeStarted(info graph.RunInfo) {
	m.nodesRunning.Inc()
}

// NodeFinished реализует graph.Observer.
func (m *Metrics) NodeFinished(info graph.RunInfo) {
	m.runsTotal.WithLabelValues(string(info.State)).Inc()
	if !info.StartedAt.IsZero() {
		m.nodesRunning.Dec()
		m.runDuration.Observe(info.Duration().Seconds())
	}
}
