// Package metrics is the Prometheus-backed implementation of
// controller.MetricsRecorder. Each Metrics value owns its own registry
// rather than registering into prometheus.DefaultRegisterer, so a test (or
// a second controller instance in the same process) never collides with
// another's collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/false-systems/kulta/api/v1beta1"
)

// Metrics records reconcile outcomes, leader-election skips, and current
// traffic splits for every Rollout the controller has touched.
type Metrics struct {
	registry *prometheus.Registry

	reconcilesTotal   *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec
	leaderSkipsTotal  prometheus.Counter
	trafficWeight     *prometheus.GaugeVec
}

// New builds a Metrics backed by a fresh, private registry. Use this from
// cmd/kulta-controller; use NewMetricsWithRegistry in tests that need to
// inspect or reset collector state directly.
func New() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}

// NewMetricsWithRegistry builds a Metrics whose collectors are registered
// into registry rather than a package-global default.
func NewMetricsWithRegistry(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		reconcilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kulta_reconciles_total",
			Help: "Total number of rollout reconciles by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		reconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kulta_reconcile_duration_seconds",
			Help:    "Duration of a successful rollout reconcile by strategy.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
		leaderSkipsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kulta_leader_skips_total",
			Help: "Total number of reconciles skipped because this instance was not the elected leader.",
		}),
		trafficWeight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kulta_traffic_weight_percent",
			Help: "Percentage of traffic currently routed to the canary or preview backend of a rollout.",
		}, []string{"namespace", "name"}),
	}

	registry.MustRegister(
		m.reconcilesTotal,
		m.reconcileDuration,
		m.leaderSkipsTotal,
		m.trafficWeight,
	)
	return m
}

// Handler serves the registry's collected metrics in the Prometheus
// exposition format; cmd/kulta-controller serves it on its metrics port.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordReconcileSuccess(strategy v1beta1.StrategyKind, duration time.Duration) {
	m.reconcilesTotal.WithLabelValues(string(strategy), "success").Inc()
	m.reconcileDuration.WithLabelValues(string(strategy)).Observe(duration.Seconds())
}

func (m *Metrics) RecordReconcileError(strategy v1beta1.StrategyKind) {
	m.reconcilesTotal.WithLabelValues(string(strategy), "error").Inc()
}

func (m *Metrics) RecordLeaderSkip() {
	m.leaderSkipsTotal.Inc()
}

func (m *Metrics) SetTrafficWeight(namespace, name string, weight float64) {
	m.trafficWeight.WithLabelValues(namespace, name).Set(weight)
}
