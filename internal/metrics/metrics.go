// Package metrics holds the Prometheus instruments for FleetLock.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/fleetlock/internal/command"
)

const namespace = "fleetlock"

// Metrics holds all the Prometheus metrics for the control plane.
// Each instance owns its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	AnnouncementsTotal  *prometheus.CounterVec
	CommandsTotal       *prometheus.CounterVec
	CommandDuration     *prometheus.HistogramVec
	LockReleasesTotal   prometheus.Counter
	ReconcileTicksTotal prometheus.Counter
}

// New creates the metric set and registers Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AnnouncementsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Discovery datagrams received, by result",
		}, []string{"result"}),
		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands executed by the dispatcher, by code and outcome",
		}, []string{"code", "outcome"}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Wall time of one command exchange",
			Buckets:   []float64{.005, .01, .025, .05, .1, .2, .3, .5, 1},
		}, []string{"code"}),
		LockReleasesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_releases_total",
			Help:      "Lock intents released because a device stopped announcing",
		}),
		ReconcileTicksTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_ticks_total",
			Help:      "Reconciliation passes run",
		}),
	}
}

// ObserveAnnouncement counts one discovery datagram.
func (m *Metrics) ObserveAnnouncement(result string) {
	m.AnnouncementsTotal.WithLabelValues(result).Inc()
}

// ObserveCommand records one dispatcher result.
func (m *Metrics) ObserveCommand(r command.Result) {
	code := r.Command.Code.Name()
	m.CommandsTotal.WithLabelValues(code, string(r.Outcome.Kind)).Inc()
	m.CommandDuration.WithLabelValues(code).Observe(r.Duration().Seconds())
}

// ObserveLockReleases counts forced unlocks from one sweep.
func (m *Metrics) ObserveLockReleases(n int) {
	m.LockReleasesTotal.Add(float64(n))
}

// ObserveReconcile counts one reconciliation pass.
func (m *Metrics) ObserveReconcile() {
	m.ReconcileTicksTotal.Inc()
}

// RegisterGauge exposes a value sampled at scrape time, such as queue depth.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
