// Package metrics exposes deployment outcomes to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/gitship/gitship/internal/deploy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements deploy.Observer.
type Metrics struct {
	registry *prometheus.Registry

	deployments  *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inconsistent *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		deployments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gitship_deployments_total",
			Help: "Deploy, rollback and resolve requests by environment and outcome.",
		}, []string{"environment", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gitship_deployment_duration_seconds",
			Help:    "Wall time of deploy and rollback requests.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"environment", "request"}),
		inconsistent: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gitship_environment_inconsistent",
			Help: "1 while an environment needs operator resolution after a failed rollback.",
		}, []string{"environment"}),
	}
}

func (m *Metrics) DeploymentFinished(o deploy.Outcome) {
	m.deployments.WithLabelValues(o.Environment, string(o.Kind)).Inc()
	if o.Request != deploy.RequestResolve {
		m.duration.WithLabelValues(o.Environment, string(o.Request)).Observe(o.Duration().Seconds())
	}
}

func (m *Metrics) InconsistencyChanged(env string, inconsistent bool) {
	v := 0.0
	if inconsistent {
		v = 1
	}
	m.inconsistent.WithLabelValues(env).Set(v)
}

// InconsistencySource reports the environments persisted as inconsistent.
type InconsistencySource interface {
	Inconsistent(ctx context.Context) ([]string, error)
}

// SyncInconsistency sets the gauge of every env in envs from src. Environments src does not
// report are set to 0.
func (m *Metrics) SyncInconsistency(ctx context.Context, envs []string, src InconsistencySource) error {
	flagged, err := src.Inconsistent(ctx)
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(flagged))
	for _, env := range flagged {
		set[env] = true
	}
	for _, env := range envs {
		m.InconsistencyChanged(env, set[env])
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
