// Package metrics records install runs as Prometheus metrics. Archer is not a
// daemon, so the registry is written once per run in the node_exporter
// textfile format rather than served.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/archer/internal/provisioning"
)

const namespace = "archer"

// Recorder is a provisioning.Observer that turns executor events into
// metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	actionsTotal     *prometheus.CounterVec
	actionDuration   *prometheus.HistogramVec
	retriesTotal     *prometheus.CounterVec
	compensatedTotal *prometheus.CounterVec
	stageDuration    *prometheus.GaugeVec
	runsTotal        *prometheus.CounterVec
	lastRunSeconds   prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "executor",
				Name:      "actions_total",
				Help:      "Total number of actions by stage and result",
			},
			[]string{"stage", "result"},
		),

		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "executor",
				Name:      "action_duration_seconds",
				Help:      "Duration of actions in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27min
			},
			[]string{"stage"},
		),

		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "executor",
				Name:      "retries_total",
				Help:      "Total number of action retries by stage",
			},
			[]string{"stage"},
		),

		compensatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "executor",
				Name:      "compensations_total",
				Help:      "Total number of actions rolled back by stage",
			},
			[]string{"stage"},
		),

		stageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "install",
				Name:      "stage_duration_seconds",
				Help:      "Duration of the last completed run of each stage",
			},
			[]string{"stage"},
		),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "install",
				Name:      "runs_total",
				Help:      "Total number of runs by status",
			},
			[]string{"status"},
		),

		lastRunSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "install",
				Name:      "last_run_duration_seconds",
				Help:      "Duration of the last completed run",
			},
		),
	}

	r.registry.MustRegister(
		r.actionsTotal,
		r.actionDuration,
		r.retriesTotal,
		r.compensatedTotal,
		r.stageDuration,
		r.runsTotal,
		r.lastRunSeconds,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Event implements provisioning.Observer.
func (r *Recorder) Event(e provisioning.Event) {
	switch e.Type {
	case provisioning.EventActionSucceeded:
		r.actionsTotal.WithLabelValues(e.Stage, "succeeded").Inc()
		r.actionDuration.WithLabelValues(e.Stage).Observe(e.Duration.Seconds())
	case provisioning.EventActionFailed:
		if e.Fields["phase"] == "compensation" {
			r.actionsTotal.WithLabelValues(e.Stage, "compensation_failed").Inc()
			return
		}
		r.actionsTotal.WithLabelValues(e.Stage, "failed").Inc()
		r.actionDuration.WithLabelValues(e.Stage).Observe(e.Duration.Seconds())
	case provisioning.EventActionSkipped:
		r.actionsTotal.WithLabelValues(e.Stage, "skipped").Inc()
	case provisioning.EventActionRetrying:
		r.retriesTotal.WithLabelValues(e.Stage).Inc()
	case provisioning.EventCompensated:
		r.compensatedTotal.WithLabelValues(e.Stage).Inc()
	case provisioning.EventStageCompleted:
		r.stageDuration.WithLabelValues(e.Stage).Set(e.Duration.Seconds())
	case provisioning.EventRunCompleted:
		r.runsTotal.WithLabelValues("completed").Inc()
		r.lastRunSeconds.Set(e.Duration.Seconds())
	case provisioning.EventRunAborted:
		r.runsTotal.WithLabelValues("aborted").Inc()
	case provisioning.EventRunHalted:
		r.runsTotal.WithLabelValues("halted").Inc()
	}
}

// WriteTextfile writes the registry to path in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
