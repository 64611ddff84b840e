// Package metrics exports store activity as prometheus collectors.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rzpsarthak13/joinstore/internal/core"
)

const (
	MetricCommands        = "commands_total"
	MetricCommandDuration = "command_duration_seconds"
	MetricIndexBuilds     = "index_builds_total"
	MetricIndexKeys       = "index_keys"
	MetricDrainedEvents   = "drained_events_total"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics implements the store, join and drainer observer interfaces.
type Metrics struct {
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	indexBuilds     *prometheus.CounterVec
	indexKeys       *prometheus.GaugeVec
	drained         *prometheus.CounterVec
}

// New creates the collectors under namespace and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricCommands,
			Help:      "Commands performed, by command and outcome. Nested commands are counted too.",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricCommandDuration,
			Help:      "Time spent in each command, including rollback.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"command"}),
		indexBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricIndexBuilds,
			Help:      "Join index rebuilds after invalidation.",
		}, []string{"join", "side"}),
		indexKeys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricIndexKeys,
			Help:      "Entries in the most recently built join index.",
		}, []string{"join", "side"}),
		drained: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricDrainedEvents,
			Help:      "Change events handed to the drain handler.",
		}, []string{"table", "outcome"}),
	}

	for _, c := range []prometheus.Collector{m.commands, m.commandDuration, m.indexBuilds, m.indexKeys, m.drained} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering metrics")
		}
	}
	return m, nil
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveCommand records a finished coordinator command.
func (m *Metrics) ObserveCommand(name string, elapsed time.Duration, err error) {
	m.commands.WithLabelValues(name, outcome(err)).Inc()
	m.commandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveIndexBuild records a join index rebuild.
func (m *Metrics) ObserveIndexBuild(join string, d core.Direction, keys int) {
	m.indexBuilds.WithLabelValues(join, string(d)).Inc()
	m.indexKeys.WithLabelValues(join, string(d)).Set(float64(keys))
}

// ObserveDrain records one drained change event.
func (m *Metrics) ObserveDrain(table string, err error) {
	m.drained.WithLabelValues(table, outcome(err)).Inc()
}
