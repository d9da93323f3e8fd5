// Package metrics holds the bot's observability hooks.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Observer interface {
	Observe(val float64, labels ...string)

	// Observers are tied to Prometheus collectors so that they can be
	// registered directly on the HTTP endpoint.
	prometheus.Collector
}

type Metrics struct {
	MsgsCount    Observer
	CommandCount Observer // labels: command
	RunLatency   Observer // labels: mode
	RunFailures  Observer // labels: mode, kind
	Reconnects   Observer
	SentLines    Observer
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MsgsCount,
		m.CommandCount,
		m.RunLatency,
		m.RunFailures,
		m.Reconnects,
		m.SentLines,
	}
}

// New creates the bot's metrics. They are not registered anywhere.
func New() *Metrics {
	return &Metrics{
		MsgsCount: Counter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "jerrybot",
					Subsystem: "irc",
					Name:      "messages",
					Help:      "Number of PRIVMSGs received.",
				},
			),
		),
		CommandCount: CounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "jerrybot",
					Subsystem: "commands",
					Name:      "invocations",
					Help:      "Number of command invocations by command name.",
				},
				[]string{"command"},
			),
		),
		RunLatency: HistogramVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Buckets:   []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10},
					Namespace: "jerrybot",
					Subsystem: "jerry",
					Name:      "run_latency",
					Help:      "How long interpreter runs take in seconds.",
				},
				[]string{"mode"},
			),
		),
		RunFailures: CounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "jerrybot",
					Subsystem: "jerry",
					Name:      "failures",
					Help:      "Number of interpreter runs reported as failures, by cause.",
				},
				[]string{"mode", "kind"},
			),
		),
		Reconnects: Counter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "jerrybot",
					Subsystem: "irc",
					Name:      "reconnects",
					Help:      "Number of times the IRC connection was re-established after a drop.",
				},
			),
		),
		SentLines: Counter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "jerrybot",
					Subsystem: "irc",
					Name:      "sent_lines",
					Help:      "Number of PRIVMSG lines sent.",
				},
			),
		),
	}
}
