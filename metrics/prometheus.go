package metrics

import "github.com/prometheus/client_golang/prometheus"

// observer adapts a Prometheus collector to Observer.
type observer struct {
	observe func(val float64, labels ...string)
	prometheus.Collector
}

func (o *observer) Observe(val float64, labels ...string) {
	o.observe(val, labels...)
}

// Counter adds observed values to c. Labels are ignored.
func Counter(c prometheus.Counter) Observer {
	return &observer{
		observe:   func(val float64, _ ...string) { c.Add(val) },
		Collector: c,
	}
}

// CounterVec adds observed values to the series of v with the given labels.
func CounterVec(v *prometheus.CounterVec) Observer {
	return &observer{
		observe:   func(val float64, labels ...string) { v.WithLabelValues(labels...).Add(val) },
		Collector: v,
	}
}

// HistogramVec records observed values in the series of v with the given
// labels.
func HistogramVec(v *prometheus.HistogramVec) Observer {
	return &observer{
		observe:   func(val float64, labels ...string) { v.WithLabelValues(labels...).Observe(val) },
		Collector: v,
	}
}
