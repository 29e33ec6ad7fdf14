// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Invocation outcomes used as metrics label values.
const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeTimeout   = "timeout"
	outcomeCrash     = "crash"
	outcomeCancelled = "cancelled"
)

// metrics of a Supervisor; a nil *metrics doesn't record anything.
type metrics struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	kills    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nscrawler",
			Name:      "invocations_total",
			Help:      "Number of Func invocations inside namespaces, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nscrawler",
			Name:      "invocation_duration_seconds",
			Help:      "Duration of Func invocations inside namespaces.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		kills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nscrawler",
			Name:      "worker_kills_total",
			Help:      "Number of worker process groups that had to be killed.",
		}),
	}
	for _, c := range []prometheus.Collector{m.runs, m.duration, m.kills} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) observe(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

func (m *metrics) killed() {
	if m == nil {
		return
	}
	m.kills.Inc()
}
