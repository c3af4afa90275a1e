// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package monitor

import (
	"strconv"
	"sync"

	"github.com/gogama/httpasync"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "httpasync"

// Metrics exports a Controller's phase transitions as Prometheus
// metrics. It is a httpasync.Handler; use Install to attach it to every
// phase.
type Metrics struct {
	attempts    *prometheus.CounterVec // Finished attempts by outcome
	statusCodes *prometheus.CounterVec // Responses by status code
	errors      *prometheus.CounterVec // Failed attempts by kind and code
	phase       prometheus.Gauge       // Current phase number
	handles     prometheus.Gauge       // Transport handles held
	duration    prometheus.Histogram   // Time to response headers

	mu    sync.Mutex
	latch latch
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total finished request attempts by outcome",
		}, []string{"outcome"}),

		statusCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Total responses received by HTTP status code",
		}, []string{"code"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total failed attempts by error kind and platform code",
		}, []string{"kind", "code"}),

		phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "Current phase (0=Idle 1=Sending 2=Waiting 3=HeadersDone 4=Error 5=Canceled)",
		}),

		handles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handles_held",
			Help:      "Transport handles held by the current attempt",
		}),

		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_seconds",
			Help:      "Time from start to response headers",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.statusCodes, m.errors, m.phase, m.handles, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Install pushes m onto the handler chain of every phase.
func (m *Metrics) Install(g *httpasync.HandlerGroup) {
	g.PushBackAll(m)
}

// Handle updates the metrics for an attempt entering phase p.
func (m *Metrics) Handle(p httpasync.Phase, s httpasync.Snapshot) {
	m.phase.Set(float64(p))
	m.handles.Set(float64(s.HandlesHeld()))

	o, ok := OutcomeOf(p, s)
	if !ok {
		return
	}
	m.mu.Lock()
	first := m.latch.first(s.ID)
	m.mu.Unlock()
	if !first {
		return
	}

	m.attempts.WithLabelValues(o.String()).Inc()
	switch o {
	case Succeeded, NonSuccess:
		m.statusCodes.WithLabelValues(strconv.Itoa(s.StatusCode)).Inc()
		m.duration.Observe(s.Duration().Seconds())
	case Failed:
		if s.Err != nil {
			m.errors.WithLabelValues(s.Err.Kind.String(), strconv.Itoa(s.Err.Code)).Inc()
		}
	}
}
