// Package obs holds the service's Prometheus instrumentation.
package obs

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	TurnsTotal   *prometheus.CounterVec // intent=apply_leave|check_balance|...
	CommitsTotal *prometheus.CounterVec // result=committed|rejected|conflict|error

	CommitAttempts prometheus.Histogram // CAS rounds per successful commit

	SessionsExpired prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// NewMetrics registers all collectors on reg (pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_turns_total",
				Help: "Total conversational turns by classified intent",
			},
			[]string{"intent"},
		),
		CommitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leave_commits_total",
				Help: "Total leave commit attempts by result",
			},
			[]string{"result"},
		),
		CommitAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "leave_commit_cas_rounds",
			Help:    "Compare-and-swap rounds needed per successful commit",
			Buckets: prometheus.LinearBuckets(1, 1, 5),
		}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_sessions_expired_total",
			Help: "Sessions that hit the inactivity window",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Sessions currently in a non-terminal state",
		}),
	}

	reg.MustRegister(
		m.TurnsTotal,
		m.CommitsTotal,
		m.CommitAttempts,
		m.SessionsExpired,
		m.ActiveSessions,
	)

	return m
}
