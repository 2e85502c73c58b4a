package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterLogins       prometheus.Counter
	CounterLoginsFailed prometheus.Counter
	CounterUsersCreated prometheus.Counter
	CounterEntriesSaved prometheus.Counter

	// gauges
	GaugeActiveSessions prometheus.Gauge
	GaugeLifeSignal     prometheus.Gauge
}

func NewTestManager() *Manager {
	return NewManager("website", "test_server", prometheus.NewRegistry())
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterLogins := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "logins",
		Help:      "The total number of successful logins",
	})
	counterLoginsFailed := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "logins_failed",
		Help:      "The total number of rejected logins",
	})
	counterUsersCreated := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "users_created",
		Help:      "The total number of created users",
	})
	counterEntriesSaved := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "timesheet_entries_saved",
		Help:      "The total number of saved timesheet entries",
	})
	gaugeActiveSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "The current number of login sessions",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows that the service is alive",
	})

	return &Manager{
		CounterLogins:       counterLogins,
		CounterLoginsFailed: counterLoginsFailed,
		CounterUsersCreated: counterUsersCreated,
		CounterEntriesSaved: counterEntriesSaved,
		GaugeActiveSessions: gaugeActiveSessions,
		GaugeLifeSignal:     gaugeLifeSignal,
	}
}
