// Package metrics holds the domain counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Remote sync outcomes.
const (
	OutcomeRemote   = "remote"
	OutcomeFallback = "fallback"
	OutcomeStale    = "stale"
)

var (
	remoteSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_remote_sync_total",
			Help: "Collection writes by outcome (remote, fallback, stale)",
		},
		[]string{"collection", "outcome"},
	)

	persistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_persistence_failures_total",
			Help: "Store writes that failed",
		},
		[]string{"collection"},
	)

	followUpsAdvanced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_followups_advanced_total",
			Help: "Follow-up steps executed by the scheduler",
		},
		[]string{"status"},
	)

	stepDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_step_deliveries_total",
			Help: "Outreach steps delivered by channel and result",
		},
		[]string{"channel", "result"},
	)

	leadIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_intents_total",
			Help: "Lifecycle intents handled",
		},
		[]string{"intent"},
	)
)

func RecordRemoteSync(collection, outcome string) {
	remoteSyncTotal.WithLabelValues(collection, outcome).Inc()
}

func RecordPersistenceFailure(collection string) {
	persistenceFailures.WithLabelValues(collection).Inc()
}

func RecordFollowUpAdvanced(status string) {
	followUpsAdvanced.WithLabelValues(status).Inc()
}

func RecordStepDelivery(channel, result string) {
	stepDeliveries.WithLabelValues(channel, result).Inc()
}

func RecordIntent(intent string) {
	leadIntents.WithLabelValues(intent).Inc()
}
