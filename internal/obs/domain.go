package obs

import "github.com/prometheus/client_golang/prometheus"

var (
	ledgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger batch items by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	ledgerBatchRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_batch_rejections_total",
			Help: "Ledger batches rejected as a whole.",
		},
		[]string{"kind"},
	)

	likeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_likes_total",
			Help: "Like and unlike operations by target.",
		},
		[]string{"target", "action"},
	)

	entityCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "community_entities",
			Help: "Number of stored entities by table.",
		},
		[]string{"table"},
	)
)

// ObserveLedgerItem counts one batch slot. outcome is "ok" or an error code.
func ObserveLedgerItem(kind, outcome string) {
	ledgerOps.WithLabelValues(kind, outcome).Inc()
}

func ObserveBatchRejected(kind string) {
	ledgerBatchRejections.WithLabelValues(kind).Inc()
}

func ObserveLike(target, action string) {
	likeEvents.WithLabelValues(target, action).Inc()
}

// SetEntityCounts publishes table sizes.
func SetEntityCounts(counts map[string]int) {
	for table, n := range counts {
		entityCount.WithLabelValues(table).Set(float64(n))
	}
}
