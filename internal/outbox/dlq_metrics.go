package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DLQ replay outcomes.
const (
	dlqOutcomeRequeued    = "requeued"
	dlqOutcomeDeferred    = "deferred"
	dlqOutcomeQuarantined = "quarantined"
)

var (
	dlqOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kaitrack",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled by the manager, by replay outcome.",
	}, []string{"topic", "event_type", "outcome"})

	dlqBacklog = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kaitrack",
		Subsystem: "dlq",
		Name:      "backlog_entries",
		Help:      "Entries currently held in the DLQ, split into pending and quarantined.",
	}, []string{"state"})
)

func init() {
	prometheus.MustRegister(dlqOutcomes, dlqBacklog)
}

func recordDLQOutcome(entry dlqEntry, outcome string) {
	dlqOutcomes.WithLabelValues(entry.Topic, entry.EventType, outcome).Inc()
}

func refreshDLQBacklog(ctx context.Context, pool *pgxpool.Pool) error {
	var pending, quarantined int64
	err := pool.QueryRow(ctx, `
        SELECT COUNT(*) FILTER (WHERE quarantined_at IS NULL),
               COUNT(*) FILTER (WHERE quarantined_at IS NOT NULL)
          FROM outbox_dlq`).Scan(&pending, &quarantined)
	if err != nil {
		return err
	}
	dlqBacklog.WithLabelValues("pending").Set(float64(pending))
	dlqBacklog.WithLabelValues("quarantined").Set(float64(quarantined))
	return nil
}
