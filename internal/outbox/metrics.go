package outbox

import "github.com/prometheus/client_golang/prometheus"

// Delivery results for eventsCounter.
const (
	resultDelivered    = "delivered"
	resultDeadLettered = "dead_lettered"
)

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kaitrack",
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events leaving the table, by topic, event type and result.",
	}, []string{"topic", "event_type", "result"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kaitrack",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent claiming, delivering and settling one outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	publishLag = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kaitrack",
		Subsystem: "outbox",
		Name:      "publish_lag_seconds",
		Help:      "Time between an outbox insert and its delivery to Kafka.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(eventsCounter, batchDuration, publishLag)
}

func recordResult(messages []Message, result string) {
	for _, msg := range messages {
		eventsCounter.WithLabelValues(msg.Topic, msg.EventType, result).Inc()
	}
}
