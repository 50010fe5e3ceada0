package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure stages for failuresCounter.
const (
	stageDecode = "decode"
	stageHandle = "handle"
	stageCommit = "commit"
)

var (
	handledCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kaitrack",
		Subsystem: "consumer",
		Name:      "events_handled_total",
		Help:      "Events handled and committed, by topic and event type.",
	}, []string{"topic", "event_type"})

	failuresCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kaitrack",
		Subsystem: "consumer",
		Name:      "failures_total",
		Help:      "Records that failed at the decode, handle or commit stage.",
	}, []string{"topic", "stage"})

	endToEndLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kaitrack",
		Subsystem: "consumer",
		Name:      "end_to_end_seconds",
		Help:      "Time between the broker timestamp of a record and the commit of its handling.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(handledCounter, failuresCounter, endToEndLatency)
}

func recordHandled(msg Message, now time.Time) {
	handledCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() && now.After(msg.Timestamp) {
		endToEndLatency.WithLabelValues(msg.Topic).Observe(now.Sub(msg.Timestamp).Seconds())
	}
}

func recordFailure(topic, stage string) {
	failuresCounter.WithLabelValues(topic, stage).Inc()
}
