// Package observability holds process-wide metrics and logger setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kaitrack"

var (
	workoutPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "persistence",
		Name:      "last_workout_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout persisted to Postgres.",
	})
	progressLoggedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "persistence",
		Name:      "last_progress_logged_timestamp_seconds",
		Help:      "Unix timestamp of the most recent progression event appended by the consumer.",
	})

	workoutsLogged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "progression",
		Name:      "workouts_logged_total",
		Help:      "Accepted workouts, labeled by whether they were rest days.",
	}, []string{"rest_day"})
	pointsAwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "progression",
		Name:      "points_awarded_total",
		Help:      "Kai Points awarded, labeled by source (base, bonus, wheel).",
	}, []string{"source"})
	tierPromotions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "progression",
		Name:      "tier_promotions_total",
		Help:      "Tier changes, labeled by the tier reached.",
	}, []string{"tier"})
	wheelSpins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "wheel",
		Name:      "spins_total",
		Help:      "Wheel spins, labeled by reward category.",
	}, []string{"category"})
	streaksReset = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "streaks_reset_total",
		Help:      "Current streaks zeroed by the lapsed streak sweep.",
	})
)

func init() {
	prometheus.MustRegister(workoutPersistGauge, progressLoggedGauge, workoutsLogged, pointsAwarded, tierPromotions, wheelSpins, streaksReset)
}

// RecordWorkoutPersisted updates the persistence watermark gauge.
func RecordWorkoutPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	workoutPersistGauge.Set(float64(ts.Unix()))
}

// RecordProgressLogged updates the consumer watermark gauge.
func RecordProgressLogged(ts time.Time) {
	if ts.IsZero() {
		return
	}
	progressLoggedGauge.Set(float64(ts.Unix()))
}

// RecordWorkout counts an accepted workout and its point breakdown.
func RecordWorkout(restDay bool, base, bonus int64) {
	label := "false"
	if restDay {
		label = "true"
	}
	workoutsLogged.WithLabelValues(label).Inc()
	if base > 0 {
		pointsAwarded.WithLabelValues("base").Add(float64(base))
	}
	if bonus > 0 {
		pointsAwarded.WithLabelValues("bonus").Add(float64(bonus))
	}
}

// RecordTierPromotion counts a tier change.
func RecordTierPromotion(tier string) {
	tierPromotions.WithLabelValues(tier).Inc()
}

// RecordSpin counts a wheel spin and any points it granted.
func RecordSpin(category string, points int64) {
	wheelSpins.WithLabelValues(category).Inc()
	if points > 0 {
		pointsAwarded.WithLabelValues("wheel").Add(float64(points))
	}
}

// RecordStreaksReset counts profiles touched by the streak sweep.
func RecordStreaksReset(n int) {
	streaksReset.Add(float64(n))
}
